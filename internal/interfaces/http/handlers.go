package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/doc-approval/internal/application/service"
	"github.com/garyjia/doc-approval/internal/domain/apperr"
	"github.com/garyjia/doc-approval/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	documentService service.DocumentService
	submitService   service.SubmitService
	reviewService   service.ReviewService
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	documentService service.DocumentService,
	submitService service.SubmitService,
	reviewService service.ReviewService,
	logger Logger,
) *Handlers {
	return &Handlers{
		documentService: documentService,
		submitService:   submitService,
		reviewService:   reviewService,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateDraftRequest is the body for POST /api/documents
type CreateDraftRequest struct {
	Title string `json:"title" binding:"required"`
}

// UpdateDraftRequest is the body for PATCH /api/documents/:id. Absent fields
// are left untouched.
type UpdateDraftRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// SubmitRequest is the body for POST /api/documents/:id/submit
type SubmitRequest struct {
	TemplateID string `json:"templateId" binding:"required"`
}

// ActRequest is the body for POST /api/reviews/:taskId
type ActRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// WorkflowResponse is the outcome summary every workflow mutation returns
type WorkflowResponse struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	OwnerID          string `json:"ownerId"`
	Status           string `json:"status"`
	CurrentVersionID string `json:"currentVersionId,omitempty"`
	FlowTemplateID   string `json:"flowTemplateId,omitempty"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

// VersionResponse represents a document version in API responses
type VersionResponse struct {
	ID        string `json:"id"`
	VersionNo int    `json:"versionNo"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// TaskResponse represents a review task in API responses
type TaskResponse struct {
	ID                string  `json:"id"`
	DocumentID        string  `json:"documentId"`
	DocumentVersionID string  `json:"documentVersionId"`
	AssigneeID        string  `json:"assigneeId"`
	StepKey           string  `json:"stepKey"`
	Mode              string  `json:"mode"`
	Status            string  `json:"status"`
	ActedAt           *string `json:"actedAt,omitempty"`
	CreatedAt         string  `json:"createdAt"`
}

// RecordResponse represents an approval record in API responses
type RecordResponse struct {
	ID           string `json:"id"`
	ReviewTaskID string `json:"reviewTaskId"`
	ActorID      string `json:"actorId"`
	Action       string `json:"action"`
	Reason       string `json:"reason,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// DocumentDetailResponse bundles a document with its version, tasks, and records
type DocumentDetailResponse struct {
	Document       DocumentResponse `json:"document"`
	CurrentVersion *VersionResponse `json:"currentVersion,omitempty"`
	Tasks          []TaskResponse   `json:"tasks"`
	Records        []RecordResponse `json:"records"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateDraft handles POST /api/documents
func (h *Handlers) CreateDraft(c *gin.Context) {
	var req CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	doc, err := h.documentService.CreateDraft(c.Request.Context(), ActorID(c), req.Title, RequestID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toDocumentResponse(doc)})
}

// ListDocuments handles GET /api/documents
func (h *Handlers) ListDocuments(c *gin.Context) {
	docs, err := h.documentService.ListDocuments(c.Request.Context(), ActorID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	responses := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		responses = append(responses, toDocumentResponse(doc))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: responses})
}

// GetDocument handles GET /api/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	detail, err := h.documentService.GetDocument(c.Request.Context(), ActorID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := DocumentDetailResponse{
		Document: toDocumentResponse(detail.Document),
		Tasks:    make([]TaskResponse, 0, len(detail.Tasks)),
		Records:  make([]RecordResponse, 0, len(detail.Records)),
	}
	if detail.CurrentVersion != nil {
		version := toVersionResponse(detail.CurrentVersion)
		resp.CurrentVersion = &version
	}
	for _, task := range detail.Tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(task))
	}
	for _, record := range detail.Records {
		resp.Records = append(resp.Records, toRecordResponse(record))
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

// UpdateDraft handles PATCH /api/documents/:id
func (h *Handlers) UpdateDraft(c *gin.Context) {
	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	if req.Title == nil && req.Content == nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "nothing to update"})
		return
	}

	err := h.documentService.UpdateDraft(c.Request.Context(), ActorID(c), c.Param("id"), req.Title, req.Content, RequestID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// SubmitForApproval handles POST /api/documents/:id/submit
func (h *Handlers) SubmitForApproval(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	result, err := h.submitService.SubmitForApproval(c.Request.Context(), ActorID(c), c.Param("id"), req.TemplateID, RequestID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toWorkflowResponse(result)})
}

// ReopenAsDraft handles POST /api/documents/:id/reopen
func (h *Handlers) ReopenAsDraft(c *gin.Context) {
	result, err := h.documentService.ReopenAsDraft(c.Request.Context(), ActorID(c), c.Param("id"), RequestID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toWorkflowResponse(result)})
}

// ListPendingTasks handles GET /api/reviews/pending
func (h *Handlers) ListPendingTasks(c *gin.Context) {
	tasks, err := h.reviewService.ListMyPendingTasks(c.Request.Context(), ActorID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, toTaskResponse(task))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: responses})
}

// ActOnReviewTask handles POST /api/reviews/:taskId
func (h *Handlers) ActOnReviewTask(c *gin.Context) {
	var req ActRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	result, err := h.reviewService.ActOnReviewTask(
		c.Request.Context(),
		ActorID(c),
		c.Param("taskId"),
		entity.ReviewAction(req.Action),
		req.Reason,
		RequestID(c),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toWorkflowResponse(result)})
}

// respondError maps a domain error kind to an HTTP status. Non-domain errors
// surface as 500 with a generic message.
func (h *Handlers) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	message := "internal error"
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case apperr.KindConflict:
		status = http.StatusConflict
		message = err.Error()
	case apperr.KindValidationFailed:
		status = http.StatusUnprocessableEntity
		message = err.Error()
	default:
		h.logger.Error("Request failed", "error", err, "request_id", RequestID(c))
	}

	c.JSON(status, Response{Success: false, Error: message})
}

func toDocumentResponse(doc *entity.Document) DocumentResponse {
	return DocumentResponse{
		ID:               doc.ID,
		Title:            doc.Title,
		OwnerID:          doc.OwnerID,
		Status:           string(doc.Status),
		CurrentVersionID: doc.CurrentVersionID,
		FlowTemplateID:   doc.FlowTemplateID,
		CreatedAt:        doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        doc.UpdatedAt.Format(time.RFC3339),
	}
}

func toVersionResponse(version *entity.DocumentVersion) VersionResponse {
	return VersionResponse{
		ID:        version.ID,
		VersionNo: version.VersionNo,
		Content:   version.Content,
		CreatedAt: version.CreatedAt.Format(time.RFC3339),
	}
}

func toTaskResponse(task *entity.ReviewTask) TaskResponse {
	resp := TaskResponse{
		ID:                task.ID,
		DocumentID:        task.DocumentID,
		DocumentVersionID: task.DocumentVersionID,
		AssigneeID:        task.AssigneeID,
		StepKey:           task.StepKey,
		Mode:              string(task.Mode),
		Status:            string(task.Status),
		CreatedAt:         task.CreatedAt.Format(time.RFC3339),
	}
	if task.ActedAt != nil {
		actedAt := task.ActedAt.Format(time.RFC3339)
		resp.ActedAt = &actedAt
	}
	return resp
}

func toRecordResponse(record *entity.ApprovalRecord) RecordResponse {
	return RecordResponse{
		ID:           record.ID,
		ReviewTaskID: record.ReviewTaskID,
		ActorID:      record.ActorID,
		Action:       string(record.Action),
		Reason:       record.Reason,
		CreatedAt:    record.CreatedAt.Format(time.RFC3339),
	}
}

func toWorkflowResponse(result *service.WorkflowResult) WorkflowResponse {
	return WorkflowResponse{
		DocumentID: result.DocumentID,
		Status:     string(result.Status),
	}
}
