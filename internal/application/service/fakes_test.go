package service

import (
	"context"
	"sort"
	"time"

	"github.com/garyjia/doc-approval/internal/domain/entity"
	"github.com/garyjia/doc-approval/internal/domain/flow"
	"github.com/garyjia/doc-approval/internal/domain/lifecycle"
)

// memStore is an in-memory stand-in for the persistence layer. It implements
// every repository port plus TransactionManager: WithTransaction snapshots the
// maps and restores them when fn fails, mirroring a rolled-back transaction.
// Individual methods can be overridden with function fields to inject faults.
type memStore struct {
	documents map[string]*entity.Document
	versions  map[string]*entity.DocumentVersion
	templates map[string]*flow.Template
	tasks     map[string]*entity.ReviewTask
	records   map[string]*entity.ApprovalRecord
	users     map[string]*entity.User
	auditLog  []*entity.AuditEntry

	recordAuditFunc func(ctx context.Context, entry *entity.AuditEntry) error
	markActedFunc   func(ctx context.Context, taskID, assigneeID string, to entity.TaskStatus, actedAt time.Time) (int64, error)
	createTaskFunc  func(ctx context.Context, task *entity.ReviewTask) (bool, error)
}

func newMemStore() *memStore {
	return &memStore{
		documents: make(map[string]*entity.Document),
		versions:  make(map[string]*entity.DocumentVersion),
		templates: make(map[string]*flow.Template),
		tasks:     make(map[string]*entity.ReviewTask),
		records:   make(map[string]*entity.ApprovalRecord),
		users:     make(map[string]*entity.User),
	}
}

// --- TransactionManager ---

func (s *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := s.clone()
	if err := fn(ctx); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.documents {
		cp := *v
		c.documents[k] = &cp
	}
	for k, v := range s.versions {
		cp := *v
		c.versions[k] = &cp
	}
	for k, v := range s.templates {
		c.templates[k] = v
	}
	for k, v := range s.tasks {
		cp := *v
		c.tasks[k] = &cp
	}
	for k, v := range s.records {
		cp := *v
		c.records[k] = &cp
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	c.auditLog = append([]*entity.AuditEntry(nil), s.auditLog...)
	return c
}

func (s *memStore) restore(snapshot *memStore) {
	s.documents = snapshot.documents
	s.versions = snapshot.versions
	s.templates = snapshot.templates
	s.tasks = snapshot.tasks
	s.records = snapshot.records
	s.users = snapshot.users
	s.auditLog = snapshot.auditLog
}

// --- DocumentRepository ---

func (s *memStore) Create(ctx context.Context, doc *entity.Document) error {
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	if doc, ok := s.documents[id]; ok {
		cp := *doc
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Document, error) {
	var docs []*entity.Document
	for _, doc := range s.documents {
		if doc.OwnerID == ownerID {
			cp := *doc
			docs = append(docs, &cp)
		}
	}
	return docs, nil
}

func (s *memStore) ListByIDs(ctx context.Context, ids []string) ([]*entity.Document, error) {
	var docs []*entity.Document
	for _, id := range ids {
		if doc, ok := s.documents[id]; ok {
			cp := *doc
			docs = append(docs, &cp)
		}
	}
	return docs, nil
}

func (s *memStore) ListAll(ctx context.Context) ([]*entity.Document, error) {
	var docs []*entity.Document
	for _, doc := range s.documents {
		cp := *doc
		docs = append(docs, &cp)
	}
	return docs, nil
}

func (s *memStore) UpdateTitle(ctx context.Context, id, title string) error {
	s.documents[id].Title = title
	return nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id string, status lifecycle.Status) error {
	s.documents[id].Status = status
	return nil
}

func (s *memStore) SetCurrentVersion(ctx context.Context, id, versionID string) error {
	s.documents[id].CurrentVersionID = versionID
	return nil
}

func (s *memStore) SetSubmitted(ctx context.Context, id string, status lifecycle.Status, versionID, templateID string) error {
	doc := s.documents[id]
	doc.Status = status
	doc.CurrentVersionID = versionID
	doc.FlowTemplateID = templateID
	return nil
}

func (s *memStore) SetReopened(ctx context.Context, id string, status lifecycle.Status, versionID string) error {
	doc := s.documents[id]
	doc.Status = status
	doc.CurrentVersionID = versionID
	return nil
}

// --- VersionRepository ---

type versionStore struct{ *memStore }

func (s *memStore) Versions() *versionStore { return &versionStore{s} }

func (v *versionStore) Create(ctx context.Context, version *entity.DocumentVersion) error {
	cp := *version
	v.versions[version.ID] = &cp
	return nil
}

func (v *versionStore) GetByID(ctx context.Context, id string) (*entity.DocumentVersion, error) {
	if version, ok := v.versions[id]; ok {
		cp := *version
		return &cp, nil
	}
	return nil, nil
}

func (v *versionStore) MaxVersionNo(ctx context.Context, documentID string) (int, error) {
	maxNo := 0
	for _, version := range v.versions {
		if version.DocumentID == documentID && version.VersionNo > maxNo {
			maxNo = version.VersionNo
		}
	}
	return maxNo, nil
}

func (v *versionStore) CountByDocument(ctx context.Context, documentID string) (int, error) {
	count := 0
	for _, version := range v.versions {
		if version.DocumentID == documentID {
			count++
		}
	}
	return count, nil
}

func (v *versionStore) UpdateContent(ctx context.Context, id, content string) error {
	v.versions[id].Content = content
	return nil
}

// --- TemplateRepository ---

type templateStore struct{ *memStore }

func (s *memStore) Templates() *templateStore { return &templateStore{s} }

func (t *templateStore) Create(ctx context.Context, template *flow.Template) error {
	t.templates[template.ID] = template
	return nil
}

func (t *templateStore) GetByID(ctx context.Context, id string) (*flow.Template, error) {
	if template, ok := t.templates[id]; ok {
		return template, nil
	}
	return nil, nil
}

func (t *templateStore) List(ctx context.Context) ([]*flow.Template, error) {
	var templates []*flow.Template
	for _, template := range t.templates {
		templates = append(templates, template)
	}
	return templates, nil
}

// --- TaskRepository ---

type taskStore struct{ *memStore }

func (s *memStore) Tasks() *taskStore { return &taskStore{s} }

func (t *taskStore) GetByID(ctx context.Context, id string) (*entity.ReviewTask, error) {
	if task, ok := t.tasks[id]; ok {
		cp := *task
		return &cp, nil
	}
	return nil, nil
}

func (t *taskStore) ListByStep(ctx context.Context, documentID, versionID, stepKey string) ([]*entity.ReviewTask, error) {
	var tasks []*entity.ReviewTask
	for _, task := range t.tasks {
		if task.DocumentID == documentID && task.DocumentVersionID == versionID && task.StepKey == stepKey {
			cp := *task
			tasks = append(tasks, &cp)
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

func (t *taskStore) ListByDocument(ctx context.Context, documentID string) ([]*entity.ReviewTask, error) {
	var tasks []*entity.ReviewTask
	for _, task := range t.tasks {
		if task.DocumentID == documentID {
			cp := *task
			tasks = append(tasks, &cp)
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

func (t *taskStore) ListPendingByAssignee(ctx context.Context, assigneeID string) ([]*entity.ReviewTask, error) {
	var tasks []*entity.ReviewTask
	for _, task := range t.tasks {
		if task.AssigneeID == assigneeID && task.Status == entity.TaskPending {
			cp := *task
			tasks = append(tasks, &cp)
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

func (t *taskStore) ListDocumentIDsByAssignee(ctx context.Context, assigneeID string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, task := range t.tasks {
		if task.AssigneeID == assigneeID && !seen[task.DocumentID] {
			seen[task.DocumentID] = true
			ids = append(ids, task.DocumentID)
		}
	}
	return ids, nil
}

func (t *taskStore) CreateIfAbsent(ctx context.Context, task *entity.ReviewTask) (bool, error) {
	if t.createTaskFunc != nil {
		return t.createTaskFunc(ctx, task)
	}
	for _, existing := range t.tasks {
		if existing.DocumentID == task.DocumentID &&
			existing.DocumentVersionID == task.DocumentVersionID &&
			existing.StepKey == task.StepKey &&
			existing.AssigneeID == task.AssigneeID &&
			existing.Status == entity.TaskPending {
			return false, nil
		}
	}
	cp := *task
	t.tasks[task.ID] = &cp
	return true, nil
}

func (t *taskStore) MarkActed(ctx context.Context, taskID, assigneeID string, to entity.TaskStatus, actedAt time.Time) (int64, error) {
	if t.markActedFunc != nil {
		return t.markActedFunc(ctx, taskID, assigneeID, to, actedAt)
	}
	task, ok := t.tasks[taskID]
	if !ok || task.AssigneeID != assigneeID || task.Status != entity.TaskPending {
		return 0, nil
	}
	task.Status = to
	task.ActedAt = &actedAt
	return 1, nil
}

func (t *taskStore) CancelPendingSiblings(ctx context.Context, documentID, versionID, stepKey, excludeTaskID string, actedAt time.Time) (int64, error) {
	var cancelled int64
	for _, task := range t.tasks {
		if task.DocumentID == documentID && task.DocumentVersionID == versionID &&
			task.StepKey == stepKey && task.Status == entity.TaskPending && task.ID != excludeTaskID {
			task.Status = entity.TaskCancelled
			task.ActedAt = &actedAt
			cancelled++
		}
	}
	return cancelled, nil
}

func sortTasks(tasks []*entity.ReviewTask) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

// --- RecordRepository ---

type recordStore struct{ *memStore }

func (s *memStore) Records() *recordStore { return &recordStore{s} }

func (r *recordStore) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	cp := *record
	r.records[record.ID] = &cp
	return nil
}

func (r *recordStore) ListByDocument(ctx context.Context, documentID string) ([]*entity.ApprovalRecord, error) {
	var records []*entity.ApprovalRecord
	for _, record := range r.records {
		if record.DocumentID == documentID {
			cp := *record
			records = append(records, &cp)
		}
	}
	return records, nil
}

// --- UserRepository ---

type userStore struct{ *memStore }

func (s *memStore) Users() *userStore { return &userStore{s} }

func (u *userStore) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if user, ok := u.users[id]; ok {
		return user, nil
	}
	return nil, nil
}

// --- AuditRecorder ---

type auditStore struct{ *memStore }

func (s *memStore) Audit() *auditStore { return &auditStore{s} }

func (a *auditStore) Record(ctx context.Context, entry *entity.AuditEntry) error {
	if a.recordAuditFunc != nil {
		return a.recordAuditFunc(ctx, entry)
	}
	a.auditLog = append(a.auditLog, entry)
	return nil
}

// --- Logger ---

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

// --- Fixture helpers ---

func seedUser(s *memStore, id string, role entity.Role) {
	s.users[id] = &entity.User{ID: id, Name: id, Role: role, CreatedAt: time.Now()}
}

func seedDocument(s *memStore, id, ownerID string, status lifecycle.Status, versionID, templateID string) {
	s.documents[id] = &entity.Document{
		ID:               id,
		Title:            "doc " + id,
		OwnerID:          ownerID,
		Status:           status,
		CurrentVersionID: versionID,
		FlowTemplateID:   templateID,
	}
}

func seedVersion(s *memStore, id, documentID string, versionNo int, content string) {
	s.versions[id] = &entity.DocumentVersion{
		ID:         id,
		DocumentID: documentID,
		VersionNo:  versionNo,
		Content:    content,
	}
}

func seedTask(s *memStore, id, documentID, versionID, assigneeID, stepKey string, mode flow.Mode, status entity.TaskStatus) {
	s.tasks[id] = &entity.ReviewTask{
		ID:                id,
		DocumentID:        documentID,
		DocumentVersionID: versionID,
		AssigneeID:        assigneeID,
		StepKey:           stepKey,
		Mode:              mode,
		Status:            status,
		CreatedAt:         time.Now(),
	}
}

func serialParallelTemplate() *flow.Template {
	return &flow.Template{
		ID:   "flow-1",
		Name: "two step",
		Steps: []flow.StepDefinition{
			{StepKey: "first", OrderIndex: 1, Mode: flow.ModeSerial, ReviewerIDs: []string{"rev-a", "rev-b"}},
			{StepKey: "second", OrderIndex: 2, Mode: flow.ModeParallel, ReviewerIDs: []string{"rev-c", "rev-d"}},
		},
	}
}
