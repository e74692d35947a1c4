package entity

import "time"

// Role determines which parts of the workflow a user may drive
type Role string

const (
	RoleUser     Role = "User"
	RoleReviewer Role = "Reviewer"
	RoleAdmin    Role = "Admin"
)

// User is the minimal identity record the workflow needs. Authentication
// itself lives outside this service; requests arrive with an already
// authenticated actor id.
type User struct {
	ID        string
	Name      string
	Role      Role
	CreatedAt time.Time
}
