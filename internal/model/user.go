package model

// Role is handed to the core by the authentication layer alongside the
// current user id.
type Role string

const (
	RoleOrganizer Role = "Organizer"
	RoleGuest     Role = "Guest"
	RoleAdmin     Role = "Admin"
)

// Actor identifies who is calling into the core.
type Actor struct {
	UserID int64
	Role   Role
}
