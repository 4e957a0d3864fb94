package user

// Status is the account flag shown in the Status column.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Statuses lists the values offered by the status select, in display order.
var Statuses = []Status{StatusActive, StatusInactive}

// User is the record stored under /users.
//
// RoleID references Role.ID. Role is the referenced role's name, kept for display
// and for records written by clients that only know names (RoleID 0).
type User struct {
	ID     int    `json:"id"`
	Name   string `json:"name" validate:"required"`
	RoleID int    `json:"roleId,omitempty"`
	Role   string `json:"role" validate:"required"`
	Status Status `json:"status" validate:"required,oneof=Active Inactive"`
}

func (u User) RecordID() int { return u.ID }

func (u User) WithID(id int) User {
	u.ID = id
	return u
}

// Blank is the draft opened by the add dialog. Role and status start unselected.
func Blank() User {
	return User{}
}
