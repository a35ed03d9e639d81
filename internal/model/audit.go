package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionSignup          = "SIGNUP"
	ActionUpdateUserRole  = "UPDATE_USER_ROLE"
	ActionCreateProject   = "CREATE_PROJECT"
	ActionSubmitExpense   = "SUBMIT_EXPENSE"
	ActionCreateDocument  = "CREATE_DOCUMENT"
	ActionUpdateDocument  = "UPDATE_DOCUMENT"
	ActionDeleteDocument  = "DELETE_DOCUMENT"
	ActionApproveDocument = "APPROVE_DOCUMENT"
	ActionRejectDocument  = "REJECT_DOCUMENT"
)

// AuditLog tracks who changed what and when
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"` // nil for system actions such as seeding
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"` // queue id, e.g. "so_12"
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
