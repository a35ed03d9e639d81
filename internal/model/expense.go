package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is either a reimbursement request (Type "expense") or a mirror row
// created alongside a billing document so it shows up in the PM queue.
// Mirror rows are never updated when the underlying document is decided.
type Expense struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	User         *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ProjectID    uint            `gorm:"not null;index" json:"project_id"`
	Project      *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description  string          `gorm:"type:text" json:"description"`
	Status       string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ApprovedByPM bool            `gorm:"column:approved_by_pm;not null;default:false" json:"approved_by_pm"`
	Type         string          `gorm:"type:varchar(20);not null;default:'expense';index" json:"type"`
	ReferenceID  *uint           `gorm:"index" json:"reference_id"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsMirror reports whether the row shadows a billing document.
func (e *Expense) IsMirror() bool {
	return e.Type != "" && e.Type != "expense"
}
