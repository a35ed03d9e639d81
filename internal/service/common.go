package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"oneflow/internal/model"
	"oneflow/internal/repository"
	"oneflow/pkg/apperror"

	"gorm.io/gorm"
)

const timeLayout = "2006-01-02 15:04:05"

// Events published to websocket subscribers.
const (
	EventApprovalDecided  = "approval.decided"
	EventDocumentCreated  = "document.created"
	EventDocumentUpdated  = "document.updated"
	EventDocumentDeleted  = "document.deleted"
	EventExpenseSubmitted = "expense.submitted"
)

// Notifier pushes domain events to connected clients.
type Notifier interface {
	Publish(event string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, interface{}) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// storeError classifies a repository error. notFound is the client message
// used when the record does not exist.
func storeError(err error, notFound, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound(notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Conflict("record already exists", err)
	default:
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.Persistence(op, err)
	}
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, actorID uint, action, entityID, entityName string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := &model.AuditLog{
		UserID:     actorRef(actorID),
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return apperror.Persistence("failed to write audit log", err)
	}
	return nil
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// actorRef maps the zero id used for system actions to a null user.
func actorRef(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}
