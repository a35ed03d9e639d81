package workflow

import "fmt"

// Action is what a reviewer does to a queue entry.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionReject:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// PastTense is used in decision messages ("Invoice approved").
func (a Action) PastTense() string {
	if a == ActionApprove {
		return "approved"
	}
	return "rejected"
}

// Status values per kind.
const (
	StatusDraft     = "draft"
	StatusCancelled = "cancelled"

	SalesOrderConfirmed = "confirmed"
	SalesOrderDelivered = "delivered"

	PurchaseOrderSent     = "sent"
	PurchaseOrderReceived = "received"

	InvoiceSent    = "sent"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"

	BillReceived = "received"
	BillPaid     = "paid"
	BillOverdue  = "overdue"

	ExpensePending  = "pending"
	ExpenseApproved = "approved"
	ExpenseRejected = "rejected"
)

type rule struct {
	initial  string
	approve  string
	reject   string
	statuses []string
}

var rules = map[Kind]rule{
	KindSalesOrder: {
		initial:  StatusDraft,
		approve:  SalesOrderConfirmed,
		reject:   StatusCancelled,
		statuses: []string{StatusDraft, SalesOrderConfirmed, SalesOrderDelivered, StatusCancelled},
	},
	KindPurchaseOrder: {
		initial:  StatusDraft,
		approve:  PurchaseOrderSent,
		reject:   StatusCancelled,
		statuses: []string{StatusDraft, PurchaseOrderSent, PurchaseOrderReceived, StatusCancelled},
	},
	KindInvoice: {
		initial:  StatusDraft,
		approve:  InvoiceSent,
		reject:   StatusCancelled,
		statuses: []string{StatusDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, StatusCancelled},
	},
	KindBill: {
		initial:  StatusDraft,
		approve:  BillReceived,
		reject:   StatusCancelled,
		statuses: []string{StatusDraft, BillReceived, BillPaid, BillOverdue, StatusCancelled},
	},
	KindExpense: {
		initial:  ExpensePending,
		approve:  ExpenseApproved,
		reject:   ExpenseRejected,
		statuses: []string{ExpensePending, ExpenseApproved, ExpenseRejected},
	},
}

func ruleFor(kind Kind) rule {
	r, ok := rules[kind]
	if !ok {
		panic(fmt.Sprintf("workflow: no transition rule for kind %q", kind))
	}
	return r
}

// Target returns the status an action moves a record of kind to.
func Target(kind Kind, action Action) string {
	r := ruleFor(kind)
	if action == ActionApprove {
		return r.approve
	}
	return r.reject
}

// InitialStatus is the status new records of kind start in.
func InitialStatus(kind Kind) string {
	return ruleFor(kind).initial
}

// Statuses returns the closed status set of kind.
func Statuses(kind Kind) []string {
	return append([]string(nil), ruleFor(kind).statuses...)
}

func ValidStatus(kind Kind, status string) bool {
	for _, s := range ruleFor(kind).statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Next applies action to a record currently in status from.
// Approval is accepted from the initial status or repeats on the approved
// status; rejection cancels from any status.
func Next(kind Kind, action Action, from string) (string, error) {
	r := ruleFor(kind)
	switch action {
	case ActionApprove:
		if from == r.initial || from == r.approve {
			return r.approve, nil
		}
		return "", fmt.Errorf("%w: cannot approve %s in status %q", ErrInvalidTransition, kind.Label(), from)
	case ActionReject:
		return r.reject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

// ApprovedByPM derives the queue flag of a billing document from its status.
func ApprovedByPM(status string) bool {
	return status != StatusDraft
}
