// Package workflow holds the approval state machine shared by expenses and
// billing documents: the DocumentRef variant that identifies a queue entry and
// the transition table applied when a project manager acts on it.
package workflow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRef        = errors.New("invalid document reference")
	ErrInvalidAction     = errors.New("action must be approve or reject")
	ErrInvalidTransition = errors.New("transition not allowed")
)

// Kind tags the record behind a queue entry.
type Kind string

const (
	KindExpense       Kind = "expense"
	KindSalesOrder    Kind = "sales_order"
	KindPurchaseOrder Kind = "purchase_order"
	KindInvoice       Kind = "invoice"
	KindBill          Kind = "bill"
)

// DocumentKinds lists the billing kinds in queue order.
var DocumentKinds = []Kind{KindSalesOrder, KindPurchaseOrder, KindInvoice, KindBill}

func (k Kind) Prefix() string {
	switch k {
	case KindSalesOrder:
		return "so"
	case KindPurchaseOrder:
		return "po"
	case KindInvoice:
		return "inv"
	case KindBill:
		return "bill"
	default:
		return ""
	}
}

func (k Kind) Label() string {
	switch k {
	case KindSalesOrder:
		return "Sales Order"
	case KindPurchaseOrder:
		return "Purchase Order"
	case KindInvoice:
		return "Invoice"
	case KindBill:
		return "Bill"
	case KindExpense:
		return "Expense"
	default:
		return string(k)
	}
}

func (k Kind) IsDocument() bool {
	switch k {
	case KindSalesOrder, KindPurchaseOrder, KindInvoice, KindBill:
		return true
	}
	return false
}

func (k Kind) Valid() bool {
	return k == KindExpense || k.IsDocument()
}

// ParseKind accepts the stored type tag of an expense row.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown kind %q", s)
	}
	return k, nil
}

// DocumentRef identifies one record in the approval queue.
type DocumentRef struct {
	Kind Kind
	ID   uint
}

func ExpenseRef(id uint) DocumentRef       { return DocumentRef{Kind: KindExpense, ID: id} }
func SalesOrderRef(id uint) DocumentRef    { return DocumentRef{Kind: KindSalesOrder, ID: id} }
func PurchaseOrderRef(id uint) DocumentRef { return DocumentRef{Kind: KindPurchaseOrder, ID: id} }
func InvoiceRef(id uint) DocumentRef       { return DocumentRef{Kind: KindInvoice, ID: id} }
func BillRef(id uint) DocumentRef          { return DocumentRef{Kind: KindBill, ID: id} }

// String renders the queue id: "<prefix>_<id>" for documents, the bare id for expenses.
func (r DocumentRef) String() string {
	id := strconv.FormatUint(uint64(r.ID), 10)
	if p := r.Kind.Prefix(); p != "" {
		return p + "_" + id
	}
	return id
}

// ParseDocumentRef decodes a queue id. Ids without a known prefix address an expense.
func ParseDocumentRef(s string) (DocumentRef, error) {
	kind := KindExpense
	raw := s
	for _, k := range DocumentKinds {
		if rest, ok := strings.CutPrefix(s, k.Prefix()+"_"); ok {
			kind, raw = k, rest
			break
		}
	}

	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 || n > uint64(^uint(0)) {
		return DocumentRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	return DocumentRef{Kind: kind, ID: uint(n)}, nil
}
