package model

import (
	"time"

	"oneflow/internal/workflow"

	"github.com/shopspring/decimal"
)

// DocumentBase holds the columns shared by all billing documents.
// reference_no is unique per table, so per document kind.
type DocumentBase struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ReferenceNo string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"reference_no"`
	Date        time.Time       `gorm:"type:date;not null" json:"date"`
	Description string          `gorm:"type:text" json:"description"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	ProjectID   *uint           `gorm:"index" json:"project_id"`
	Status      string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BillingDocument is implemented by the pointer types of the four billing models.
type BillingDocument interface {
	Kind() workflow.Kind
	Base() *DocumentBase
	Counterparty() string
	SetCounterparty(name string)
}

type SalesOrder struct {
	DocumentBase
	CustomerName string   `gorm:"type:varchar(255);not null" json:"customer_name"`
	Project      *Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"project,omitempty"`
}

type PurchaseOrder struct {
	DocumentBase
	SupplierName string   `gorm:"type:varchar(255);not null" json:"supplier_name"`
	Project      *Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"project,omitempty"`
}

type Invoice struct {
	DocumentBase
	CustomerName string      `gorm:"type:varchar(255);not null" json:"customer_name"`
	SalesOrderID *uint       `gorm:"index" json:"sales_order_id"`
	SalesOrder   *SalesOrder `gorm:"foreignKey:SalesOrderID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"sales_order,omitempty"`
	Project      *Project    `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"project,omitempty"`
}

// Bill is a supplier invoice, optionally raised against a purchase order.
type Bill struct {
	DocumentBase
	SupplierName    string         `gorm:"type:varchar(255);not null" json:"supplier_name"`
	PurchaseOrderID *uint          `gorm:"index" json:"purchase_order_id"`
	PurchaseOrder   *PurchaseOrder `gorm:"foreignKey:PurchaseOrderID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"purchase_order,omitempty"`
	Project         *Project       `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"project,omitempty"`
}

func (d *SalesOrder) Kind() workflow.Kind         { return workflow.KindSalesOrder }
func (d *SalesOrder) Base() *DocumentBase         { return &d.DocumentBase }
func (d *SalesOrder) Counterparty() string        { return d.CustomerName }
func (d *SalesOrder) SetCounterparty(n string)    { d.CustomerName = n }
func (d *PurchaseOrder) Kind() workflow.Kind      { return workflow.KindPurchaseOrder }
func (d *PurchaseOrder) Base() *DocumentBase      { return &d.DocumentBase }
func (d *PurchaseOrder) Counterparty() string     { return d.SupplierName }
func (d *PurchaseOrder) SetCounterparty(n string) { d.SupplierName = n }
func (d *Invoice) Kind() workflow.Kind            { return workflow.KindInvoice }
func (d *Invoice) Base() *DocumentBase            { return &d.DocumentBase }
func (d *Invoice) Counterparty() string           { return d.CustomerName }
func (d *Invoice) SetCounterparty(n string)       { d.CustomerName = n }
func (d *Bill) Kind() workflow.Kind               { return workflow.KindBill }
func (d *Bill) Base() *DocumentBase               { return &d.DocumentBase }
func (d *Bill) Counterparty() string              { return d.SupplierName }
func (d *Bill) SetCounterparty(n string)          { d.SupplierName = n }

// NewDocument returns an empty model for kind, or nil for non-document kinds.
func NewDocument(kind workflow.Kind) BillingDocument {
	switch kind {
	case workflow.KindSalesOrder:
		return &SalesOrder{}
	case workflow.KindPurchaseOrder:
		return &PurchaseOrder{}
	case workflow.KindInvoice:
		return &Invoice{}
	case workflow.KindBill:
		return &Bill{}
	default:
		return nil
	}
}

// DocumentRefOf returns the queue reference of doc.
func DocumentRefOf(doc BillingDocument) workflow.DocumentRef {
	return workflow.DocumentRef{Kind: doc.Kind(), ID: doc.Base().ID}
}

// DescribeDocument renders the queue description, e.g. "Sales Order: SO-2025-001 - Tech Corp".
func DescribeDocument(doc BillingDocument) string {
	return doc.Kind().Label() + ": " + doc.Base().ReferenceNo + " - " + doc.Counterparty()
}

// ProjectOf returns the preloaded project of doc, if any.
func ProjectOf(doc BillingDocument) *Project {
	switch d := doc.(type) {
	case *SalesOrder:
		return d.Project
	case *PurchaseOrder:
		return d.Project
	case *Invoice:
		return d.Project
	case *Bill:
		return d.Project
	}
	return nil
}

// DetachRelations drops preloaded associations so a save writes only the
// foreign key columns.
func DetachRelations(doc BillingDocument) {
	switch d := doc.(type) {
	case *SalesOrder:
		d.Project = nil
	case *PurchaseOrder:
		d.Project = nil
	case *Invoice:
		d.Project, d.SalesOrder = nil, nil
	case *Bill:
		d.Project, d.PurchaseOrder = nil, nil
	}
}
