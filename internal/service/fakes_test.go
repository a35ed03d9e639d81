package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"oneflow/internal/model"
	"oneflow/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var errStoreDown = errors.New("store unavailable")

// memStore backs the fake repositories. Every write bumps the clock so
// created_at values are distinct unless a test pins them.
type memStore struct {
	clock    time.Time
	nextID   uint
	users    map[uint]*model.User
	projects map[uint]*model.Project
	expenses map[uint]*model.Expense
	docs     map[workflow.Kind]map[uint]model.BillingDocument
	audits   []model.AuditLog

	failExpenseCreate bool
	failList          bool
}

func newMemStore() *memStore {
	docs := make(map[workflow.Kind]map[uint]model.BillingDocument)
	for _, k := range workflow.DocumentKinds {
		docs[k] = make(map[uint]model.BillingDocument)
	}
	return &memStore{
		clock:    time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		users:    make(map[uint]*model.User),
		projects: make(map[uint]*model.Project),
		expenses: make(map[uint]*model.Expense),
		docs:     docs,
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) addProject(title string) *model.Project {
	p := &model.Project{ID: m.id(), Title: title, CreatedAt: m.tick()}
	m.projects[p.ID] = p
	return p
}

func (m *memStore) addExpense(e model.Expense) *model.Expense {
	e.ID = m.id()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.tick()
	}
	if e.Type == "" {
		e.Type = string(workflow.KindExpense)
	}
	m.expenses[e.ID] = &e
	return &e
}

func (m *memStore) addDocument(doc model.BillingDocument) model.BillingDocument {
	base := doc.Base()
	base.ID = m.id()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = m.tick()
	}
	if base.Status == "" {
		base.Status = workflow.StatusDraft
	}
	m.docs[doc.Kind()][base.ID] = doc
	return doc
}

func (m *memStore) countExpenses() int { return len(m.expenses) }

func cloneDocument(doc model.BillingDocument) model.BillingDocument {
	switch d := doc.(type) {
	case *model.SalesOrder:
		c := *d
		return &c
	case *model.PurchaseOrder:
		c := *d
		return &c
	case *model.Invoice:
		c := *d
		return &c
	case *model.Bill:
		c := *d
		return &c
	}
	return nil
}

func cloneRows[T any](rows map[uint]*T) map[uint]*T {
	out := make(map[uint]*T, len(rows))
	for id, row := range rows {
		c := *row
		out[id] = &c
	}
	return out
}

// clone deep-copies every table so a failed transaction can be undone.
func (m *memStore) clone() *memStore {
	c := *m
	c.users = cloneRows(m.users)
	c.projects = cloneRows(m.projects)
	c.expenses = cloneRows(m.expenses)
	c.docs = make(map[workflow.Kind]map[uint]model.BillingDocument, len(m.docs))
	for kind, rows := range m.docs {
		c.docs[kind] = make(map[uint]model.BillingDocument, len(rows))
		for id, d := range rows {
			c.docs[kind][id] = cloneDocument(d)
		}
	}
	c.audits = slices.Clone(m.audits)
	return &c
}

// --- transaction manager ---

// stagingTx restores the store when fn fails, like a rolled back transaction.
type stagingTx struct{ m *memStore }

func (tx stagingTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	saved := tx.m.clone()
	if err := fn(ctx); err != nil {
		*tx.m = *saved
		return err
	}
	return nil
}

// --- users ---

type fakeUserRepo struct{ m *memStore }

func (r fakeUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.m.users {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = r.m.id()
	u.CreatedAt = r.m.tick()
	c := *u
	r.m.users[u.ID] = &c
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	u, ok := r.m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *u
	return &c, nil
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range r.m.users {
		all = append(all, *u)
	}
	slices.SortFunc(all, func(a, b model.User) int { return int(a.ID) - int(b.ID) })
	return page(all, offset, limit), int64(len(all)), nil
}

func (r fakeUserRepo) UpdateRole(_ context.Context, id uint, role string) error {
	u, ok := r.m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Role = role
	return nil
}

func (r fakeUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	var n int64
	for _, u := range r.m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// --- projects ---

type fakeProjectRepo struct{ m *memStore }

func (r fakeProjectRepo) Create(_ context.Context, p *model.Project) error {
	p.ID = r.m.id()
	p.CreatedAt = r.m.tick()
	c := *p
	r.m.projects[p.ID] = &c
	return nil
}

func (r fakeProjectRepo) FindByID(_ context.Context, id uint) (*model.Project, error) {
	p, ok := r.m.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

func (r fakeProjectRepo) List(_ context.Context, offset, limit int) ([]model.Project, int64, error) {
	var all []model.Project
	for _, p := range r.m.projects {
		all = append(all, *p)
	}
	slices.SortFunc(all, func(a, b model.Project) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return page(all, offset, limit), int64(len(all)), nil
}

// --- audit ---

type fakeAuditRepo struct{ m *memStore }

func (r fakeAuditRepo) Log(_ context.Context, e *model.AuditLog) error {
	e.ID = uuid.New()
	e.CreatedAt = r.m.tick()
	r.m.audits = append(r.m.audits, *e)
	return nil
}

func (r fakeAuditRepo) List(_ context.Context, offset, limit int) ([]model.AuditLog, int64, error) {
	all := slices.Clone(r.m.audits)
	slices.Reverse(all)
	return page(all, offset, limit), int64(len(all)), nil
}

// --- expenses ---

type fakeExpenseRepo struct{ m *memStore }

func (r fakeExpenseRepo) Create(_ context.Context, e *model.Expense) error {
	if r.m.failExpenseCreate {
		return errStoreDown
	}
	e.ID = r.m.id()
	e.CreatedAt = r.m.tick()
	c := *e
	c.User, c.Project = nil, nil
	r.m.expenses[e.ID] = &c
	return nil
}

func (r fakeExpenseRepo) FindByID(_ context.Context, id uint) (*model.Expense, error) {
	e, ok := r.m.expenses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *e
	return &c, nil
}

func (r fakeExpenseRepo) ListAll(_ context.Context) ([]model.Expense, error) {
	if r.m.failList {
		return nil, errStoreDown
	}
	return r.filter(func(*model.Expense) bool { return true }), nil
}

func (r fakeExpenseRepo) ListByUser(_ context.Context, userID uint) ([]model.Expense, error) {
	return r.filter(func(e *model.Expense) bool { return e.UserID == userID }), nil
}

func (r fakeExpenseRepo) ListByStatus(_ context.Context, status string) ([]model.Expense, error) {
	return r.filter(func(e *model.Expense) bool { return e.Status == status }), nil
}

func (r fakeExpenseRepo) ListByProject(_ context.Context, projectID uint) ([]model.Expense, error) {
	return r.filter(func(e *model.Expense) bool { return e.ProjectID == projectID }), nil
}

func (r fakeExpenseRepo) UpdateDecision(_ context.Context, id uint, status string, approvedByPM bool) error {
	e, ok := r.m.expenses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Status = status
	e.ApprovedByPM = approvedByPM
	return nil
}

func (r fakeExpenseRepo) DeleteMirrors(_ context.Context, docType string, referenceID uint) error {
	for id, e := range r.m.expenses {
		if e.Type == docType && e.ReferenceID != nil && *e.ReferenceID == referenceID {
			delete(r.m.expenses, id)
		}
	}
	return nil
}

func (r fakeExpenseRepo) filter(keep func(*model.Expense) bool) []model.Expense {
	var out []model.Expense
	for _, e := range r.m.expenses {
		if keep(e) {
			out = append(out, *e)
		}
	}
	slices.SortFunc(out, func(a, b model.Expense) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})
	return out
}

// --- billing documents ---

type fakeBillingRepo struct{ m *memStore }

func (r fakeBillingRepo) Create(_ context.Context, doc model.BillingDocument) error {
	base := doc.Base()
	for _, existing := range r.m.docs[doc.Kind()] {
		if existing.Base().ReferenceNo == base.ReferenceNo {
			return gorm.ErrDuplicatedKey
		}
	}
	base.ID = r.m.id()
	base.CreatedAt = r.m.tick()
	base.UpdatedAt = base.CreatedAt
	r.m.docs[doc.Kind()][base.ID] = cloneDocument(doc)
	return nil
}

func (r fakeBillingRepo) FindByID(_ context.Context, kind workflow.Kind, id uint) (model.BillingDocument, error) {
	doc, ok := r.m.docs[kind][id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneDocument(doc), nil
}

func (r fakeBillingRepo) List(ctx context.Context, kind workflow.Kind, offset, limit int) ([]model.BillingDocument, int64, error) {
	all, err := r.ListAll(ctx, kind)
	if err != nil {
		return nil, 0, err
	}
	return page(all, offset, limit), int64(len(all)), nil
}

func (r fakeBillingRepo) ListAll(_ context.Context, kind workflow.Kind) ([]model.BillingDocument, error) {
	if r.m.failList {
		return nil, errStoreDown
	}
	return r.filter(kind, func(model.BillingDocument) bool { return true }), nil
}

func (r fakeBillingRepo) ListByProject(_ context.Context, kind workflow.Kind, projectID uint) ([]model.BillingDocument, error) {
	return r.filter(kind, func(d model.BillingDocument) bool {
		p := d.Base().ProjectID
		return p != nil && *p == projectID
	}), nil
}

func (r fakeBillingRepo) Save(_ context.Context, doc model.BillingDocument) error {
	for id, existing := range r.m.docs[doc.Kind()] {
		if id != doc.Base().ID && existing.Base().ReferenceNo == doc.Base().ReferenceNo {
			return gorm.ErrDuplicatedKey
		}
	}
	doc.Base().UpdatedAt = r.m.tick()
	r.m.docs[doc.Kind()][doc.Base().ID] = cloneDocument(doc)
	return nil
}

func (r fakeBillingRepo) UpdateStatus(_ context.Context, kind workflow.Kind, id uint, status string) error {
	doc, ok := r.m.docs[kind][id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	doc.Base().Status = status
	return nil
}

func (r fakeBillingRepo) Delete(_ context.Context, kind workflow.Kind, id uint) error {
	if _, ok := r.m.docs[kind][id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.m.docs[kind], id)
	return nil
}

func (r fakeBillingRepo) filter(kind workflow.Kind, keep func(model.BillingDocument) bool) []model.BillingDocument {
	var out []model.BillingDocument
	for _, d := range r.m.docs[kind] {
		if keep(d) {
			out = append(out, cloneDocument(d))
		}
	}
	slices.SortFunc(out, func(a, b model.BillingDocument) int {
		if c := b.Base().CreatedAt.Compare(a.Base().CreatedAt); c != 0 {
			return c
		}
		return int(b.Base().ID) - int(a.Base().ID)
	})
	return out
}

// --- analytics ---

type fakeAnalyticsRepo struct {
	m     *memStore
	since time.Time
}

type statusAmount struct {
	status string
	amount decimal.Decimal
}

func (r *fakeAnalyticsRepo) amounts(kind workflow.Kind) []statusAmount {
	var out []statusAmount
	if kind == workflow.KindExpense {
		for _, e := range r.m.expenses {
			if !e.IsMirror() {
				out = append(out, statusAmount{e.Status, e.Amount})
			}
		}
		return out
	}
	for _, d := range r.m.docs[kind] {
		out = append(out, statusAmount{d.Base().Status, d.Base().TotalAmount})
	}
	return out
}

func (r *fakeAnalyticsRepo) StatusBreakdown(_ context.Context, kind workflow.Kind) ([]model.StatusBreakdown, error) {
	byStatus := map[string]*model.StatusBreakdown{}
	for _, a := range r.amounts(kind) {
		b, ok := byStatus[a.status]
		if !ok {
			b = &model.StatusBreakdown{Status: a.status}
			byStatus[a.status] = b
		}
		b.Count++
		b.Total = b.Total.Add(a.amount)
	}
	var out []model.StatusBreakdown
	for _, b := range byStatus {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b model.StatusBreakdown) int { return strings.Compare(a.Status, b.Status) })
	return out, nil
}

func (r *fakeAnalyticsRepo) MonthlyTotals(_ context.Context, kind workflow.Kind, since time.Time) ([]model.MonthlyAmount, error) {
	r.since = since
	return nil, nil
}

func (r *fakeAnalyticsRepo) Total(_ context.Context, kind workflow.Kind) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, a := range r.amounts(kind) {
		sum = sum.Add(a.amount)
	}
	return sum, nil
}

func (r *fakeAnalyticsRepo) CountByStatus(_ context.Context, kind workflow.Kind, status string) (int64, error) {
	var n int64
	for _, a := range r.amounts(kind) {
		if a.status == status {
			n++
		}
	}
	return n, nil
}

// --- notifier ---

type recordedEvent struct {
	name    string
	payload interface{}
}

type recordingNotifier struct{ events []recordedEvent }

func (n *recordingNotifier) Publish(event string, payload interface{}) {
	n.events = append(n.events, recordedEvent{event, payload})
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
