package billing

import (
	"context"
	"fmt"
	"time"

	"hercules_backend/internal/config"
	"hercules_backend/internal/models"
	billingrepo "hercules_backend/internal/repositories/billing"

	"gorm.io/gorm"
)

// In-memory Store with the same CAS and dedup semantics as the gorm
// repository. The *gorm.DB handle is ignored.
type fakeStore struct {
	records  map[string]*models.BillingRecord // by record ID
	byUser   map[string]string                // userID -> record ID
	byRef    map[string]string                // gateway customer ref -> record ID
	docs     []*models.SalesDocument
	counters map[int]int64
	events   map[string]bool
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  map[string]*models.BillingRecord{},
		byUser:   map[string]string{},
		byRef:    map[string]string{},
		counters: map[int]int64{},
		events:   map[string]bool{},
	}
}

func (s *fakeStore) put(rec *models.BillingRecord) *models.BillingRecord {
	if rec.ID == "" {
		s.nextID++
		rec.ID = fmt.Sprintf("rec-%d", s.nextID)
	}
	cp := *rec
	s.records[cp.ID] = &cp
	s.byUser[cp.UserID] = cp.ID
	if cp.GatewayCustomerID != "" {
		s.byRef[cp.GatewayCustomerID] = cp.ID
	}
	return &cp
}

func (s *fakeStore) GetRecord(_ *gorm.DB, userID string) (*models.BillingRecord, error) {
	id, ok := s.byUser[userID]
	if !ok {
		return nil, billingrepo.ErrRecordNotFound
	}
	cp := *s.records[id]
	return &cp, nil
}

func (s *fakeStore) GetRecordByCustomerRef(_ *gorm.DB, ref string) (*models.BillingRecord, error) {
	id, ok := s.byRef[ref]
	if !ok {
		return nil, billingrepo.ErrRecordNotFound
	}
	cp := *s.records[id]
	return &cp, nil
}

func (s *fakeStore) EnsureRecord(db *gorm.DB, userID string, trialEndsAt *time.Time) (*models.BillingRecord, error) {
	if rec, err := s.GetRecord(db, userID); err == nil {
		return rec, nil
	}
	return s.put(&models.BillingRecord{UserID: userID, TrialEndsAt: trialEndsAt}), nil
}

func (s *fakeStore) SaveCustomerRef(_ *gorm.DB, rec *models.BillingRecord, ref string) error {
	stored := s.records[rec.ID]
	if stored.GatewayCustomerID == "" {
		stored.GatewayCustomerID = ref
		s.byRef[ref] = stored.ID
		rec.GatewayCustomerID = ref
	}
	return nil
}

func (s *fakeStore) ApplyTransition(_ *gorm.DB, rec *models.BillingRecord, expectedVersion int, doc *models.SalesDocument) (string, error) {
	stored := s.records[rec.ID]
	if stored.Version != expectedVersion {
		return "", billingrepo.ErrVersionConflict
	}
	next := *rec
	next.Version = expectedVersion + 1
	*stored = next
	rec.Version = next.Version

	if doc == nil {
		return "", nil
	}
	inserted, _ := s.insertDoc(doc)
	return inserted.InvoiceNumber, nil
}

func (s *fakeStore) RecordDocument(_ *gorm.DB, doc *models.SalesDocument) (*models.SalesDocument, bool, error) {
	inserted, duplicate := s.insertDoc(doc)
	return inserted, duplicate, nil
}

func (s *fakeStore) insertDoc(doc *models.SalesDocument) (*models.SalesDocument, bool) {
	for _, existing := range s.docs {
		if existing.ExternalReference == doc.ExternalReference {
			return existing, true
		}
	}
	if doc.DocumentDate.IsZero() {
		doc.DocumentDate = time.Now().UTC()
	}
	year := doc.DocumentDate.Year()
	s.counters[year]++
	cp := *doc
	cp.InvoiceNumber = billingrepo.FormatInvoiceNumber(year, s.counters[year])
	s.docs = append(s.docs, &cp)
	return &cp, false
}

func (s *fakeStore) LatestInvoiceForUser(_ *gorm.DB, userID string) (*models.SalesDocument, error) {
	for i := len(s.docs) - 1; i >= 0; i-- {
		d := s.docs[i]
		if d.DocumentType == models.DocumentTypeInvoice && d.CustomerID != nil && *d.CustomerID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, billingrepo.ErrRecordNotFound
}

func (s *fakeStore) MarkAccountingMirrored(_ *gorm.DB, invoiceNumber string, orderID int64) error {
	for _, d := range s.docs {
		if d.InvoiceNumber == invoiceNumber {
			d.AccountingOrderID = &orderID
		}
	}
	return nil
}

func (s *fakeStore) DueUserIDs(_ *gorm.DB, now time.Time, limit int) ([]string, error) {
	var ids []string
	for _, rec := range s.records {
		if rec.ChargeDue(now) {
			ids = append(ids, rec.UserID)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (s *fakeStore) InsertWebhookEvent(_ *gorm.DB, ev *models.WebhookEvent) (bool, error) {
	if s.events[ev.EventID] {
		return false, nil
	}
	s.events[ev.EventID] = true
	return true, nil
}

type fakeGateway struct {
	result *ChargeAttempt
	err    error
	// chargeHook runs before the scripted result is returned, mimicking
	// work another trigger does while the charge is in flight.
	chargeHook func()

	customers int
	charges   []string // idempotency keys seen
}

func (g *fakeGateway) EnsureCustomer(_ context.Context, user *models.User) (string, error) {
	g.customers++
	return "cus_" + user.ID, nil
}

func (g *fakeGateway) Charge(_ context.Context, _, idempotencyKey string, _ int64, _, _ string) (*ChargeAttempt, error) {
	g.charges = append(g.charges, idempotencyKey)
	if g.chargeHook != nil {
		g.chargeHook()
	}
	if g.err != nil {
		return nil, g.err
	}
	cp := *g.result
	return &cp, nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func (u *fakeUsers) GetByID(_ *gorm.DB, id string) (*models.User, error) {
	cp := *u.users[id]
	return &cp, nil
}

type fakeNotifier struct {
	failed  int
	blocked int
	receipt int
}

func (n *fakeNotifier) PaymentFailed(*models.User, time.Time) error { n.failed++; return nil }
func (n *fakeNotifier) AccountBlocked(*models.User) error           { n.blocked++; return nil }
func (n *fakeNotifier) Receipt(*models.User, string, int64, string) error {
	n.receipt++
	return nil
}

type fakeMirror struct {
	mirrored []string
}

func (m *fakeMirror) MirrorDocument(_ context.Context, doc *models.SalesDocument) (int64, error) {
	m.mirrored = append(m.mirrored, doc.InvoiceNumber)
	return int64(1000 + len(m.mirrored)), nil
}

// testFixture wires a lifecycle service over the fakes with a frozen clock.
type testFixture struct {
	store    *fakeStore
	gateway  *fakeGateway
	notifier *fakeNotifier
	mirror   *fakeMirror
	users    *fakeUsers
	svc      *LifecycleService
}

func newFixture(now time.Time) *testFixture {
	cfg := &config.Config{}
	cfg.Billing.PriceMinor = 29900
	cfg.Billing.Currency = "NOK"
	cfg.Billing.TrialDays = 14
	cfg.Billing.RetryDays = 7
	cfg.Billing.SellerName = "Hercules"
	cfg.Billing.SellerOrgNumber = "999888777"

	f := &testFixture{
		store:    newFakeStore(),
		gateway:  &fakeGateway{},
		notifier: &fakeNotifier{},
		mirror:   &fakeMirror{},
		users: &fakeUsers{users: map[string]*models.User{
			"user-1": {BaseModel: models.BaseModel{ID: "user-1"}, Email: "ola@example.com", Name: "Ola Nordmann"},
		}},
	}
	f.svc = NewLifecycleService(f.store, f.users, f.gateway, f.notifier, f.mirror, cfg)
	f.svc.now = func() time.Time { return now }
	return f
}

func (f *testFixture) setNow(now time.Time) {
	f.svc.now = func() time.Time { return now }
}

func (f *testFixture) seedRecord(rec *models.BillingRecord) *models.BillingRecord {
	if rec.UserID == "" {
		rec.UserID = "user-1"
	}
	return f.store.put(rec)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}
