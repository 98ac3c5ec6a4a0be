package handlers

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"atelier_back_end/internal/mail"
	"atelier_back_end/internal/models"
	"atelier_back_end/internal/payment"
	"atelier_back_end/internal/store"

	"github.com/shopspring/decimal"
)

// Dépôts en mémoire : chaque lecture retourne une copie, comme un aller-retour Mongo.

type memProducts struct {
	mu    sync.Mutex
	items map[string]models.Product
	order []string
}

func newMemProducts(products ...models.Product) *memProducts {
	m := &memProducts{items: map[string]models.Product{}}
	for _, p := range products {
		m.items[p.ID] = p
		m.order = append(m.order, p.ID)
	}
	return m
}

func (m *memProducts) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Stock
}

func (m *memProducts) List(_ context.Context, f store.ProductFilter) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, id := range m.order {
		p, ok := m.items[id]
		if !ok || (f.ActiveOnly && !p.Active) || (f.Category != "" && p.Category != f.Category) {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memProducts) Get(_ context.Context, idOrSlug string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ID == idOrSlug || p.Slug == idOrSlug {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memProducts) GetMany(_ context.Context, ids []string) (map[string]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]models.Product{}
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memProducts) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = fmt.Sprintf("prod-%d", len(m.items)+1)
	}
	if p.Slug == "" {
		p.Slug = models.Slugify(p.Name)
	}
	for _, other := range m.items {
		if other.Slug == p.Slug {
			return store.ErrConflict
		}
	}
	m.items[p.ID] = *p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memProducts) Update(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; !ok {
		return store.ErrNotFound
	}
	m.items[p.ID] = *p
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memProducts) AdjustStock(_ context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return store.ErrInsufficientStock
	}
	p.Stock += delta
	m.items[id] = p
	return nil
}

func (m *memProducts) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}

func (m *memProducts) CountLowStock(_ context.Context, threshold int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.items {
		if p.Active && p.Stock < threshold {
			n++
		}
	}
	return n, nil
}

type memOrders struct {
	mu    sync.Mutex
	items map[string]models.Order
	seq   int
}

func newMemOrders() *memOrders {
	return &memOrders{items: map[string]models.Order{}}
}

func (m *memOrders) put(o models.Order) {
	m.mu.Lock()
	m.items[o.ID] = o
	m.mu.Unlock()
}

func (m *memOrders) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if o.ID == "" {
		o.ID = fmt.Sprintf("ord-%d", m.seq)
	}
	if o.Status == "" {
		o.Status = models.OrderPending
	}
	m.items[o.ID] = *o
	return nil
}

func (m *memOrders) Get(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (m *memOrders) List(_ context.Context, status models.OrderStatus, limit int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.items {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b models.Order) int { return strings.Compare(a.ID, b.ID) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, from, to models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return store.ErrNotFound
	}
	if o.Status != from {
		return store.ErrConflict
	}
	o.Status = to
	m.items[id] = o
	return nil
}

func (m *memOrders) AttachPayment(_ context.Context, id, paymentID, gatewayOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return store.ErrNotFound
	}
	o.PaymentID, o.GatewayOrderID = paymentID, gatewayOrderID
	m.items[id] = o
	return nil
}

func (m *memOrders) Stats(context.Context) (*store.OrderStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &store.OrderStats{Revenue: decimal.Zero, ByStatus: map[models.OrderStatus]int64{}}
	for _, o := range m.items {
		stats.Orders++
		stats.ByStatus[o.Status]++
		if o.Status.Settled() {
			stats.Revenue = stats.Revenue.Add(o.Total)
		}
	}
	return stats, nil
}

type memPayments struct {
	mu        sync.Mutex
	items     map[string]models.Payment
	seq       int
	createErr error
}

func newMemPayments() *memPayments {
	return &memPayments{items: map[string]models.Payment{}}
}

func (m *memPayments) Create(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if p.ID == "" {
		p.ID = fmt.Sprintf("pay-%d", m.seq)
	}
	if p.Status == "" {
		p.Status = models.PaymentCreated
	}
	m.items[p.ID] = *p
	return nil
}

func (m *memPayments) Get(_ context.Context, id string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memPayments) GetByGatewayOrder(_ context.Context, gatewayOrderID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.GatewayOrderID == gatewayOrderID {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memPayments) Update(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; !ok {
		return store.ErrNotFound
	}
	m.items[p.ID] = *p
	return nil
}

func (m *memPayments) List(context.Context, int64) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Payment{}
	for _, p := range m.items {
		out = append(out, p)
	}
	return out, nil
}

type memAdmins struct {
	mu    sync.Mutex
	items map[string]models.AdminProfile
}

func newMemAdmins(admins ...models.AdminProfile) *memAdmins {
	m := &memAdmins{items: map[string]models.AdminProfile{}}
	for _, a := range admins {
		m.items[a.ID] = a
	}
	return m
}

func (m *memAdmins) Get(_ context.Context, id string) (*models.AdminProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (m *memAdmins) GetByEmail(_ context.Context, email string) (*models.AdminProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memAdmins) Create(_ context.Context, a *models.AdminProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[a.ID] = *a
	return nil
}

func (m *memAdmins) Upsert(_ context.Context, a *models.AdminProfile) (*models.AdminProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.items {
		if existing.Email == a.Email {
			existing.Name = a.Name
			m.items[id] = existing
			return &existing, nil
		}
	}
	a.ID = fmt.Sprintf("adm-%d", len(m.items)+1)
	a.Role = models.RoleAdmin
	m.items[a.ID] = *a
	return a, nil
}

func (m *memAdmins) TouchLogin(context.Context, string) error { return nil }

func (m *memAdmins) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}

type memTestimonials struct {
	mu    sync.Mutex
	items []models.Testimonial
}

func (m *memTestimonials) List(_ context.Context, approvedOnly bool) ([]models.Testimonial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Testimonial{}
	for _, t := range m.items {
		if !approvedOnly || t.Approved {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTestimonials) Create(_ context.Context, t *models.Testimonial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = fmt.Sprintf("tst-%d", len(m.items)+1)
	m.items = append(m.items, *t)
	return nil
}

func (m *memTestimonials) Approve(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Approved = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memTestimonials) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = slices.Delete(m.items, i, i+1)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memTestimonials) CountPending(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.items {
		if !t.Approved {
			n++
		}
	}
	return n, nil
}

// fakeGateway simule le prestataire de paiement
type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	verifyErr error
	refundErr error
	event     *payment.WebhookEvent
	parseErr  error
	requests  []payment.OrderRequest
	refunds   []string
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (*payment.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.requests = append(g.requests, req)
	return &payment.GatewayOrder{
		ID:       "gw_" + req.OrderID,
		Amount:   payment.ToMinorUnits(req.Amount),
		Currency: req.Currency,
		KeyID:    "key_test",
	}, nil
}

func (g *fakeGateway) VerifyPayment(context.Context, payment.Confirmation) error {
	return g.verifyErr
}

func (g *fakeGateway) ParseWebhook([]byte, http.Header) (*payment.WebhookEvent, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	return g.event, nil
}

func (g *fakeGateway) Refund(_ context.Context, gatewayPaymentID string, _ decimal.Decimal) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return "", g.refundErr
	}
	g.refunds = append(g.refunds, gatewayPaymentID)
	return "rfnd_" + gatewayPaymentID, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) Sent() []mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

type fakeRenderer struct{}

func (fakeRenderer) Render(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.4 test"), nil
}
