package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/plantnet/plantnet-server/app/models"
)

// Memory keeps every collection in process. Each method holds one lock for
// its whole read-modify-write, which gives the same single-document
// atomicity the Mongo implementation relies on.
type Memory struct {
	mu       sync.Mutex
	plants   map[primitive.ObjectID]models.Plant
	orders   map[primitive.ObjectID]models.Order
	payments map[primitive.ObjectID]models.Payment
	users    map[string]models.User
}

func NewMemory() *Memory {
	return &Memory{
		plants:   map[primitive.ObjectID]models.Plant{},
		orders:   map[primitive.ObjectID]models.Order{},
		payments: map[primitive.ObjectID]models.Payment{},
		users:    map[string]models.User{},
	}
}

// NewMemoryStore builds a Store whose repositories share one Memory.
func NewMemoryStore() (*Store, *Memory) {
	m := NewMemory()
	return &Store{
		Plants:   memoryPlants{m},
		Orders:   memoryOrders{m},
		Payments: memoryPayments{m},
		Users:    memoryUsers{m},
	}, m
}

// ─── Plants ──────────────────────────────────────────────────────────────────

type memoryPlants struct{ m *Memory }

func (r memoryPlants) Create(_ context.Context, p *models.Plant) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.m.plants[p.ID] = *p
	return nil
}

func (r memoryPlants) Find(_ context.Context, id string) (*models.Plant, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.plants[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r memoryPlants) List(_ context.Context, f PlantFilter) ([]models.Plant, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Plant{}
	for _, p := range r.m.plants {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.SellerEmail != "" && p.Seller.Email != f.SellerEmail {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() > out[j].ID.Hex() })
	return out, nil
}

func (r memoryPlants) Update(_ context.Context, id string, u models.PlantUpdate, upsert bool) (*models.Plant, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.plants[oid]
	if !ok {
		if !upsert {
			return nil, ErrNotFound
		}
		p = models.Plant{ID: oid, CreatedAt: time.Now().UTC()}
	}
	applyPlantUpdate(&p, u)
	r.m.plants[oid] = p
	return &p, nil
}

func applyPlantUpdate(p *models.Plant, u models.PlantUpdate) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Quantity != nil {
		p.Quantity = *u.Quantity
	}
	if u.Image != nil {
		p.Image = *u.Image
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Seller != nil {
		p.Seller = *u.Seller
	}
}

func (r memoryPlants) Delete(_ context.Context, id string) (int64, error) {
	oid, err := objectID(id)
	if err != nil {
		return 0, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.plants[oid]; !ok {
		return 0, nil
	}
	delete(r.m.plants, oid)
	return 1, nil
}

func (r memoryPlants) Adjust(_ context.Context, id string, delta int) (int, error) {
	oid, err := objectID(id)
	if err != nil {
		return 0, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.plants[oid]
	if !ok {
		return 0, ErrNotFound
	}
	before := p.Quantity
	p.Quantity = max(0, before+delta)
	r.m.plants[oid] = p
	return before, nil
}

func (r memoryPlants) Count(context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return int64(len(r.m.plants)), nil
}

// ─── Orders ──────────────────────────────────────────────────────────────────

type memoryOrders struct{ m *Memory }

func (r memoryOrders) InsertMany(_ context.Context, orders []*models.Order) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, o := range orders {
		if o.ID.IsZero() {
			o.ID = primitive.NewObjectID()
		}
		r.m.orders[o.ID] = *o
	}
	return nil
}

func (r memoryOrders) Find(_ context.Context, id string) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.orders[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r memoryOrders) FindByTransaction(_ context.Context, transactionID string) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.TransactionID == transactionID }), nil
}

func (r memoryOrders) ClaimTransaction(_ context.Context, id primitive.ObjectID, from, to string, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.orders[id]
	if !ok || o.TransactionID != from {
		return false, nil
	}
	o.TransactionID = to
	o.ConfirmedAt = &at
	r.m.orders[id] = o
	return true, nil
}

func (r memoryOrders) ReleaseTransaction(_ context.Context, id primitive.ObjectID, from, to string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.orders[id]
	if !ok || o.TransactionID != from {
		return false, nil
	}
	o.TransactionID = to
	o.ConfirmedAt = nil
	r.m.orders[id] = o
	return true, nil
}

func (r memoryOrders) SetStockTaken(_ context.Context, id primitive.ObjectID, n int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.StockTaken = n
	r.m.orders[id] = o
	return nil
}

func (r memoryOrders) UpdateStatus(_ context.Context, id, status string) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.orders[oid]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	r.m.orders[oid] = o
	return &o, nil
}

func (r memoryOrders) DeleteUnlessStatus(_ context.Context, id, status string) (int64, error) {
	oid, err := objectID(id)
	if err != nil {
		return 0, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.orders[oid]
	if !ok || o.Status == status {
		return 0, nil
	}
	delete(r.m.orders, oid)
	return 1, nil
}

func (r memoryOrders) ListByCustomer(_ context.Context, email string) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.Customer == email }), nil
}

func (r memoryOrders) ListBySeller(_ context.Context, email string) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.Seller == email }), nil
}

func (r memoryOrders) All(context.Context) ([]models.Order, error) {
	return r.filter(func(models.Order) bool { return true }), nil
}

func (r memoryOrders) filter(keep func(models.Order) bool) []models.Order {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Order{}
	for _, o := range r.m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r memoryOrders) Summary(_ context.Context, revenueStatus string) (int64, decimal.Decimal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	revenue := decimal.Zero
	for _, o := range r.m.orders {
		if o.Status == revenueStatus {
			revenue = revenue.Add(o.LineTotal())
		}
	}
	return int64(len(r.m.orders)), revenue, nil
}

func (r memoryOrders) CountStale(_ context.Context, cutoff time.Time) (int64, error) {
	stale := r.filter(func(o models.Order) bool {
		return o.Status == models.StatusPending && o.ConfirmedAt == nil && o.CreatedAt.Before(cutoff)
	})
	return int64(len(stale)), nil
}

// ─── Payments ────────────────────────────────────────────────────────────────

type memoryPayments struct{ m *Memory }

func (r memoryPayments) Record(_ context.Context, p *models.Payment) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.payments {
		if existing.PaymentIntentID == p.PaymentIntentID {
			return false, nil
		}
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.m.payments[p.ID] = *p
	return true, nil
}

func (r memoryPayments) FindByIntent(_ context.Context, paymentIntentID string) (*models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.payments {
		if p.PaymentIntentID == paymentIntentID {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryPayments) Find(_ context.Context, id string) (*models.Payment, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.payments[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r memoryPayments) ListByCustomer(_ context.Context, email string) ([]models.Payment, error) {
	return r.filter(func(p models.Payment) bool { return p.Customer == email }), nil
}

func (r memoryPayments) All(context.Context) ([]models.Payment, error) {
	return r.filter(func(models.Payment) bool { return true }), nil
}

func (r memoryPayments) filter(keep func(models.Payment) bool) []models.Payment {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Payment{}
	for _, p := range r.m.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ─── Users ───────────────────────────────────────────────────────────────────

type memoryUsers struct{ m *Memory }

func (r memoryUsers) Upsert(_ context.Context, email string, p models.UserProfile) (*models.User, error) {
	email = normalizeEmail(email)
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[email]
	if !ok {
		u = models.User{ID: primitive.NewObjectID(), Email: email, Role: models.RoleCustomer}
	}
	if p.Name != "" {
		u.Name = p.Name
	}
	if p.Image != "" {
		u.Image = p.Image
	}
	if p.Address != "" {
		u.Address = p.Address
	}
	if p.Status != "" {
		u.Status = p.Status
	}
	u.Timestamp = time.Now().UTC()
	r.m.users[email] = u
	return &u, nil
}

func (r memoryUsers) UpdateRole(_ context.Context, email, role string) (*models.User, error) {
	email = normalizeEmail(email)
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	u.Role = role
	u.Status = ""
	u.Timestamp = time.Now().UTC()
	r.m.users[email] = u
	return &u, nil
}

func (r memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memoryUsers) All(context.Context) ([]models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Email, out[j].Email) < 0 })
	return out, nil
}

func (r memoryUsers) Count(context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return int64(len(r.m.users)), nil
}

func (r memoryUsers) Role(_ context.Context, email string) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.users[normalizeEmail(email)].Role, nil
}
