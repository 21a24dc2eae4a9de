package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plantnet/plantnet-server/app/events"
	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/pkg/checkout"
	"github.com/plantnet/plantnet-server/pkg/collection"
	"github.com/plantnet/plantnet-server/pkg/logger"
	"github.com/plantnet/plantnet-server/pkg/metrics"
)

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 1000

// CartItem is one line of the client's cart. Price and Seller are echoed
// by the storefront but the catalogue's values are the ones charged and
// recorded.
type CartItem struct {
	PlantID  string          `json:"plantId" validate:"required,objectid"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"required,gte=1,lte=1000"`
	Seller   string          `json:"seller"`
}

type Customer struct {
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type CheckoutRequest struct {
	Items    []CartItem `json:"items" validate:"required,dive"`
	Customer Customer   `json:"customer" validate:"dive"`
}

type CheckoutResult struct {
	URL       string          `json:"url"`
	SessionID string          `json:"sessionId"`
	Total     decimal.Decimal `json:"total"`
}

// Confirmation is the outcome of Confirm. Duplicate is set when the
// session had already been reconciled by an earlier call.
type Confirmation struct {
	TransactionID string   `json:"transactionId"`
	SessionID     string   `json:"sessionId"`
	OrderIDs      []string `json:"orderIds"`
	Duplicate     bool     `json:"duplicate"`
}

type CheckoutOptions struct {
	// DomainURL is the storefront origin the gateway redirects back to.
	DomainURL string
	Currency  string
}

// CheckoutService creates checkout sessions and reconciles them once paid.
type CheckoutService struct {
	orders    repositories.OrderRepository
	plants    repositories.PlantRepository
	payments  repositories.PaymentRepository
	gateway   checkout.Gateway
	inventory *InventoryService
	events    events.Publisher
	opts      CheckoutOptions

	now func() time.Time
}

func NewCheckoutService(store *repositories.Store, gw checkout.Gateway, inv *InventoryService, pub events.Publisher, opts CheckoutOptions) *CheckoutService {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	opts.DomainURL = strings.TrimRight(opts.DomainURL, "/")
	return &CheckoutService{
		orders:    store.Orders,
		plants:    store.Plants,
		payments:  store.Payments,
		gateway:   gw,
		inventory: inv,
		events:    pub,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession prices the cart from the catalogue, opens a hosted
// checkout session and inserts one Pending order per line holding the
// session id as its transaction id.
func (s *CheckoutService) CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	}
	customer := normalizeEmail(req.Customer.Email)

	plants, err := s.stockFor(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	lines := make([]checkout.LineItem, 0, len(req.Items))
	plantIDs := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		p := plants[it.PlantID]
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		lines = append(lines, checkout.LineItem{
			Name:       p.Name,
			Image:      p.Image,
			UnitAmount: checkout.MinorUnits(p.Price),
			Quantity:   int64(it.Quantity),
		})
		plantIDs = append(plantIDs, it.PlantID)
	}

	session, err := s.gateway.CreateSession(ctx, checkout.SessionRequest{
		Currency:      s.opts.Currency,
		CustomerEmail: customer,
		LineItems:     lines,
		Metadata: map[string]string{
			"customer": customer,
			"plantIds": strings.Join(collection.Unique(plantIDs), ","),
		},
		SuccessURL: s.opts.DomainURL + "/payment-success?session_id=" + checkout.SessionPlaceholder,
		CancelURL:  s.opts.DomainURL + "/payment-cancelled?session_id=" + checkout.SessionPlaceholder,
	})
	if err != nil {
		return nil, &GatewayError{Op: "create session", Err: err}
	}
	if session.ID == "" {
		return nil, &GatewayError{Op: "create session", Err: errors.New("session has no id")}
	}

	now := s.now()
	orders := make([]*models.Order, 0, len(req.Items))
	for _, it := range req.Items {
		p := plants[it.PlantID]
		orders = append(orders, &models.Order{
			PlantID:       it.PlantID,
			TransactionID: session.ID,
			Customer:      customer,
			Seller:        p.Seller.Email,
			Name:          p.Name,
			Category:      p.Category,
			Image:         p.Image,
			Quantity:      it.Quantity,
			Price:         p.Price,
			Status:        models.StatusPending,
			Address:       req.Customer.Address,
			CreatedAt:     now,
		})
	}
	if err := s.orders.InsertMany(ctx, orders); err != nil {
		return nil, fmt.Errorf("checkout: insert orders for %s: %w", session.ID, err)
	}

	metrics.CheckoutSessions.Inc()
	logger.WithCtx(ctx).Info("checkout: session created",
		"session", session.ID, "customer", customer, "orders", len(orders), "total", total.StringFixed(2))

	s.events.FireAsync(ctx, events.OrderPlaced, events.OrderPlacedPayload{
		SessionID: session.ID,
		Customer:  customer,
		OrderIDs:  collection.Map(orders, func(o *models.Order) string { return o.ID.Hex() }),
		Total:     total,
	})

	return &CheckoutResult{URL: session.URL, SessionID: session.ID, Total: total}, nil
}

// stockFor loads every plant in the cart and checks it holds enough
// stock for the summed quantity of its lines.
func (s *CheckoutService) stockFor(ctx context.Context, items []CartItem) (map[string]*models.Plant, error) {
	wanted := map[string]int{}
	for _, it := range items {
		if it.Quantity < 1 || it.Quantity > MaxLineQuantity {
			return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidInput, MaxLineQuantity)
		}
		wanted[it.PlantID] += it.Quantity
	}

	plants := make(map[string]*models.Plant, len(wanted))
	for id, qty := range wanted {
		p, err := s.plants.Find(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("checkout: plant %s: %w", id, err)
		}
		if p.Quantity < qty {
			return nil, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, p.Name, p.Quantity)
		}
		plants[id] = p
	}
	return plants, nil
}

// Confirm reconciles a paid checkout session. It is safe to call any
// number of times, concurrently or after a crash. Each order is claimed
// by a conditional write on its transaction id and only the winner of a
// claim moves that order's stock. The payment record is keyed on the
// payment intent so at most one ever exists, and Duplicate is false only
// for the call that wrote it.
func (s *CheckoutService) Confirm(ctx context.Context, sessionID string) (*Confirmation, error) {
	log := logger.WithCtx(ctx).With("session", sessionID)

	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		metrics.PaymentsConfirmed.WithLabelValues("rejected").Inc()
		return nil, &GatewayError{Op: "retrieve session", Err: err}
	}
	if !session.Paid() {
		metrics.PaymentsConfirmed.WithLabelValues("rejected").Inc()
		return nil, ErrPaymentNotCompleted
	}
	intent := session.PaymentIntentID
	if intent == "" {
		metrics.PaymentsConfirmed.WithLabelValues("rejected").Inc()
		return nil, &GatewayError{Op: "retrieve session", Err: errors.New("paid session has no payment intent")}
	}

	pending, err := s.orders.FindByTransaction(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("checkout: orders for session %s: %w", sessionID, err)
	}
	if len(pending) == 0 {
		return s.confirmed(ctx, session)
	}

	// From the first claim on, the stock movement and the ledger entry
	// must complete even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	now := s.now()

	var claimed []models.Order
	for _, o := range pending {
		won, err := s.orders.ClaimTransaction(ctx, o.ID, sessionID, intent, now)
		if err != nil {
			s.release(ctx, session, claimed)
			return nil, fmt.Errorf("checkout: claim order %s: %w", o.ID.Hex(), err)
		}
		if won {
			claimed = append(claimed, o)
		}
	}
	if len(claimed) == 0 {
		log.Info("checkout: confirmation lost every claim to a concurrent call")
		return s.confirmed(ctx, session)
	}

	if err := s.takeStock(ctx, session, claimed); err != nil {
		return nil, err
	}

	done, created, err := s.settle(ctx, session)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.PaymentsConfirmed.WithLabelValues("confirmed").Inc()
		log.Info("checkout: payment confirmed", "intent", intent, "orders", len(done), "claimed", len(claimed))
	} else {
		metrics.PaymentsConfirmed.WithLabelValues("duplicate").Inc()
		log.Info("checkout: payment already recorded by a concurrent call", "intent", intent, "claimed", len(claimed))
	}

	return &Confirmation{
		TransactionID: intent,
		SessionID:     sessionID,
		OrderIDs:      orderIDs(done),
		Duplicate:     !created,
	}, nil
}

// takeStock decrements stock for the orders this call claimed and records
// how much each one took. A claim whose decrement failed is handed back
// to the session so the next confirmation applies it.
func (s *CheckoutService) takeStock(ctx context.Context, session *checkout.Session, claimed []models.Order) error {
	log := logger.WithCtx(ctx).With("session", session.ID)

	failed := 0
	for _, o := range claimed {
		adj, err := s.inventory.Adjust(ctx, o.PlantID, -o.Quantity)
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidID) {
			log.Warn("checkout: plant gone before confirmation, no stock taken",
				"order", o.ID.Hex(), "plant", o.PlantID)
			continue
		}
		if err != nil {
			failed++
			log.Error("checkout: stock decrement failed, releasing claim",
				"order", o.ID.Hex(), "plant", o.PlantID, "quantity", o.Quantity, "error", err)
			s.release(ctx, session, []models.Order{o})
			continue
		}
		if err := s.orders.SetStockTaken(ctx, o.ID, adj.Before-adj.After); err != nil {
			log.Error("checkout: record stock taken failed", "order", o.ID.Hex(), "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: stock not applied for %d of %d orders", ErrConfirmationIncomplete, failed, len(claimed))
	}
	return nil
}

// release hands claimed orders back to the session before their stock
// was taken.
func (s *CheckoutService) release(ctx context.Context, session *checkout.Session, orders []models.Order) {
	for _, o := range orders {
		if _, err := s.orders.ReleaseTransaction(ctx, o.ID, session.PaymentIntentID, session.ID); err != nil {
			logger.WithCtx(ctx).Error("checkout: release claim failed, stock for this order is lost",
				"session", session.ID, "order", o.ID.Hex(), "error", err)
		}
	}
}

// settle writes the ledger entry once no order of the session is left
// unclaimed. The entry lists every order holding the payment intent, and
// only the call that creates it announces the payment.
func (s *CheckoutService) settle(ctx context.Context, session *checkout.Session) ([]models.Order, bool, error) {
	rest, err := s.orders.FindByTransaction(ctx, session.ID)
	if err != nil {
		return nil, false, fmt.Errorf("checkout: orders for session %s: %w", session.ID, err)
	}
	if len(rest) > 0 {
		return nil, false, fmt.Errorf("%w: %d orders still pending", ErrConfirmationIncomplete, len(rest))
	}

	done, err := s.orders.FindByTransaction(ctx, session.PaymentIntentID)
	if err != nil {
		return nil, false, fmt.Errorf("checkout: orders for intent %s: %w", session.PaymentIntentID, err)
	}
	if len(done) == 0 {
		return nil, false, ErrOrdersNotFound
	}

	created, err := s.record(ctx, session, done)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.events.FireAsync(ctx, events.PaymentConfirmed, events.PaymentConfirmedPayload{
			SessionID:       session.ID,
			PaymentIntentID: session.PaymentIntentID,
			Customer:        customerOf(session, done),
			Amount:          checkout.FromMinorUnits(session.AmountTotal),
			Currency:        currencyOf(session, s.opts.Currency),
			OrderIDs:        orderIDs(done),
		})
	}
	return done, created, nil
}

// confirmed handles a session with no order left to claim: either it was
// reconciled before, or it never had orders.
func (s *CheckoutService) confirmed(ctx context.Context, session *checkout.Session) (*Confirmation, error) {
	// A crash between the claim and the ledger write leaves claimed orders
	// without a payment. Settling again is a no-op when it exists.
	done, created, err := s.settle(context.WithoutCancel(ctx), session)
	if errors.Is(err, ErrOrdersNotFound) {
		metrics.PaymentsConfirmed.WithLabelValues("rejected").Inc()
	}
	if err != nil {
		return nil, err
	}
	if created {
		logger.WithCtx(ctx).Warn("checkout: payment record restored for already claimed orders",
			"session", session.ID, "intent", session.PaymentIntentID)
	}

	metrics.PaymentsConfirmed.WithLabelValues("duplicate").Inc()
	return &Confirmation{
		TransactionID: session.PaymentIntentID,
		SessionID:     session.ID,
		OrderIDs:      orderIDs(done),
		Duplicate:     true,
	}, nil
}

func (s *CheckoutService) record(ctx context.Context, session *checkout.Session, orders []models.Order) (bool, error) {
	now := s.now()
	items := collection.Map(orders, func(o models.Order) models.PaymentItem {
		return models.PaymentItem{
			OrderID:  o.ID.Hex(),
			PlantID:  o.PlantID,
			Name:     o.Name,
			Quantity: o.Quantity,
			Price:    o.Price,
		}
	})

	created, err := s.payments.Record(ctx, &models.Payment{
		SessionID:       session.ID,
		PaymentIntentID: session.PaymentIntentID,
		Customer:        customerOf(session, orders),
		Amount:          checkout.FromMinorUnits(session.AmountTotal),
		Currency:        currencyOf(session, s.opts.Currency),
		PaymentStatus:   session.PaymentStatus,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return false, fmt.Errorf("checkout: record payment %s: %w", session.PaymentIntentID, err)
	}
	return created, nil
}

func customerOf(session *checkout.Session, orders []models.Order) string {
	if len(orders) > 0 && orders[0].Customer != "" {
		return orders[0].Customer
	}
	return normalizeEmail(session.CustomerEmail)
}

func currencyOf(session *checkout.Session, fallback string) string {
	if session.Currency != "" {
		return session.Currency
	}
	return fallback
}

func orderIDs(orders []models.Order) []string {
	return collection.Map(orders, func(o models.Order) string { return o.ID.Hex() })
}
