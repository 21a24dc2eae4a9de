package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Sandbox is an in-process Gateway. Sessions start unpaid unless AutoPay is
// set; MarkPaid settles one explicitly. NewID, when set, names sessions.
type Sandbox struct {
	AutoPay bool
	NewID   func() string

	mu        sync.Mutex
	sessions  map[string]*Session
	failNext  error
	retrieves int
}

func NewSandbox() *Sandbox {
	return &Sandbox{sessions: map[string]*Session{}}
}

func (s *Sandbox) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	var total int64
	for _, li := range req.LineItems {
		total += li.UnitAmount * li.Quantity
	}

	id := "cs_test_" + uuid.NewString()
	if s.NewID != nil {
		id = s.NewID()
	}
	sess := &Session{
		ID:            id,
		URL:           "https://checkout.sandbox.local/pay/" + id,
		PaymentStatus: "unpaid",
		CustomerEmail: req.CustomerEmail,
		Currency:      req.Currency,
		AmountTotal:   total,
		Metadata:      req.Metadata,
	}
	if s.AutoPay {
		sess.URL = RedirectURL(req.SuccessURL, id)
		sess.PaymentStatus = StatusPaid
		sess.PaymentIntentID = "pi_test_" + uuid.NewString()
	}

	s.sessions[id] = sess

	c := *sess
	return &c, nil
}

func (s *Sandbox) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.retrieves++
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("sandbox: no such checkout session %q", id)
	}
	c := *sess
	return &c, nil
}

// MarkPaid settles a session with the given payment intent id.
func (s *Sandbox) MarkPaid(id, paymentIntentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("sandbox: no such checkout session %q", id)
	}
	sess.PaymentStatus = StatusPaid
	sess.PaymentIntentID = paymentIntentID
	return nil
}

// RetrieveCount reports how many times RetrieveSession was called.
func (s *Sandbox) RetrieveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retrieves
}

// FailNext makes the next gateway call return err.
func (s *Sandbox) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *Sandbox) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}
