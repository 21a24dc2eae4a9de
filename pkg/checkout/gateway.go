// Package checkout talks to the hosted payment page provider.
//
// Gateway is implemented by StripeGateway in production and by Sandbox for
// local development and tests.
package checkout

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// StatusPaid is the payment status of a settled session.
const StatusPaid = "paid"

// SessionPlaceholder is substituted by the provider with the session id in
// redirect URLs.
const SessionPlaceholder = "{CHECKOUT_SESSION_ID}"

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}

// LineItem is one priced row on the hosted page. UnitAmount is in minor
// currency units.
type LineItem struct {
	Name       string
	Image      string
	UnitAmount int64
	Quantity   int64
}

type SessionRequest struct {
	Currency      string
	CustomerEmail string
	LineItems     []LineItem
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

// Session is the provider's view of a checkout session.
type Session struct {
	ID              string
	URL             string
	PaymentStatus   string
	PaymentIntentID string
	CustomerEmail   string
	Currency        string
	AmountTotal     int64
	Metadata        map[string]string
}

func (s *Session) Paid() bool { return s.PaymentStatus == StatusPaid }

// MinorUnits converts a price to cents, rounding half away from zero.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits converts cents back to a decimal amount.
func FromMinorUnits(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}

// RedirectURL expands the placeholder for gateways that do not do it
// themselves.
func RedirectURL(tmpl, sessionID string) string {
	return strings.ReplaceAll(tmpl, SessionPlaceholder, sessionID)
}
