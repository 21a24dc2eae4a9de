package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantnet/plantnet-server/app/jobs"
	"github.com/plantnet/plantnet-server/app/models"
	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/pkg/queue"
	"github.com/plantnet/plantnet-server/pkg/testkit"
)

func setup(t *testing.T) (*queue.Manager, *testkit.MockMailer, context.Context) {
	t.Helper()
	store, _ := repositories.NewMemoryStore()
	_, err := store.Payments.Record(context.Background(), &models.Payment{
		SessionID:       "sess_1",
		PaymentIntentID: "pi_1",
		Customer:        "buyer@example.com",
		Amount:          decimal.RequireFromString("20.00"),
		Currency:        "usd",
		Items:           []models.PaymentItem{{Name: "Monstera", Quantity: 2, Price: decimal.RequireFromString("10.00")}},
	})
	require.NoError(t, err)

	mailer := &testkit.MockMailer{}
	q := queue.New(queue.NewMemoryDriver(), queue.WithRetry(2, time.Millisecond))
	jobs.Register(q, store.Payments, mailer)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go q.Work(ctx, 1)
	return q, mailer, ctx
}

func TestPaymentReceiptIsMailed(t *testing.T) {
	q, mailer, ctx := setup(t)

	require.NoError(t, q.Dispatch(ctx, jobs.NewPaymentReceipt("pi_1")))
	require.Eventually(t, func() bool { return len(mailer.Sent()) == 1 }, 2*time.Second, 5*time.Millisecond)

	msg := mailer.Sent()[0]
	assert.Equal(t, []string{"buyer@example.com"}, msg.To)
	assert.True(t, msg.HTML)
	assert.Contains(t, msg.Body, "20.00 usd")
	assert.Contains(t, msg.Body, "Monstera")
	assert.Contains(t, msg.Body, "pi_1")
}

func TestPaymentReceiptFailuresAreKept(t *testing.T) {
	mocker := testkit.GetMocker("sendmail")
	mocker.Arm([]byte("smtp unavailable"), 503)
	t.Cleanup(mocker.Reset)

	q, mailer, ctx := setup(t)
	require.NoError(t, q.Dispatch(ctx, jobs.NewPaymentReceipt("pi_1")))

	require.Eventually(t, func() bool { return len(q.FailedJobs()) == 1 }, 2*time.Second, 5*time.Millisecond)
	failed := q.FailedJobs()[0]
	assert.Equal(t, jobs.PaymentReceiptName, failed.Type)
	assert.Contains(t, failed.Error, "smtp unavailable")
	assert.Len(t, mailer.Sent(), 2)
}

func TestPaymentReceiptUnknownIntent(t *testing.T) {
	q, mailer, ctx := setup(t)
	require.NoError(t, q.Dispatch(ctx, jobs.NewPaymentReceipt("pi_missing")))

	require.Eventually(t, func() bool { return len(q.FailedJobs()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, mailer.Sent())
}
