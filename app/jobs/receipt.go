// Package jobs holds the queued background work of the server.
package jobs

import (
	"context"
	"fmt"
	"html/template"

	"github.com/plantnet/plantnet-server/app/repositories"
	"github.com/plantnet/plantnet-server/pkg/mail"
	"github.com/plantnet/plantnet-server/pkg/queue"
)

const PaymentReceiptName = "payment.receipt"

var receiptTmpl = template.Must(template.New("receipt").Parse(`<h2>Thank you for your order</h2>
<p>We received your payment of <strong>{{.Amount.StringFixed 2}} {{.Currency}}</strong>.</p>
<table>
{{range .Items}}<tr><td>{{.Name}}</td><td>× {{.Quantity}}</td><td>{{.Price.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Reference: {{.PaymentIntentID}}</p>`))

// PaymentReceiptJob mails the customer a receipt for a confirmed payment.
type PaymentReceiptJob struct {
	PaymentIntentID string `json:"paymentIntentId"`

	payments repositories.PaymentRepository
	mailer   mail.Mailer
}

func (j *PaymentReceiptJob) JobName() string { return PaymentReceiptName }

func (j *PaymentReceiptJob) Handle(ctx context.Context) error {
	p, err := j.payments.FindByIntent(ctx, j.PaymentIntentID)
	if err != nil {
		return fmt.Errorf("receipt %s: %w", j.PaymentIntentID, err)
	}
	if p.Customer == "" {
		return nil
	}

	body, err := mail.Render(receiptTmpl, p)
	if err != nil {
		return err
	}
	return j.mailer.Send(ctx, mail.Message{
		To:      []string{p.Customer},
		Subject: "Your PlantNet receipt",
		Body:    body,
		HTML:    true,
	})
}

// Register makes the job types decodable by q, bound to their collaborators.
func Register(q *queue.Manager, payments repositories.PaymentRepository, mailer mail.Mailer) {
	q.Register(PaymentReceiptName, func() queue.Job {
		return &PaymentReceiptJob{payments: payments, mailer: mailer}
	})
}

// NewPaymentReceipt builds a job ready to dispatch.
func NewPaymentReceipt(paymentIntentID string) *PaymentReceiptJob {
	return &PaymentReceiptJob{PaymentIntentID: paymentIntentID}
}
