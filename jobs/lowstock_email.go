package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/stockflow-hq/stockflow/internal/inventory"
)

// AlertSource provides the alerts that still need an email notification.
type AlertSource interface {
	ListAlertsForEmail(ctx context.Context) ([]inventory.Alert, error)
	MarkAlertsNotified(ctx context.Context, ids []int64) error
}

// Mailer sends a plain-text email to the given recipients.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// LowStockEmailJob collects unresolved, un-notified alerts into one digest
// email. Alerts are marked notified only after the send succeeds, so a
// failed run retries with the same alerts.
type LowStockEmailJob struct {
	alerts AlertSource
	mailer Mailer
	to     []string
	logger *slog.Logger
}

// NewLowStockEmailJob constructs the digest job.
func NewLowStockEmailJob(alerts AlertSource, mailer Mailer, to []string, logger *slog.Logger) *LowStockEmailJob {
	return &LowStockEmailJob{alerts: alerts, mailer: mailer, to: to, logger: logger}
}

// Handle processes one digest run.
func (j *LowStockEmailJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if len(j.to) == 0 {
		j.logger.Warn("low stock email skipped: no recipients configured")
		return nil
	}
	alerts, err := j.alerts.ListAlertsForEmail(ctx)
	if err != nil {
		return fmt.Errorf("jobs: list alerts: %w", err)
	}
	if len(alerts) == 0 {
		j.logger.Info("low stock email: nothing to send")
		return nil
	}

	subject := fmt.Sprintf("Low stock alerts (%d items)", len(alerts))
	if err := j.mailer.Send(ctx, j.to, subject, digestBody(alerts)); err != nil {
		return fmt.Errorf("jobs: send digest: %w", err)
	}

	ids := make([]int64, 0, len(alerts))
	for _, a := range alerts {
		ids = append(ids, a.ID)
	}
	if err := j.alerts.MarkAlertsNotified(ctx, ids); err != nil {
		// The email went out; failing here would resend it on retry.
		j.logger.Error("mark alerts notified", slog.Any("error", err))
		return nil
	}
	j.logger.Info("low stock email sent", slog.Int("alerts", len(alerts)))
	return nil
}

func digestBody(alerts []inventory.Alert) string {
	var b strings.Builder
	b.WriteString("The following items are at or below their reorder point:\n\n")
	for _, a := range alerts {
		b.WriteString("- ")
		b.WriteString(a.Message)
		b.WriteString("\n")
	}
	b.WriteString("\nReview stock levels and raise purchase orders as needed.\n")
	return b.String()
}
