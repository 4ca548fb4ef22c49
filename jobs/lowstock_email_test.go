package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockflow-hq/stockflow/internal/inventory"
)

type fakeAlerts struct {
	pending  []inventory.Alert
	listErr  error
	notified []int64
	markErr  error
}

func (f *fakeAlerts) ListAlertsForEmail(_ context.Context) ([]inventory.Alert, error) {
	return f.pending, f.listErr
}

func (f *fakeAlerts) MarkAlertsNotified(_ context.Context, ids []int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.notified = append(f.notified, ids...)
	return nil
}

type fakeMailer struct {
	sent    int
	to      []string
	subject string
	body    string
	err     error
}

func (f *fakeMailer) Send(_ context.Context, to []string, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent++
	f.to = to
	f.subject = subject
	f.body = body
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLowStockEmailSendsDigest(t *testing.T) {
	alerts := &fakeAlerts{pending: []inventory.Alert{
		{ID: 1, ItemID: 10, Message: "Stock for 'Widget' is low (Current: 2, Reorder Point: 5)"},
		{ID: 2, ItemID: 11, Message: "Stock for 'Gadget' is low (Current: 0, Reorder Point: 3)"},
	}}
	mailer := &fakeMailer{}
	job := NewLowStockEmailJob(alerts, mailer, []string{"ops@example.com"}, testLogger())

	require.NoError(t, job.Handle(context.Background(), nil))
	require.Equal(t, 1, mailer.sent)
	require.Equal(t, []string{"ops@example.com"}, mailer.to)
	require.Equal(t, "Low stock alerts (2 items)", mailer.subject)
	require.Contains(t, mailer.body, "Stock for 'Widget' is low (Current: 2, Reorder Point: 5)")
	require.Contains(t, mailer.body, "Stock for 'Gadget' is low (Current: 0, Reorder Point: 3)")
	require.Equal(t, []int64{1, 2}, alerts.notified)
}

func TestLowStockEmailNothingPending(t *testing.T) {
	alerts := &fakeAlerts{}
	mailer := &fakeMailer{}
	job := NewLowStockEmailJob(alerts, mailer, []string{"ops@example.com"}, testLogger())

	require.NoError(t, job.Handle(context.Background(), nil))
	require.Zero(t, mailer.sent)
	require.Empty(t, alerts.notified)
}

func TestLowStockEmailNoRecipients(t *testing.T) {
	alerts := &fakeAlerts{pending: []inventory.Alert{{ID: 1, Message: "low"}}}
	mailer := &fakeMailer{}
	job := NewLowStockEmailJob(alerts, mailer, nil, testLogger())

	require.NoError(t, job.Handle(context.Background(), nil))
	require.Zero(t, mailer.sent)
}

func TestLowStockEmailSendFailureRetries(t *testing.T) {
	alerts := &fakeAlerts{pending: []inventory.Alert{{ID: 1, Message: "low"}}}
	mailer := &fakeMailer{err: errors.New("smtp down")}
	job := NewLowStockEmailJob(alerts, mailer, []string{"ops@example.com"}, testLogger())

	err := job.Handle(context.Background(), nil)
	require.Error(t, err)
	// Alerts stay un-notified so the retry sends them again.
	require.Empty(t, alerts.notified)
}

func TestLowStockEmailMarkFailureDoesNotResend(t *testing.T) {
	alerts := &fakeAlerts{
		pending: []inventory.Alert{{ID: 1, Message: "low"}},
		markErr: errors.New("db down"),
	}
	mailer := &fakeMailer{}
	job := NewLowStockEmailJob(alerts, mailer, []string{"ops@example.com"}, testLogger())

	// The email went out; surfacing the mark failure would resend it.
	require.NoError(t, job.Handle(context.Background(), nil))
	require.Equal(t, 1, mailer.sent)
}
