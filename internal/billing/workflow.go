package billing

import (
	"context"
	"errors"
	"sync"

	"github.com/autosysadmin/console-cli/internal/alert"
	"github.com/autosysadmin/console-cli/internal/api"
)

// ErrPaymentInFlight is returned when a payment submission is attempted
// while a previous one has not yet settled.
var ErrPaymentInFlight = errors.New("a payment is already being processed")

// Gateway is the slice of the API client the workflow depends on.
type Gateway interface {
	ListPlans(ctx context.Context) ([]api.Plan, error)
	GetSubscription(ctx context.Context) (*api.Subscription, error)
	ListPayments(ctx context.Context) ([]api.Payment, error)
	SubmitPayment(ctx context.Context, card api.CardDetails) (*api.PaymentResult, error)
}

// Workflow owns the subscription state: the plan catalog, the current plan
// binding, and the payment history. Each refresh replaces its slice of state
// wholesale and independently of the others; there is no cross-fetch
// transaction and no automatic retry.
type Workflow struct {
	mu     sync.Mutex
	gw     Gateway
	alerts *alert.Bus

	plans           []api.Plan
	current         *api.Subscription
	payments        []api.Payment
	paymentInFlight bool
}

// NewWorkflow constructs a billing workflow publishing payment outcomes to
// the given alert bus.
func NewWorkflow(gw Gateway, alerts *alert.Bus) *Workflow {
	return &Workflow{gw: gw, alerts: alerts}
}

// RefreshPlans replaces the plan catalog from the backend, preserving the
// order the backend returns.
func (w *Workflow) RefreshPlans(ctx context.Context) error {
	plans, err := w.gw.ListPlans(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.plans = plans
	w.mu.Unlock()
	return nil
}

// RefreshCurrentPlan replaces the current subscription from the backend.
func (w *Workflow) RefreshCurrentPlan(ctx context.Context) error {
	sub, err := w.gw.GetSubscription(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.current = sub
	w.mu.Unlock()
	return nil
}

// RefreshPaymentHistory replaces the payment history from the backend. The
// history is only ever trusted from the backend; nothing is appended
// locally.
func (w *Workflow) RefreshPaymentHistory(ctx context.Context) error {
	payments, err := w.gw.ListPayments(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.payments = payments
	w.mu.Unlock()
	return nil
}

// SubmitPayment submits the card for processing. At most one submission may
// be in flight at a time; a concurrent attempt is rejected with
// ErrPaymentInFlight before any network call. On success the payment
// history is refreshed so the visible history reflects the new payment; no
// speculative record is inserted. Card data is not retained past the call.
func (w *Workflow) SubmitPayment(ctx context.Context, card api.CardDetails) error {
	w.mu.Lock()
	if w.paymentInFlight {
		w.mu.Unlock()
		return ErrPaymentInFlight
	}
	w.paymentInFlight = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.paymentInFlight = false
		w.mu.Unlock()
	}()

	if _, err := w.gw.SubmitPayment(ctx, card); err != nil {
		w.alerts.Publish("Payment failed. Please try again.", alert.SeverityError)
		return err
	}

	w.alerts.Publish("Payment processed successfully", alert.SeveritySuccess)

	// History refresh starts only after the payment call settled.
	return w.RefreshPaymentHistory(ctx)
}

// PaymentInFlight reports whether a submission is pending, so the
// presentation boundary can disable the invoking control.
func (w *Workflow) PaymentInFlight() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paymentInFlight
}

// Plans returns the cached plan catalog in backend order.
func (w *Workflow) Plans() []api.Plan {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]api.Plan, len(w.plans))
	copy(out, w.plans)
	return out
}

// CurrentPlan returns the cached subscription, or nil when none is known.
func (w *Workflow) CurrentPlan() *api.Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil
	}
	copied := *w.current
	return &copied
}

// PaymentHistory returns the cached payment history in backend order.
func (w *Workflow) PaymentHistory() []api.Payment {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]api.Payment, len(w.payments))
	copy(out, w.payments)
	return out
}
