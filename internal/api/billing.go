package api

import (
	"context"
	"time"
)

// Plan is a billing tier from the backend catalog.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents"`
	Currency    string   `json:"currency"`
	Features    []string `json:"features"`
}

// Subscription is the operator's current plan binding.
type Subscription struct {
	ID          string    `json:"id"`
	PlanID      string    `json:"plan_id"`
	Status      string    `json:"status"` // active, canceled, expired
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	RenewalDate time.Time `json:"renewal_date"`
	Plan        *Plan     `json:"plan,omitempty"`
}

// Payment is a recorded billing transaction.
type Payment struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"` // completed, pending, failed
	Date        time.Time `json:"date"`
	InvoiceRef  string    `json:"invoice_ref"`
}

// CardDetails is transient payment input. It is sent to the backend and
// never retained past the call.
type CardDetails struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVC    string `json:"cvc"`
	Name   string `json:"name"`
}

// PaymentResult is the backend's response to a payment submission.
type PaymentResult struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// ListPlans fetches the plan catalog.
func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	var resp struct {
		Plans []Plan `json:"plans"`
	}
	if _, err := c.Do(ctx, "GET", "/billing/plans", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Plans, nil
}

// GetSubscription fetches the current subscription, if any.
func (c *Client) GetSubscription(ctx context.Context) (*Subscription, error) {
	var resp struct {
		Subscription *Subscription `json:"subscription"`
	}
	if _, err := c.Do(ctx, "GET", "/billing/subscription", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Subscription, nil
}

// ListPayments fetches the payment history, most recent first as returned
// by the backend.
func (c *Client) ListPayments(ctx context.Context) ([]Payment, error) {
	var resp struct {
		Payments []Payment `json:"payments"`
	}
	if _, err := c.Do(ctx, "GET", "/billing/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Payments, nil
}

// SubmitPayment submits a payment for processing.
func (c *Client) SubmitPayment(ctx context.Context, card CardDetails) (*PaymentResult, error) {
	var resp PaymentResult
	if _, err := c.Do(ctx, "POST", "/billing/payment", card, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
