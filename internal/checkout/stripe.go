// Package checkout implements domain.CheckoutProvider on Stripe Checkout.
package checkout

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"blood-donation-api/internal/domain"
)

const productName = "Blood donation fund"

type Stripe struct {
	sc         *client.API
	currency   string
	successURL string
	cancelURL  string
}

type Options struct {
	SecretKey  string
	Currency   string
	SuccessURL string
	CancelURL  string
	// Backends overrides the Stripe API endpoints, for tests.
	Backends *stripe.Backends
}

func NewStripe(o Options) *Stripe {
	sc := &client.API{}
	sc.Init(o.SecretKey, o.Backends)
	cur := strings.ToLower(o.Currency)
	if cur == "" {
		cur = string(stripe.CurrencyUSD)
	}
	return &Stripe{sc: sc, currency: cur, successURL: o.SuccessURL, cancelURL: o.CancelURL}
}

func (s *Stripe) CreateSession(ctx context.Context, in domain.CheckoutInput) (*domain.CheckoutSession, error) {
	unit := toMinor(in.Amount, s.currency)
	if unit <= 0 {
		return nil, fmt.Errorf("%w: amount %v is below one %s minor unit", domain.ErrInvalid, in.Amount, strings.ToUpper(s.currency))
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(withSessionID(s.successURL)),
		CancelURL:  stripe.String(s.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency),
				UnitAmount: stripe.Int64(unit),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(productName),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	if in.DonorEmail != "" {
		params.CustomerEmail = stripe.String(in.DonorEmail)
	}
	params.Context = ctx
	params.AddMetadata("donorName", in.DonorName)
	params.AddMetadata("donorEmail", in.DonorEmail)

	sess, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create session: %w", err)
	}
	return toDomain(sess), nil
}

func (s *Stripe) GetSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.sc.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get session %s: %w", id, err)
	}
	return toDomain(sess), nil
}

func toDomain(s *stripe.CheckoutSession) *domain.CheckoutSession {
	out := &domain.CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		Amount:        fromMinor(s.AmountTotal, string(s.Currency)),
		Currency:      string(s.Currency),
		DonorEmail:    s.CustomerEmail,
		DonorName:     s.Metadata["donorName"],
	}
	if s.PaymentIntent != nil {
		out.TransactionID = s.PaymentIntent.ID
	}
	if out.DonorEmail == "" {
		if e := s.Metadata["donorEmail"]; e != "" {
			out.DonorEmail = e
		} else if s.CustomerDetails != nil {
			out.DonorEmail = s.CustomerDetails.Email
		}
	}
	return out
}

// Currencies Stripe charges in whole units, or in thousandths.
var (
	zeroDecimal = map[string]bool{
		"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
		"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
		"vuv": true, "xaf": true, "xof": true, "xpf": true,
	}
	threeDecimal = map[string]bool{"bhd": true, "jod": true, "kwd": true, "omr": true, "tnd": true}
)

// minorPerMajor is how many of the currency's smallest units make one unit.
func minorPerMajor(currency string) float64 {
	c := strings.ToLower(currency)
	switch {
	case zeroDecimal[c]:
		return 1
	case threeDecimal[c]:
		return 1000
	}
	return 100
}

// toMinor converts a major-unit amount to the currency's smallest unit,
// rounding to the nearest one.
func toMinor(amount float64, currency string) int64 {
	return int64(math.Round(amount * minorPerMajor(currency)))
}

func fromMinor(v int64, currency string) float64 { return float64(v) / minorPerMajor(currency) }

func withSessionID(u string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "session_id={CHECKOUT_SESSION_ID}"
}
