package checkout

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stripe/stripe-go/v76"

	"blood-donation-api/internal/domain"
)

func newTestStripe(t *testing.T, h http.HandlerFunc) *Stripe {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripe(Options{
		SecretKey:  "sk_test_123",
		Currency:   "USD",
		SuccessURL: "http://app.test/payment-success",
		CancelURL:  "http://app.test/funding",
		Backends:   &stripe.Backends{API: backend, Connect: backend, Uploads: backend},
	})
}

func TestCreateSession(t *testing.T) {
	var form url.Values
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.test/cs_1","payment_status":"unpaid"}`)
	})

	sess, err := s.CreateSession(context.Background(), domain.CheckoutInput{Amount: 15.5, DonorName: "Giver", DonorEmail: "giver@x.io"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID != "cs_1" || sess.URL != "https://checkout.stripe.test/cs_1" {
		t.Fatalf("session = %+v", sess)
	}
	checks := map[string]string{
		"mode":                                   "payment",
		"line_items[0][price_data][unit_amount]": "1550",
		"line_items[0][price_data][currency]":    "usd",
		"line_items[0][quantity]":                "1",
		"customer_email":                         "giver@x.io",
		"metadata[donorName]":                    "Giver",
		"success_url":                            "http://app.test/payment-success?session_id={CHECKOUT_SESSION_ID}",
	}
	for k, want := range checks {
		if got := form.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestGetSession(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/checkout/sessions/cs_1" {
			http.Error(w, "unexpected "+r.URL.Path, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "cs_1",
			"object": "checkout.session",
			"payment_status": "paid",
			"amount_total": 2550,
			"currency": "usd",
			"payment_intent": "pi_42",
			"customer_details": {"email": "giver@x.io"},
			"metadata": {"donorName": "Giver"}
		}`)
	})

	sess, err := s.GetSession(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	want := domain.CheckoutSession{
		ID:            "cs_1",
		TransactionID: "pi_42",
		PaymentStatus: domain.PaymentPaid,
		Amount:        25.5,
		Currency:      "usd",
		DonorEmail:    "giver@x.io",
		DonorName:     "Giver",
	}
	if *sess != want {
		t.Fatalf("session = %+v, want %+v", *sess, want)
	}
}

func TestWithSessionID(t *testing.T) {
	cases := map[string]string{
		"http://a.test/ok":     "http://a.test/ok?session_id={CHECKOUT_SESSION_ID}",
		"http://a.test/ok?x=1": "http://a.test/ok?x=1&session_id={CHECKOUT_SESSION_ID}",
	}
	for in, want := range cases {
		if got := withSessionID(in); got != want {
			t.Errorf("withSessionID(%q) = %q", in, got)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount   float64
		currency string
		minor    int64
	}{
		{19.99, "usd", 1999},
		{19.99, "USD", 1999},
		{500, "jpy", 500},
		{1.234, "kwd", 1234},
		{0.004, "usd", 0},
	}
	for _, tc := range cases {
		if got := toMinor(tc.amount, tc.currency); got != tc.minor {
			t.Errorf("toMinor(%v, %s) = %d, want %d", tc.amount, tc.currency, got, tc.minor)
		}
	}
	if got := fromMinor(500, "jpy"); got != 500 {
		t.Errorf("fromMinor(500, jpy) = %v", got)
	}
	if got := fromMinor(1550, "usd"); got != 15.5 {
		t.Errorf("fromMinor(1550, usd) = %v", got)
	}
}

func TestCreateSessionRejectsSubUnitAmount(t *testing.T) {
	called := false
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		http.Error(w, "should not be called", http.StatusBadRequest)
	})
	_, err := s.CreateSession(context.Background(), domain.CheckoutInput{Amount: 0.004})
	if !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if called {
		t.Fatal("stripe should not be called for a sub-unit amount")
	}
}
