package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blood-donation-api/internal/core/auth"
	"blood-donation-api/internal/core/config"
	"blood-donation-api/internal/domain"
	"blood-donation-api/internal/repo"
	"blood-donation-api/internal/service"
	"blood-donation-api/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCheckout struct {
	sessions map[string]*domain.CheckoutSession
}

func (s stubCheckout) CreateSession(context.Context, domain.CheckoutInput) (*domain.CheckoutSession, error) {
	return &domain.CheckoutSession{ID: "cs_new", URL: "https://pay.test/cs_new"}, nil
}

func (s stubCheckout) GetSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	return nil, errors.New("unknown session")
}

type apiTest struct {
	t      *testing.T
	engine *gin.Engine
	tokens *auth.LocalVerifier
	users  *repo.UserRepo
}

func newAPITest(t *testing.T, enforceRoles bool) *apiTest {
	t.Helper()
	db := testutil.NewDB(t)
	users := repo.NewUserRepo(db)
	requests := repo.NewRequestRepo(db)
	payments := repo.NewPaymentRepo(db)
	verifier := &auth.LocalVerifier{Secret: []byte("test-secret"), Issuer: "test", TTL: time.Hour}
	checkout := stubCheckout{sessions: map[string]*domain.CheckoutSession{
		"cs_paid": {ID: "cs_paid", TransactionID: "pi_1", PaymentStatus: "paid", Amount: 30, Currency: "usd", DonorEmail: "g@x.io"},
	}}

	engine := NewAPIEngine(Deps{
		Log:      zap.NewNop(),
		Verifier: verifier,
		Users:    service.NewUserService(service.UserDeps{Users: users}),
		Requests: service.NewRequestService(service.RequestDeps{Requests: requests, Users: users}),
		Payments: service.NewPaymentService(service.PaymentDeps{Payments: payments, Provider: checkout}),
		Stats:    service.NewStatsService(users, requests, payments, nil),
		Limits:   config.Limits{RPS: 1000, Burst: 1000, Concurrency: 10, MaxBodyMB: 1, TimeoutSec: 5},

		EnforceRoles: enforceRoles,
	})
	return &apiTest{t: t, engine: engine, tokens: verifier, users: users}
}

// call sends body as JSON and, when email is set, a bearer token for it.
func (a *apiTest) call(method, target, email string, body any) (int, []byte) {
	a.t.Helper()
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, target, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if email != "" {
		tok, err := a.tokens.Issue(email)
		if err != nil {
			a.t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

func (a *apiTest) decode(b []byte, v any) {
	a.t.Helper()
	if err := json.Unmarshal(b, v); err != nil {
		a.t.Fatalf("decode %s: %v", b, err)
	}
}

func (a *apiTest) register(email string) {
	a.t.Helper()
	if code, body := a.call(http.MethodPost, "/users", "", map[string]string{"email": email, "name": email, "bloodGroup": "O+"}); code != http.StatusOK {
		a.t.Fatalf("register %s: %d %s", email, code, body)
	}
}

func (a *apiTest) createRequest(email string) string {
	a.t.Helper()
	code, body := a.call(http.MethodPost, "/requests", email, map[string]string{
		"recipient_name":     "Rahim",
		"recipient_district": "Dhaka",
		"recipient_upazila":  "Savar",
		"blood_group":        "O+",
	})
	if code != http.StatusOK {
		a.t.Fatalf("create request: %d %s", code, body)
	}
	var r struct {
		ID string `json:"_id"`
	}
	a.decode(body, &r)
	return r.ID
}

func TestUnauthorizedMessage(t *testing.T) {
	a := newAPITest(t, false)
	for _, target := range []string{"/my-request", "/users", "/payments", "/stats/admin"} {
		code, body := a.call(http.MethodGet, target, "", nil)
		if code != http.StatusUnauthorized || string(body) != `{"message":"unauthorize access"}` {
			t.Fatalf("%s: %d %s", target, code, body)
		}
	}
}

func TestRegisterConflict(t *testing.T) {
	a := newAPITest(t, false)
	a.register("a@x.io")
	code, body := a.call(http.MethodPost, "/users", "", map[string]string{"email": "a@x.io"})
	if code != http.StatusBadRequest || string(body) != `{"message":"user already exists"}` {
		t.Fatalf("duplicate: %d %s", code, body)
	}

	code, body = a.call(http.MethodGet, "/users/role/a@x.io", "", nil)
	var u domain.User
	a.decode(body, &u)
	if code != http.StatusOK || u.Role != domain.RoleDonor || u.Status != domain.UserActive {
		t.Fatalf("role lookup: %d %s", code, body)
	}
	code, body = a.call(http.MethodGet, "/users/role/nobody@x.io", "", nil)
	if code != http.StatusOK || string(body) != "null" {
		t.Fatalf("missing user: %d %s", code, body)
	}
}

func TestBlockedUserCannotCreateRequest(t *testing.T) {
	a := newAPITest(t, false)
	a.register("b@x.io")
	if code, body := a.call(http.MethodPatch, "/update/user/status?email=b@x.io&status=blocked", "root@x.io", nil); code != http.StatusOK {
		t.Fatalf("block: %d %s", code, body)
	}
	code, body := a.call(http.MethodPost, "/requests", "b@x.io", map[string]string{"recipient_name": "R", "blood_group": "A+"})
	if code != http.StatusForbidden {
		t.Fatalf("blocked create: %d %s", code, body)
	}
}

func TestRequestFlow(t *testing.T) {
	a := newAPITest(t, false)
	a.register("owner@x.io")
	a.register("donor@x.io")
	id := a.createRequest("owner@x.io")

	code, body := a.call(http.MethodGet, "/requests/"+id, "", nil)
	if code != http.StatusOK || !strings.Contains(string(body), `"donor_info":null`) {
		t.Fatalf("get: %d %s", code, body)
	}

	// an empty body assigns the caller
	code, body = a.call(http.MethodPatch, "/requests/"+id+"/assign-donor", "donor@x.io", nil)
	if code != http.StatusOK || !strings.Contains(string(body), `"donor_info":{"name":"donor@x.io","email":"donor@x.io"}`) {
		t.Fatalf("assign: %d %s", code, body)
	}
	code, body = a.call(http.MethodPatch, "/requests/"+id+"/status", "owner@x.io", map[string]string{"status": "done"})
	if code != http.StatusOK || !strings.Contains(string(body), `"donation_status":"done"`) || strings.Contains(string(body), `"donor_info":null`) {
		t.Fatalf("done: %d %s", code, body)
	}
	code, body = a.call(http.MethodPatch, "/requests/"+id+"/status", "owner@x.io", map[string]string{"status": "lost"})
	if code != http.StatusBadRequest {
		t.Fatalf("bad status: %d %s", code, body)
	}

	code, body = a.call(http.MethodDelete, "/requests/"+id, "donor@x.io", nil)
	if code != http.StatusForbidden {
		t.Fatalf("delete by stranger: %d %s", code, body)
	}
	code, body = a.call(http.MethodDelete, "/requests/"+id, "owner@x.io", nil)
	if code != http.StatusOK || string(body) != `{"deletedCount":1}` {
		t.Fatalf("delete: %d %s", code, body)
	}
	code, body = a.call(http.MethodGet, "/requests/"+id, "", nil)
	if code != http.StatusOK || string(body) != "null" {
		t.Fatalf("get deleted: %d %s", code, body)
	}
}

func TestMyRequestPagination(t *testing.T) {
	a := newAPITest(t, false)
	for i := 0; i < 5; i++ {
		a.createRequest("owner@x.io")
		time.Sleep(2 * time.Millisecond)
	}
	code, body := a.call(http.MethodGet, "/my-request?page=1&size=2", "owner@x.io", nil)
	if code != http.StatusOK {
		t.Fatalf("%d %s", code, body)
	}
	var page service.Page[domain.DonationRequest]
	a.decode(body, &page)
	if page.Total != 5 || len(page.List) != 2 || page.Page != 1 || page.Size != 2 {
		t.Fatalf("page = total %d len %d page %d size %d", page.Total, len(page.List), page.Page, page.Size)
	}

	code, body = a.call(http.MethodGet, "/search-requests?district=Dhaka", "", nil)
	var found []json.RawMessage
	a.decode(body, &found)
	if code != http.StatusOK || len(found) != 5 {
		t.Fatalf("search: %d %d", code, len(found))
	}
}

func TestPayments(t *testing.T) {
	a := newAPITest(t, false)

	code, body := a.call(http.MethodGet, "/payments/total", "", nil)
	if code != http.StatusOK || string(body) != `{"total":0}` {
		t.Fatalf("empty total: %d %s", code, body)
	}
	code, body = a.call(http.MethodPost, "/create-payment-checkout", "", map[string]any{"amount": 10, "donorEmail": "g@x.io"})
	if code != http.StatusOK || string(body) != `{"id":"cs_new","url":"https://pay.test/cs_new"}` {
		t.Fatalf("checkout: %d %s", code, body)
	}
	for i, want := range []string{`"recorded":true`, `"alreadyRecorded":true`} {
		code, body = a.call(http.MethodPost, "/success-payment", "", map[string]string{"sessionId": "cs_paid"})
		if code != http.StatusOK || !strings.Contains(string(body), want) {
			t.Fatalf("record %d: %d %s", i, code, body)
		}
	}
	code, body = a.call(http.MethodGet, "/payments/total", "", nil)
	if code != http.StatusOK || string(body) != `{"total":30}` {
		t.Fatalf("total: %d %s", code, body)
	}
	code, body = a.call(http.MethodGet, "/payments", "g@x.io", nil)
	if code != http.StatusOK || !strings.Contains(string(body), `"total":1`) {
		t.Fatalf("list: %d %s", code, body)
	}
}

func TestEnforceRoles(t *testing.T) {
	a := newAPITest(t, true)
	a.register("donor@x.io")
	a.register("boss@x.io")
	if _, err := a.users.UpdateFields(context.Background(), "boss@x.io", map[string]any{"role": domain.RoleAdmin}); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		method, target, email string
		want                  int
	}{
		{http.MethodGet, "/users", "donor@x.io", http.StatusForbidden},
		{http.MethodGet, "/users", "boss@x.io", http.StatusOK},
		{http.MethodGet, "/all-requests", "donor@x.io", http.StatusForbidden},
		{http.MethodGet, "/stats/admin", "boss@x.io", http.StatusOK},
		{http.MethodPatch, "/update/user/role?email=donor@x.io&role=volunteer", "donor@x.io", http.StatusForbidden},
		{http.MethodPatch, "/update/user/role?email=donor@x.io&role=volunteer", "boss@x.io", http.StatusOK},
		{http.MethodGet, "/all-requests", "donor@x.io", http.StatusOK},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprintf("%d %s %s", i, tc.target, tc.email), func(t *testing.T) {
			if code, body := a.call(tc.method, tc.target, tc.email, nil); code != tc.want {
				t.Fatalf("got %d %s, want %d", code, body, tc.want)
			}
		})
	}
}

func TestOpsEndpoints(t *testing.T) {
	a := newAPITest(t, false)
	for target, want := range map[string]int{
		"/":        http.StatusOK,
		"/health":  http.StatusOK,
		"/metrics": http.StatusOK,
		"/nope":    http.StatusNotFound,
	} {
		if code, body := a.call(http.MethodGet, target, "", nil); code != want {
			t.Fatalf("%s: %d %s", target, code, body)
		}
	}
}
