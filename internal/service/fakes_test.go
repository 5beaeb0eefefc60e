package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"blood-donation-api/internal/core/cache"
	"blood-donation-api/internal/domain"
	"blood-donation-api/internal/repo"
	"blood-donation-api/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, domain.Event) error {
	return errors.New("broker down")
}

type fakeCheckout struct {
	sessions map[string]*domain.CheckoutSession
	created  []domain.CheckoutInput
	getCalls int
}

func (f *fakeCheckout) CreateSession(_ context.Context, in domain.CheckoutInput) (*domain.CheckoutSession, error) {
	f.created = append(f.created, in)
	return &domain.CheckoutSession{ID: "cs_new", URL: "https://checkout.test/cs_new"}, nil
}

func (f *fakeCheckout) GetSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	f.getCalls++
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	return s, nil
}

// stepClock returns a time one minute later on every call.
func stepClock() func() time.Time {
	t := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

type fixture struct {
	users    *repo.UserRepo
	requests *repo.RequestRepo
	payments *repo.PaymentRepo
	events   *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	return fixture{
		users:    repo.NewUserRepo(db),
		requests: repo.NewRequestRepo(db),
		payments: repo.NewPaymentRepo(db),
		events:   &recordingPublisher{},
	}
}

func (f fixture) userService(c *cache.Cache) *UserService {
	return NewUserService(UserDeps{Users: f.users, Events: f.events, Cache: c})
}

func (f fixture) requestService(strict bool) *RequestService {
	s := NewRequestService(RequestDeps{
		Requests:  f.requests,
		Users:     f.users,
		Lifecycle: domain.Lifecycle{Strict: strict},
		Events:    f.events,
	})
	s.now = stepClock()
	return s
}

func (f fixture) seedUser(t *testing.T, email string, role domain.Role, status domain.UserStatus) {
	t.Helper()
	u := &domain.User{Email: email, Name: "User " + email, Role: role, Status: status}
	if _, err := f.users.CreateIfAbsent(context.Background(), u); err != nil {
		t.Fatal(err)
	}
}

func validRequest() CreateRequestInput {
	return CreateRequestInput{
		RecipientName:     "Rahim",
		RecipientDistrict: "Dhaka",
		RecipientUpazila:  "Savar",
		HospitalName:      "Enam Medical",
		BloodGroup:        "O+",
		DonationDate:      "2025-03-10",
		DonationTime:      "10:30",
	}
}
