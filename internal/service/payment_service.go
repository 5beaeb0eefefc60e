package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"blood-donation-api/internal/core/cache"
	"blood-donation-api/internal/domain"
	"blood-donation-api/pkg/utils"
)

var ErrCheckoutDisabled = errors.New("checkout provider is not configured")

type PaymentDeps struct {
	Payments domain.PaymentRepository
	// Provider may be nil when no checkout key is configured; recording and
	// listing still work, starting a checkout does not.
	Provider domain.CheckoutProvider
	Events   domain.EventPublisher
	Cache    *cache.Cache
	Log      *zap.Logger
}

type PaymentService struct {
	payments domain.PaymentRepository
	provider domain.CheckoutProvider
	notifier
}

func NewPaymentService(d PaymentDeps) *PaymentService {
	return &PaymentService{
		payments: d.Payments,
		provider: d.Provider,
		notifier: newNotifier(d.Events, d.Cache, d.Log),
	}
}

type CheckoutInput struct {
	Amount     float64 `json:"amount"`
	DonorName  string  `json:"donorName"`
	DonorEmail string  `json:"donorEmail"`
}

type CheckoutResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type RecordInput struct {
	SessionID string `json:"sessionId" form:"session_id"`
}

type RecordResult struct {
	Recorded        bool            `json:"recorded"`
	AlreadyRecorded bool            `json:"alreadyRecorded"`
	PaymentStatus   string          `json:"paymentStatus"`
	TransactionID   string          `json:"transactionId,omitempty"`
	Payment         *domain.Payment `json:"payment,omitempty"`
}

type FundingTotal struct {
	Total float64 `json:"total"`
}

func (s *PaymentService) CreateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalid)
	}
	if s.provider == nil {
		return nil, ErrCheckoutDisabled
	}
	sess, err := s.provider.CreateSession(ctx, domain.CheckoutInput{
		Amount:     in.Amount,
		DonorName:  strings.TrimSpace(in.DonorName),
		DonorEmail: normEmail(in.DonorEmail),
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutResult{ID: sess.ID, URL: sess.URL}, nil
}

// RecordFromSession stores the payment behind a completed checkout session.
// It is idempotent per transaction id. Sessions that are not paid yet are
// reported back and nothing is stored.
func (s *PaymentService) RecordFromSession(ctx context.Context, sessionID string) (*RecordResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalid)
	}
	if s.provider == nil {
		return nil, ErrCheckoutDisabled
	}
	sess, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch checkout session: %w", err)
	}
	txID := sess.TransactionID
	if txID == "" {
		txID = sess.ID
	}
	res := &RecordResult{PaymentStatus: sess.PaymentStatus, TransactionID: txID}

	existing, err := s.payments.FindByTransactionID(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("lookup payment: %w", err)
	}
	if existing != nil {
		res.AlreadyRecorded = true
		res.Payment = existing
		return res, nil
	}
	if sess.PaymentStatus != domain.PaymentPaid {
		s.log.Info("checkout session not paid", zap.String("session", sessionID), zap.String("status", sess.PaymentStatus))
		return res, nil
	}

	p := &domain.Payment{
		TransactionID: txID,
		SessionID:     sess.ID,
		Amount:        sess.Amount,
		Currency:      sess.Currency,
		DonorEmail:    normEmail(sess.DonorEmail),
		DonorName:     sess.DonorName,
		PaymentStatus: sess.PaymentStatus,
		PaidAt:        s.now().UTC(),
	}
	created, err := s.payments.CreateIfAbsent(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	if !created {
		// a concurrent call for the same session won the insert
		winner, err := s.payments.FindByTransactionID(ctx, txID)
		if err != nil {
			return nil, fmt.Errorf("lookup payment: %w", err)
		}
		res.AlreadyRecorded = true
		res.Payment = winner
		return res, nil
	}
	res.Recorded = true
	res.Payment = p
	paymentsRecorded.Inc()
	fundingAmount.Add(p.Amount)
	s.emit(ctx, domain.EventPaymentRecorded, txID, p)
	s.invalidate(ctx, keyFundingTotal, keyAdminStats)
	return res, nil
}

func (s *PaymentService) List(ctx context.Context, q ListQuery) (*Page[domain.Payment], error) {
	page := max(q.Page, 0)
	size := utils.ClampSize(q.Size, defaultPageSize, maxPageSize)
	items, total, err := s.payments.List(ctx, utils.Offset(page, size), size)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return &Page[domain.Payment]{List: items, Total: total, Page: page, Size: size}, nil
}

// TotalFunding sums every recorded payment; cached until the next payment.
func (s *PaymentService) TotalFunding(ctx context.Context) (*FundingTotal, error) {
	total, err := cache.GetOrLoadJSON(s.cache, ctx, keyFundingTotal, func(ctx context.Context) (float64, error) {
		return s.payments.SumAmount(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("total funding: %w", err)
	}
	return &FundingTotal{Total: total}, nil
}
