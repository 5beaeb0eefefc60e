package domain

import (
	"context"
	"time"
)

const PaymentPaid = "paid"

type Payment struct {
	TransactionID string    `gorm:"primaryKey;size:191" json:"transactionId"`
	SessionID     string    `gorm:"size:191;index" json:"sessionId"`
	Amount        float64   `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"size:8" json:"currency"`
	DonorEmail    string    `gorm:"size:191;index" json:"donorEmail"`
	DonorName     string    `gorm:"size:64" json:"donorName"`
	PaymentStatus string    `gorm:"size:16" json:"payment_status"`
	PaidAt        time.Time `gorm:"index" json:"paidAt"`
}

func (Payment) TableName() string { return "payments" }

type PaymentRepository interface {
	// CreateIfAbsent reports false when the transaction id is already recorded.
	CreateIfAbsent(ctx context.Context, p *Payment) (bool, error)
	FindByTransactionID(ctx context.Context, id string) (*Payment, error)
	List(ctx context.Context, offset, limit int) ([]Payment, int64, error)
	SumAmount(ctx context.Context) (float64, error)
}

type CheckoutInput struct {
	Amount     float64
	DonorName  string
	DonorEmail string
}

type CheckoutSession struct {
	ID            string
	URL           string
	TransactionID string
	PaymentStatus string
	Amount        float64
	Currency      string
	DonorEmail    string
	DonorName     string
}

type CheckoutProvider interface {
	CreateSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error)
	GetSession(ctx context.Context, id string) (*CheckoutSession, error)
}
