package service

import (
	"context"
	"fmt"

	"blood-donation-api/internal/core/cache"
	"blood-donation-api/internal/domain"
)

type AdminStats struct {
	TotalUsers    int64   `json:"totalUsers"`
	TotalDonors   int64   `json:"totalDonors"`
	TotalRequests int64   `json:"totalRequests"`
	Pending       int64   `json:"pending"`
	InProgress    int64   `json:"inprogress"`
	Done          int64   `json:"done"`
	Canceled      int64   `json:"canceled"`
	TotalFunding  float64 `json:"totalFunding"`
}

type StatsService struct {
	users    domain.UserRepository
	requests domain.RequestRepository
	payments domain.PaymentRepository
	cache    *cache.Cache
}

func NewStatsService(users domain.UserRepository, requests domain.RequestRepository, payments domain.PaymentRepository, c *cache.Cache) *StatsService {
	return &StatsService{users: users, requests: requests, payments: payments, cache: c}
}

func (s *StatsService) AdminStats(ctx context.Context) (*AdminStats, error) {
	st, err := cache.GetOrLoadJSON(s.cache, ctx, keyAdminStats, s.load)
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return &st, nil
}

func (s *StatsService) load(ctx context.Context) (AdminStats, error) {
	var st AdminStats
	var err error
	if st.TotalUsers, err = s.users.Count(ctx, domain.UserFilter{}); err != nil {
		return st, err
	}
	if st.TotalDonors, err = s.users.Count(ctx, domain.UserFilter{Role: domain.RoleDonor}); err != nil {
		return st, err
	}
	byStatus, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return st, err
	}
	st.Pending = byStatus[domain.DonationPending]
	st.InProgress = byStatus[domain.DonationInProgress]
	st.Done = byStatus[domain.DonationDone]
	st.Canceled = byStatus[domain.DonationCanceled]
	for _, n := range byStatus {
		st.TotalRequests += n
	}
	if st.TotalFunding, err = s.payments.SumAmount(ctx); err != nil {
		return st, err
	}
	return st, nil
}
