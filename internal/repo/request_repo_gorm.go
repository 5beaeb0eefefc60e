package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"blood-donation-api/internal/domain"
)

type RequestRepo struct{ db *gorm.DB }

func NewRequestRepo(db *gorm.DB) *RequestRepo { return &RequestRepo{db: db} }

func (r *RequestRepo) Create(ctx context.Context, req *domain.DonationRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequestRepo) FindByID(ctx context.Context, id string) (*domain.DonationRequest, error) {
	var req domain.DonationRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepo) List(ctx context.Context, f domain.RequestFilter, offset, limit int) ([]domain.DonationRequest, int64, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&domain.DonationRequest{}).Scopes(requestFilter(f))
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := []domain.DonationRequest{}
	q := base().Order("created_at desc")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *RequestRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.DonationRequest{}).Where("id = ?", id).Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *RequestRepo) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.DonationRequest{})
	return res.RowsAffected, res.Error
}

func (r *RequestRepo) CountByStatus(ctx context.Context) (map[domain.DonationStatus]int64, error) {
	var rows []struct {
		DonationStatus domain.DonationStatus
		N              int64
	}
	err := r.db.WithContext(ctx).Model(&domain.DonationRequest{}).
		Select("donation_status, count(*) as n").
		Group("donation_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.DonationStatus]int64, len(domain.DonationStatuses))
	for _, s := range domain.DonationStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.DonationStatus] = row.N
	}
	return out, nil
}

func requestFilter(f domain.RequestFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.RequesterEmail != "" {
			q = q.Where("requester_email = ?", f.RequesterEmail)
		}
		if f.Status != "" {
			q = q.Where("donation_status = ?", f.Status)
		}
		if f.BloodGroup != "" {
			q = q.Where("blood_group = ?", f.BloodGroup)
		}
		if f.District != "" {
			q = q.Where("recipient_district = ?", f.District)
		}
		if f.Upazila != "" {
			q = q.Where("recipient_upazila = ?", f.Upazila)
		}
		return q
	}
}
