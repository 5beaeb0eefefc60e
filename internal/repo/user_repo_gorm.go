package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"blood-donation-api/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(u)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, error) {
	users := []domain.User{}
	err := r.db.WithContext(ctx).Scopes(userFilter(f)).Order("created_at desc").Find(&users).Error
	return users, err
}

func (r *UserRepo) Count(ctx context.Context, f domain.UserFilter) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Scopes(userFilter(f)).Count(&n).Error
	return n, err
}

func (r *UserRepo) UpdateFields(ctx context.Context, email string, fields map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Updates(fields)
	return res.RowsAffected, res.Error
}

func userFilter(f domain.UserFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.BloodGroup != "" {
			q = q.Where("blood_group = ?", f.BloodGroup)
		}
		if f.District != "" {
			q = q.Where("district = ?", f.District)
		}
		if f.Upazila != "" {
			q = q.Where("upazila = ?", f.Upazila)
		}
		if f.Role != "" {
			q = q.Where("role = ?", f.Role)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		return q
	}
}
