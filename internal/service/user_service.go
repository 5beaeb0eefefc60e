package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"blood-donation-api/internal/core/cache"
	"blood-donation-api/internal/domain"
)

type UserDeps struct {
	Users  domain.UserRepository
	Events domain.EventPublisher
	Cache  *cache.Cache
	Log    *zap.Logger
}

type UserService struct {
	users domain.UserRepository
	notifier
}

func NewUserService(d UserDeps) *UserService {
	return &UserService{users: d.Users, notifier: newNotifier(d.Events, d.Cache, d.Log)}
}

type RegisterInput struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	PhotoURL   string `json:"photoURL"`
	BloodGroup string `json:"bloodGroup"`
	District   string `json:"district"`
	Upazila    string `json:"upazila"`
}

// ProfileInput carries a partial profile; nil fields are left untouched.
type ProfileInput struct {
	Name       *string `json:"name"`
	PhotoURL   *string `json:"photoURL"`
	BloodGroup *string `json:"bloodGroup"`
	District   *string `json:"district"`
	Upazila    *string `json:"upazila"`
}

type DonorQuery struct {
	BloodGroup string `form:"bloodGroup"`
	District   string `form:"district"`
	Upazila    string `form:"upazila"`
}

// Register stores a new donor account. A second registration for the same
// email fails with ErrConflict and leaves the first record as it was.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := normEmail(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalid)
	}
	if in.BloodGroup != "" && !domain.ValidBloodGroup(in.BloodGroup) {
		return nil, fmt.Errorf("%w: unknown blood group %q", domain.ErrInvalid, in.BloodGroup)
	}
	now := s.now().UTC()
	u := &domain.User{
		Email:      email,
		Name:       in.Name,
		PhotoURL:   in.PhotoURL,
		BloodGroup: in.BloodGroup,
		District:   in.District,
		Upazila:    in.Upazila,
		Role:       domain.RoleDonor,
		Status:     domain.UserActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := s.users.CreateIfAbsent(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}
	if !created {
		return nil, fmt.Errorf("user %w", domain.ErrConflict)
	}
	s.emit(ctx, domain.EventUserRegistered, email, u)
	s.invalidate(ctx, keyAdminStats)
	return u, nil
}

// Get returns nil when no user has this email.
func (s *UserService) Get(ctx context.Context, email string) (*domain.User, error) {
	return s.users.FindByEmail(ctx, normEmail(email))
}

// RoleOf is the role used for authorization; unknown emails get no role.
func (s *UserService) RoleOf(ctx context.Context, email string) (domain.Role, error) {
	u, err := s.users.FindByEmail(ctx, normEmail(email))
	if err != nil || u == nil {
		return "", err
	}
	return u.Role, nil
}

func (s *UserService) SetStatus(ctx context.Context, email string, status domain.UserStatus) (*domain.User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown user status %q", domain.ErrInvalid, status)
	}
	u, err := s.update(ctx, normEmail(email), map[string]any{"status": status})
	s.changed(ctx, domain.EventUserStatusChanged, u, err)
	return u, err
}

func (s *UserService) SetRole(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalid, role)
	}
	u, err := s.update(ctx, normEmail(email), map[string]any{"role": role})
	s.changed(ctx, domain.EventUserRoleChanged, u, err)
	return u, err
}

// changed announces an applied role or status change; the donor count in the
// admin stats depends on both.
func (s *UserService) changed(ctx context.Context, typ string, u *domain.User, err error) {
	if err != nil || u == nil {
		return
	}
	s.emit(ctx, typ, u.Email, u)
	s.invalidate(ctx, keyAdminStats)
}

// UpdateProfile lets a user edit their own profile; admins may edit anyone's.
func (s *UserService) UpdateProfile(ctx context.Context, caller Caller, email string, in ProfileInput) (*domain.User, error) {
	email = normEmail(email)
	if caller.Email != email && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: cannot edit another user's profile", domain.ErrForbidden)
	}
	fields := map[string]any{}
	for col, v := range map[string]*string{
		"name":        trimmed(in.Name),
		"photo_url":   trimmed(in.PhotoURL),
		"blood_group": trimmed(in.BloodGroup),
		"district":    trimmed(in.District),
		"upazila":     trimmed(in.Upazila),
	} {
		if v != nil {
			fields[col] = *v
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalid)
	}
	if g, ok := fields["blood_group"].(string); ok && g != "" && !domain.ValidBloodGroup(g) {
		return nil, fmt.Errorf("%w: unknown blood group %q", domain.ErrInvalid, g)
	}
	return s.update(ctx, email, fields)
}

func (s *UserService) update(ctx context.Context, email string, fields map[string]any) (*domain.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, err
	}
	if _, err := s.users.UpdateFields(ctx, email, fields); err != nil {
		return nil, fmt.Errorf("update user %s: %w", email, err)
	}
	return s.users.FindByEmail(ctx, email)
}

// List returns every user, newest first, optionally narrowed to one status.
func (s *UserService) List(ctx context.Context, status domain.UserStatus) ([]domain.User, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown user status %q", domain.ErrInvalid, status)
	}
	return s.users.List(ctx, domain.UserFilter{Status: status})
}

// SearchDonors matches active users on every non-empty field of q.
func (s *UserService) SearchDonors(ctx context.Context, q DonorQuery) ([]domain.User, error) {
	return s.users.List(ctx, domain.UserFilter{
		BloodGroup: q.BloodGroup,
		District:   q.District,
		Upazila:    q.Upazila,
		Status:     domain.UserActive,
	})
}
