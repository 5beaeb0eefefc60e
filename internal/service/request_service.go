package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"blood-donation-api/internal/core/cache"
	"blood-donation-api/internal/domain"
	"blood-donation-api/pkg/utils"
)

type RequestDeps struct {
	Requests  domain.RequestRepository
	Users     domain.UserRepository
	Lifecycle domain.Lifecycle
	Events    domain.EventPublisher
	Cache     *cache.Cache
	Log       *zap.Logger
}

// RequestService owns the donation request lifecycle and its queries.
type RequestService struct {
	requests  domain.RequestRepository
	users     domain.UserRepository
	lifecycle domain.Lifecycle
	notifier
	newID func() string
}

func NewRequestService(d RequestDeps) *RequestService {
	return &RequestService{
		requests:  d.Requests,
		users:     d.Users,
		lifecycle: d.Lifecycle,
		notifier:  newNotifier(d.Events, d.Cache, d.Log),
		newID:     utils.NewID,
	}
}

type CreateRequestInput struct {
	RequesterName     string `json:"requester_name"`
	RecipientName     string `json:"recipient_name"`
	RecipientDistrict string `json:"recipient_district"`
	RecipientUpazila  string `json:"recipient_upazila"`
	HospitalName      string `json:"hospital_name"`
	FullAddress       string `json:"full_address"`
	BloodGroup        string `json:"blood_group"`
	DonationDate      string `json:"donation_date"`
	DonationTime      string `json:"donation_time"`
	RequestMessage    string `json:"request_message"`
}

// UpdateRequestInput edits the descriptive fields of a request. Status,
// donor and requester are changed through their own operations only.
type UpdateRequestInput struct {
	RecipientName     *string `json:"recipient_name"`
	RecipientDistrict *string `json:"recipient_district"`
	RecipientUpazila  *string `json:"recipient_upazila"`
	HospitalName      *string `json:"hospital_name"`
	FullAddress       *string `json:"full_address"`
	BloodGroup        *string `json:"blood_group"`
	DonationDate      *string `json:"donation_date"`
	DonationTime      *string `json:"donation_time"`
	RequestMessage    *string `json:"request_message"`
}

type AssignInput struct {
	DonorName  string `json:"donorName"`
	DonorEmail string `json:"donorEmail"`
}

type ListQuery struct {
	Status domain.DonationStatus `form:"status"`
	Page   int                   `form:"page"`
	Size   int                   `form:"size"`
}

type SearchQuery struct {
	BloodGroup string `form:"bloodGroup"`
	District   string `form:"district"`
	Upazila    string `form:"upazila"`
}

type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

// Create files a pending request on behalf of requesterEmail. Blocked users
// are refused with ErrForbidden.
func (s *RequestService) Create(ctx context.Context, requesterEmail string, in CreateRequestInput) (*domain.DonationRequest, error) {
	email := normEmail(requesterEmail)
	if email == "" {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(in.RecipientName) == "" {
		return nil, fmt.Errorf("%w: recipient_name is required", domain.ErrInvalid)
	}
	if !domain.ValidBloodGroup(in.BloodGroup) {
		return nil, fmt.Errorf("%w: unknown blood group %q", domain.ErrInvalid, in.BloodGroup)
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load requester: %w", err)
	}
	if u != nil && u.Status == domain.UserBlocked {
		return nil, fmt.Errorf("%w: blocked users cannot create donation requests", domain.ErrForbidden)
	}
	name := strings.TrimSpace(in.RequesterName)
	if name == "" && u != nil {
		name = u.Name
	}

	now := s.now().UTC()
	r := &domain.DonationRequest{
		ID:                s.newID(),
		RequesterName:     name,
		RequesterEmail:    email,
		RecipientName:     strings.TrimSpace(in.RecipientName),
		RecipientDistrict: strings.TrimSpace(in.RecipientDistrict),
		RecipientUpazila:  strings.TrimSpace(in.RecipientUpazila),
		HospitalName:      strings.TrimSpace(in.HospitalName),
		FullAddress:       strings.TrimSpace(in.FullAddress),
		BloodGroup:        in.BloodGroup,
		DonationDate:      in.DonationDate,
		DonationTime:      in.DonationTime,
		RequestMessage:    in.RequestMessage,
		DonationStatus:    domain.DonationPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestsCreated.Inc()
	s.emit(ctx, domain.EventRequestCreated, r.ID, r)
	s.invalidate(ctx, keyAdminStats)
	return r, nil
}

// AssignDonor binds a donor and moves the request to inprogress. Assigning
// again replaces the donor. A missing request yields nil, nil.
func (s *RequestService) AssignDonor(ctx context.Context, id string, in AssignInput) (*domain.DonationRequest, error) {
	email := normEmail(in.DonorEmail)
	if email == "" {
		return nil, fmt.Errorf("%w: donor email is required", domain.ErrInvalid)
	}
	r, err := s.requests.FindByID(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}
	if err := s.lifecycle.Check(r.DonationStatus, domain.DonationInProgress); err != nil {
		return nil, err
	}
	donor := domain.DonorInfo{Name: strings.TrimSpace(in.DonorName), Email: email}
	updated, err := s.apply(ctx, id, map[string]any{
		"donation_status": domain.DonationInProgress,
		"donor_name":      donor.Name,
		"donor_email":     donor.Email,
	})
	if err != nil || updated == nil {
		return updated, err
	}
	requestTransitions.WithLabelValues(string(domain.DonationInProgress)).Inc()
	s.emit(ctx, domain.EventRequestAssigned, id, donor)
	s.invalidate(ctx, keyAdminStats)
	return updated, nil
}

// SetStatus moves a request to status. Moving back to pending or to canceled
// clears the donor; moving to inprogress or done needs one already assigned.
func (s *RequestService) SetStatus(ctx context.Context, caller Caller, id string, status domain.DonationStatus) (*domain.DonationRequest, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown donation status %q", domain.ErrInvalid, status)
	}
	r, err := s.requests.FindByID(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}
	if !canManage(caller, r) {
		return nil, fmt.Errorf("%w: not allowed to change this request", domain.ErrForbidden)
	}
	if err := s.lifecycle.Check(r.DonationStatus, status); err != nil {
		return nil, err
	}
	fields := map[string]any{"donation_status": status}
	if status.HasDonor() {
		if r.DonorInfo() == nil {
			return nil, fmt.Errorf("%w: no donor assigned, assign a donor first", domain.ErrInvalid)
		}
	} else {
		fields["donor_name"] = ""
		fields["donor_email"] = ""
	}
	updated, err := s.apply(ctx, id, fields)
	if err != nil || updated == nil {
		return updated, err
	}
	requestTransitions.WithLabelValues(string(status)).Inc()
	s.emit(ctx, domain.EventRequestStatusChanged, id, map[string]any{"from": r.DonationStatus, "to": status})
	s.invalidate(ctx, keyAdminStats)
	return updated, nil
}

// Update edits descriptive fields. Only the requester or an admin may do it.
func (s *RequestService) Update(ctx context.Context, caller Caller, id string, in UpdateRequestInput) (*domain.DonationRequest, error) {
	fields := map[string]any{}
	for col, v := range map[string]*string{
		"recipient_name":     trimmed(in.RecipientName),
		"recipient_district": trimmed(in.RecipientDistrict),
		"recipient_upazila":  trimmed(in.RecipientUpazila),
		"hospital_name":      trimmed(in.HospitalName),
		"full_address":       trimmed(in.FullAddress),
		"blood_group":        trimmed(in.BloodGroup),
		"donation_date":      in.DonationDate,
		"donation_time":      in.DonationTime,
		"request_message":    in.RequestMessage,
	} {
		if v != nil {
			fields[col] = *v
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalid)
	}
	if g, ok := fields["blood_group"].(string); ok && !domain.ValidBloodGroup(g) {
		return nil, fmt.Errorf("%w: unknown blood group %q", domain.ErrInvalid, g)
	}
	r, err := s.requests.FindByID(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}
	if !isOwnerOrAdmin(caller, r) {
		return nil, fmt.Errorf("%w: only the requester can edit this request", domain.ErrForbidden)
	}
	return s.apply(ctx, id, fields)
}

func (s *RequestService) apply(ctx context.Context, id string, fields map[string]any) (*domain.DonationRequest, error) {
	fields["updated_at"] = s.now().UTC()
	if _, err := s.requests.UpdateFields(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update request %s: %w", id, err)
	}
	return s.requests.FindByID(ctx, id)
}

func (s *RequestService) ListMine(ctx context.Context, requesterEmail string, q ListQuery) (*Page[domain.DonationRequest], error) {
	return s.list(ctx, domain.RequestFilter{RequesterEmail: normEmail(requesterEmail)}, q)
}

func (s *RequestService) ListAll(ctx context.Context, q ListQuery) (*Page[domain.DonationRequest], error) {
	return s.list(ctx, domain.RequestFilter{}, q)
}

func (s *RequestService) list(ctx context.Context, f domain.RequestFilter, q ListQuery) (*Page[domain.DonationRequest], error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown donation status %q", domain.ErrInvalid, q.Status)
	}
	f.Status = q.Status
	page := max(q.Page, 0)
	size := utils.ClampSize(q.Size, defaultPageSize, maxPageSize)
	items, total, err := s.requests.List(ctx, f, utils.Offset(page, size), size)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return &Page[domain.DonationRequest]{List: items, Total: total, Page: page, Size: size}, nil
}

// ListPending returns every pending request, newest first.
func (s *RequestService) ListPending(ctx context.Context) ([]domain.DonationRequest, error) {
	items, _, err := s.requests.List(ctx, domain.RequestFilter{Status: domain.DonationPending}, 0, 0)
	return items, err
}

func (s *RequestService) Get(ctx context.Context, id string) (*domain.DonationRequest, error) {
	return s.requests.FindByID(ctx, id)
}

// SearchPublic matches requests on every non-empty field of q.
func (s *RequestService) SearchPublic(ctx context.Context, q SearchQuery) ([]domain.DonationRequest, error) {
	items, _, err := s.requests.List(ctx, domain.RequestFilter{
		BloodGroup: q.BloodGroup,
		District:   q.District,
		Upazila:    q.Upazila,
	}, 0, 0)
	return items, err
}

// Delete removes a request for good. Only the requester or an admin may.
func (s *RequestService) Delete(ctx context.Context, caller Caller, id string) (*DeleteResult, error) {
	r, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return &DeleteResult{}, nil
	}
	if !isOwnerOrAdmin(caller, r) {
		return nil, fmt.Errorf("%w: only the requester or an admin can delete this request", domain.ErrForbidden)
	}
	n, err := s.requests.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete request %s: %w", id, err)
	}
	if n > 0 {
		s.emit(ctx, domain.EventRequestDeleted, id, nil)
		s.invalidate(ctx, keyAdminStats)
	}
	return &DeleteResult{DeletedCount: n}, nil
}

func isOwnerOrAdmin(c Caller, r *domain.DonationRequest) bool {
	return c.IsAdmin() || (c.Email != "" && normEmail(c.Email) == r.RequesterEmail)
}

// canManage also admits volunteers and the assigned donor, who report
// progress on requests they do not own.
func canManage(c Caller, r *domain.DonationRequest) bool {
	if isOwnerOrAdmin(c, r) || c.Role == domain.RoleVolunteer {
		return true
	}
	return c.Email != "" && normEmail(c.Email) == r.DonorEmail
}
