package domain

import (
	"context"
	"encoding/json"
	"time"
)

type DonationStatus string

const (
	DonationPending    DonationStatus = "pending"
	DonationInProgress DonationStatus = "inprogress"
	DonationDone       DonationStatus = "done"
	DonationCanceled   DonationStatus = "canceled"
)

var DonationStatuses = []DonationStatus{DonationPending, DonationInProgress, DonationDone, DonationCanceled}

func (s DonationStatus) Valid() bool {
	for _, v := range DonationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// HasDonor reports whether a request in this status carries donor info.
func (s DonationStatus) HasDonor() bool { return s == DonationInProgress || s == DonationDone }

type DonorInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type DonationRequest struct {
	ID                string         `gorm:"primaryKey;size:32" json:"_id"`
	RequesterName     string         `gorm:"size:64" json:"requester_name"`
	RequesterEmail    string         `gorm:"size:191;index;not null" json:"requester_email"`
	RecipientName     string         `gorm:"size:64" json:"recipient_name"`
	RecipientDistrict string         `gorm:"size:64;index" json:"recipient_district"`
	RecipientUpazila  string         `gorm:"size:64" json:"recipient_upazila"`
	HospitalName      string         `gorm:"size:128" json:"hospital_name"`
	FullAddress       string         `gorm:"size:255" json:"full_address"`
	BloodGroup        string         `gorm:"size:8;index" json:"blood_group"`
	DonationDate      string         `gorm:"size:32" json:"donation_date"`
	DonationTime      string         `gorm:"size:32" json:"donation_time"`
	RequestMessage    string         `gorm:"type:text" json:"request_message"`
	DonationStatus    DonationStatus `gorm:"size:16;not null;default:pending;index" json:"donation_status"`
	DonorName         string         `gorm:"size:64" json:"-"`
	DonorEmail        string         `gorm:"size:191" json:"-"`
	CreatedAt         time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

func (DonationRequest) TableName() string { return "donation_requests" }

func (r DonationRequest) DonorInfo() *DonorInfo {
	if r.DonorName == "" && r.DonorEmail == "" {
		return nil
	}
	return &DonorInfo{Name: r.DonorName, Email: r.DonorEmail}
}

func (r DonationRequest) MarshalJSON() ([]byte, error) {
	type plain DonationRequest
	return json.Marshal(struct {
		plain
		DonorInfo *DonorInfo `json:"donor_info"`
	}{plain(r), r.DonorInfo()})
}

// RequestFilter fields are exact matches; empty fields are not applied.
type RequestFilter struct {
	RequesterEmail string
	Status         DonationStatus
	BloodGroup     string
	District       string
	Upazila        string
}

type RequestRepository interface {
	Create(ctx context.Context, r *DonationRequest) error
	FindByID(ctx context.Context, id string) (*DonationRequest, error)
	// List orders by createdAt desc. limit <= 0 returns every match.
	List(ctx context.Context, f RequestFilter, offset, limit int) ([]DonationRequest, int64, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	CountByStatus(ctx context.Context) (map[DonationStatus]int64, error)
}
