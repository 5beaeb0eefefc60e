package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blood-donation-api/internal/domain"
	"blood-donation-api/internal/service"
	"blood-donation-api/internal/transport/http/ez"
)

type requestModule struct {
	svc   *service.RequestService
	users *service.UserService
	staff []domain.Role
}

func (requestModule) Priority() int { return 20 }

func (m requestModule) Mount(public, authed *gin.RouterGroup) {
	pub, auth := ez.New(public), ez.New(authed)

	ez.RegisterAction(auth, ez.Action[service.CreateRequestInput, *domain.DonationRequest]{
		Method: http.MethodPost,
		Path:   "/requests",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.CreateRequestInput) (*domain.DonationRequest, error) {
			return m.svc.Create(c.Request.Context(), c.GetString(ez.KeyEmail), *in)
		},
	})

	ez.RegisterAction(auth, ez.Action[service.ListQuery, *service.Page[domain.DonationRequest]]{
		Method: http.MethodGet,
		Path:   "/my-request",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.ListQuery) (*service.Page[domain.DonationRequest], error) {
			return m.svc.ListMine(c.Request.Context(), c.GetString(ez.KeyEmail), *in)
		},
	})

	ez.RegisterAction(auth, ez.Action[service.ListQuery, *service.Page[domain.DonationRequest]]{
		Method: http.MethodGet,
		Path:   "/all-requests",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  m.staff,
		Handler: func(c *gin.Context, in *service.ListQuery) (*service.Page[domain.DonationRequest], error) {
			return m.svc.ListAll(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(pub, ez.Action[struct{}, []domain.DonationRequest]{
		Method: http.MethodGet,
		Path:   "/pending-requests",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.DonationRequest, error) {
			return m.svc.ListPending(c.Request.Context())
		},
	})

	ez.RegisterAction(pub, ez.Action[struct{}, *domain.DonationRequest]{
		Method: http.MethodGet,
		Path:   "/requests/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.DonationRequest, error) {
			return m.svc.Get(c.Request.Context(), c.Param("id"))
		},
	})

	ez.RegisterAction(auth, ez.Action[service.UpdateRequestInput, *domain.DonationRequest]{
		Method: http.MethodPatch,
		Path:   "/requests/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.UpdateRequestInput) (*domain.DonationRequest, error) {
			return m.svc.Update(c.Request.Context(), callerOf(c), c.Param("id"), *in)
		},
	})

	type statusIn struct {
		Status domain.DonationStatus `json:"status" form:"status"`
	}
	ez.RegisterAction(auth, ez.Action[statusIn, *domain.DonationRequest]{
		Method: http.MethodPatch,
		Path:   "/requests/:id/status",
		Binder: ez.BindAuto,
		Auth:   true,
		Handler: func(c *gin.Context, in *statusIn) (*domain.DonationRequest, error) {
			return m.svc.SetStatus(c.Request.Context(), callerOf(c), c.Param("id"), in.Status)
		},
	})

	// with an empty body the caller volunteers as the donor
	ez.RegisterAction(auth, ez.Action[service.AssignInput, *domain.DonationRequest]{
		Method: http.MethodPatch,
		Path:   "/requests/:id/assign-donor",
		Binder: ez.BindAuto,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.AssignInput) (*domain.DonationRequest, error) {
			ctx := c.Request.Context()
			if in.DonorEmail == "" {
				in.DonorEmail = c.GetString(ez.KeyEmail)
			}
			if in.DonorName == "" {
				u, err := m.users.Get(ctx, in.DonorEmail)
				if err != nil {
					return nil, err
				}
				if u != nil {
					in.DonorName = u.Name
				}
			}
			return m.svc.AssignDonor(ctx, c.Param("id"), *in)
		},
	})

	ez.RegisterAction(auth, ez.Action[struct{}, *service.DeleteResult]{
		Method: http.MethodDelete,
		Path:   "/requests/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.DeleteResult, error) {
			return m.svc.Delete(c.Request.Context(), callerOf(c), c.Param("id"))
		},
	})

	ez.RegisterAction(pub, ez.Action[service.SearchQuery, []domain.DonationRequest]{
		Method: http.MethodGet,
		Path:   "/search-requests",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *service.SearchQuery) ([]domain.DonationRequest, error) {
			return m.svc.SearchPublic(c.Request.Context(), *in)
		},
	})
}
