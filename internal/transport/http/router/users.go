package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blood-donation-api/internal/domain"
	"blood-donation-api/internal/service"
	"blood-donation-api/internal/transport/http/ez"
)

type userModule struct {
	svc   *service.UserService
	admin []domain.Role
}

func (userModule) Priority() int { return 10 }

func (m userModule) Mount(public, authed *gin.RouterGroup) {
	pub, auth := ez.New(public), ez.New(authed)

	ez.RegisterAction(pub, ez.Action[service.RegisterInput, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.RegisterInput) (*domain.User, error) {
			return m.svc.Register(c.Request.Context(), *in)
		},
	})

	type listQ struct {
		Status domain.UserStatus `form:"status"`
	}
	ez.RegisterAction(auth, ez.Action[listQ, []domain.User]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  m.admin,
		Handler: func(c *gin.Context, in *listQ) ([]domain.User, error) {
			return m.svc.List(c.Request.Context(), in.Status)
		},
	})

	ez.RegisterAction(pub, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/role/:email",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return m.svc.Get(c.Request.Context(), c.Param("email"))
		},
	})

	type statusIn struct {
		Email  string            `json:"email" form:"email"`
		Status domain.UserStatus `json:"status" form:"status"`
	}
	ez.RegisterAction(auth, ez.Action[statusIn, *domain.User]{
		Method: http.MethodPatch,
		Path:   "/update/user/status",
		Binder: ez.BindAuto,
		Auth:   true,
		Roles:  m.admin,
		Handler: func(c *gin.Context, in *statusIn) (*domain.User, error) {
			return m.svc.SetStatus(c.Request.Context(), in.Email, in.Status)
		},
	})

	type roleIn struct {
		Email string      `json:"email" form:"email"`
		Role  domain.Role `json:"role" form:"role"`
	}
	ez.RegisterAction(auth, ez.Action[roleIn, *domain.User]{
		Method: http.MethodPatch,
		Path:   "/update/user/role",
		Binder: ez.BindAuto,
		Auth:   true,
		Roles:  m.admin,
		Handler: func(c *gin.Context, in *roleIn) (*domain.User, error) {
			return m.svc.SetRole(c.Request.Context(), in.Email, in.Role)
		},
	})

	ez.RegisterAction(auth, ez.Action[service.ProfileInput, *domain.User]{
		Method: http.MethodPatch,
		Path:   "/users/:email",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.ProfileInput) (*domain.User, error) {
			return m.svc.UpdateProfile(c.Request.Context(), callerOf(c), c.Param("email"), *in)
		},
	})

	ez.RegisterAction(pub, ez.Action[service.DonorQuery, []domain.User]{
		Method: http.MethodGet,
		Path:   "/search-donors",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *service.DonorQuery) ([]domain.User, error) {
			return m.svc.SearchDonors(c.Request.Context(), *in)
		},
	})
}

func callerOf(c *gin.Context) service.Caller {
	return service.Caller{
		Email: c.GetString(ez.KeyEmail),
		Role:  domain.Role(c.GetString(ez.KeyRole)),
	}
}
