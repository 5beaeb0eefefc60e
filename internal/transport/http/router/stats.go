package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blood-donation-api/internal/domain"
	"blood-donation-api/internal/service"
	"blood-donation-api/internal/transport/http/ez"
)

type statsModule struct {
	svc   *service.StatsService
	staff []domain.Role
}

func (m statsModule) Mount(_, authed *gin.RouterGroup) {
	ez.RegisterAction(ez.New(authed), ez.Action[struct{}, *service.AdminStats]{
		Method: http.MethodGet,
		Path:   "/stats/admin",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  m.staff,
		Handler: func(c *gin.Context, _ *struct{}) (*service.AdminStats, error) {
			return m.svc.AdminStats(c.Request.Context())
		},
	})
}
