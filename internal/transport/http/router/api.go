package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"blood-donation-api/internal/core/auth"
	"blood-donation-api/internal/core/config"
	"blood-donation-api/internal/core/server"
	"blood-donation-api/internal/domain"
	"blood-donation-api/internal/service"
	mdw "blood-donation-api/internal/transport/http/middleware"
	resp "blood-donation-api/internal/transport/http/response"
)

type Deps struct {
	Log      *zap.Logger
	Verifier auth.Verifier
	Users    *service.UserService
	Requests *service.RequestService
	Payments *service.PaymentService
	Stats    *service.StatsService
	Limits   config.Limits
	// EnforceRoles restricts user administration to admins and the global
	// listings to admins and volunteers.
	EnforceRoles bool
	// Ready reports whether the backing stores answer; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := server.NewRouter(d.Log)

	rps := rate.Limit(d.Limits.RPS)
	if rps <= 0 {
		rps = rate.Inf
	}
	r.Use(
		mdw.RequestID(),
		mdw.RateLimitPerIP(rps, max(d.Limits.Burst, 1), 10*time.Minute),
		mdw.ConcurrencyLimit(max(d.Limits.Concurrency, 1)),
		mdw.MaxBodyBytes(max(d.Limits.MaxBodyMB, 1)<<20),
		mdw.Timeout(time.Duration(max(d.Limits.TimeoutSec, 1))*time.Second),
		mdw.Recovery(d.Log),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)
	r.NoRoute(func(c *gin.Context) { resp.Abort(c, http.StatusNotFound, "") })

	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "Server is running") })
	r.GET("/health", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(c.Request.Context()); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": 0})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var admins, staff []domain.Role
	if d.EnforceRoles {
		admins = []domain.Role{domain.RoleAdmin}
		staff = []domain.Role{domain.RoleAdmin, domain.RoleVolunteer}
	}

	public := r.Group("")
	authed := r.Group("")
	authed.Use(mdw.Auth(d.Verifier, d.Users.RoleOf, d.Log))

	var reg Registry
	reg.Register(
		userModule{svc: d.Users, admin: admins},
		requestModule{svc: d.Requests, users: d.Users, staff: staff},
		paymentModule{svc: d.Payments},
		statsModule{svc: d.Stats, staff: staff},
	)
	reg.MountAll(public, authed)
	return r
}
