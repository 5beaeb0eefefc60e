package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"blood-donation-api/internal/domain"
	"blood-donation-api/internal/service"
	"blood-donation-api/internal/transport/http/ez"
)

type paymentModule struct {
	svc *service.PaymentService
}

func (paymentModule) Priority() int { return 30 }

func (m paymentModule) Mount(public, authed *gin.RouterGroup) {
	pub, auth := ez.New(public), ez.New(authed)

	ez.RegisterAction(pub, ez.Action[service.CheckoutInput, *service.CheckoutResult]{
		Method: http.MethodPost,
		Path:   "/create-payment-checkout",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.CheckoutInput) (*service.CheckoutResult, error) {
			out, err := m.svc.CreateCheckout(c.Request.Context(), *in)
			return out, checkoutErr(err)
		},
	})

	ez.RegisterAction(pub, ez.Action[service.RecordInput, *service.RecordResult]{
		Method: http.MethodPost,
		Path:   "/success-payment",
		Binder: ez.BindAuto,
		Handler: func(c *gin.Context, in *service.RecordInput) (*service.RecordResult, error) {
			out, err := m.svc.RecordFromSession(c.Request.Context(), in.SessionID)
			return out, checkoutErr(err)
		},
	})

	ez.RegisterAction(auth, ez.Action[service.ListQuery, *service.Page[domain.Payment]]{
		Method: http.MethodGet,
		Path:   "/payments",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.ListQuery) (*service.Page[domain.Payment], error) {
			return m.svc.List(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(pub, ez.Action[struct{}, *service.FundingTotal]{
		Method: http.MethodGet,
		Path:   "/payments/total",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*service.FundingTotal, error) {
			return m.svc.TotalFunding(c.Request.Context())
		},
	})
}

func checkoutErr(err error) error {
	if errors.Is(err, service.ErrCheckoutDisabled) {
		return ez.Unavailable("payments are not configured", err)
	}
	return err
}
