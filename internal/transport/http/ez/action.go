// Package ez registers typed actions on gin: bind the input, run a handler
// and write either the raw result or a {"message"} error.
package ez

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"blood-donation-api/internal/domain"
	resp "blood-donation-api/internal/transport/http/response"
)

// context keys set by the auth middleware
const (
	KeyEmail = "email"
	KeyRole  = "role"
	KeyUID   = "uid"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

type Binder string

const (
	BindJSON  Binder = "json"  // request body
	BindQuery Binder = "query" // URL query
	BindAuto  Binder = "auto"  // query, then a JSON body on top when present
	BindNone  Binder = "none"  // handler reads c.Param itself
)

// AErr is an error with an explicit HTTP status.
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: http.StatusBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: http.StatusUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: http.StatusForbidden, Msg: msg} }

func TooLarge(err error) error {
	return &AErr{Code: http.StatusRequestEntityTooLarge, Err: err}
}

// Unavailable reports a dependency that is switched off; msg reaches the client.
func Unavailable(msg string, err error) error {
	return &AErr{Code: http.StatusServiceUnavailable, Msg: msg, Err: err}
}

// Action describes one route. I is the bound input, O the result.
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Auth    bool          // require a verified caller
	Roles   []domain.Role // when set, the caller's role must be one of these
	Handler func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		if a.Auth && c.GetString(KeyEmail) == "" {
			fail(c, Unauthorized(""))
			return
		}
		if len(a.Roles) > 0 && !hasRole(domain.Role(c.GetString(KeyRole)), a.Roles) {
			fail(c, Forbidden(""))
			return
		}

		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				fail(c, TooLarge(err))
				return
			}
			fail(c, BadRequest("invalid input: "+err.Error()))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

// fail writes the client view of err; server-side causes go to c.Errors.
func fail(c *gin.Context, err error) {
	code, msg := classify(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	resp.Abort(c, code, msg)
}

func bind(c *gin.Context, b Binder, in any) error {
	switch b {
	case BindJSON:
		return c.ShouldBindJSON(in)
	case BindQuery:
		return c.ShouldBindQuery(in)
	case BindAuto:
		if err := c.ShouldBindQuery(in); err != nil {
			return err
		}
		if c.Request.ContentLength != 0 && c.ContentType() == gin.MIMEJSON {
			return c.ShouldBindJSON(in)
		}
	}
	return nil
}

func hasRole(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// classify maps an error to a status and the message the client sees.
// Store and provider failures are not echoed back.
func classify(err error) (int, string) {
	var ae *AErr
	switch {
	case errors.As(err, &ae):
		if ae.Code == http.StatusServiceUnavailable && ae.Msg != "" {
			return ae.Code, ae.Msg
		}
		if ae.Code >= http.StatusInternalServerError {
			return ae.Code, resp.CodeMsgMap[http.StatusInternalServerError]
		}
		return ae.Code, ae.Msg
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, resp.MsgUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ""
	default:
		return http.StatusInternalServerError, ""
	}
}
