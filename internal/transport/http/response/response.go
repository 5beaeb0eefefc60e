package response

import "github.com/gin-gonic/gin"

// Msg is the error body: {"message": "..."}. Successful responses carry the
// result itself with no envelope.
type Msg struct {
	Message string `json:"message"`
}

// Error builds the body for code, preferring customMsg when set.
func Error(code int, customMsg string) Msg {
	if customMsg != "" {
		return Msg{Message: customMsg}
	}
	if m, ok := CodeMsgMap[code]; ok {
		return Msg{Message: m}
	}
	return Msg{Message: "error"}
}

func Abort(c *gin.Context, code int, customMsg string) {
	c.AbortWithStatusJSON(code, Error(code, customMsg))
}
