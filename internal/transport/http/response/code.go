package response

import "net/http"

// MsgUnauthorized is the body message for every authentication failure.
const MsgUnauthorized = "unauthorize access"

// CodeMsgMap holds the default message per HTTP status.
var CodeMsgMap = map[int]string{
	http.StatusBadRequest:            "bad request",
	http.StatusUnauthorized:          MsgUnauthorized,
	http.StatusForbidden:             "forbidden access",
	http.StatusNotFound:              "not found",
	http.StatusRequestEntityTooLarge: "request body too large",
	http.StatusTooManyRequests:       "too many requests",
	http.StatusInternalServerError:   "internal error",
	http.StatusServiceUnavailable:    "server busy",
	http.StatusGatewayTimeout:        "timeout",
}
