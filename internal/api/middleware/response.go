package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// TimestampLayout is used for every timestamp in response bodies.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	unauthorizedMessage = "Full authentication is required to access this resource"
	forbiddenMessage    = "You do not have permission to access this resource"
)

// RejectionResponse is the body of every 401 and 403 produced by the access
// layer. It never carries anything derived from the presented token.
type RejectionResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Method    string `json:"method"`
	Endpoint  string `json:"endpoint"`
	UserAgent string `json:"userAgent"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the short envelope used by the auth endpoints and the
// HTTP error handler.
type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewErrorResponse builds the short envelope.
func NewErrorResponse(msg string, now time.Time) ErrorResponse {
	return ErrorResponse{Error: msg, Timestamp: FormatTimestamp(now)}
}

func reject(c echo.Context, status int, now time.Time) error {
	req := c.Request()
	body := RejectionResponse{
		Status:    status,
		Method:    req.Method,
		Endpoint:  req.URL.Path,
		UserAgent: req.UserAgent(),
		Timestamp: FormatTimestamp(now),
	}
	switch status {
	case http.StatusUnauthorized:
		body.Error, body.Message = "unauthorized", unauthorizedMessage
	default:
		body.Error, body.Message = "forbidden", forbiddenMessage
	}
	return c.JSON(status, body)
}
