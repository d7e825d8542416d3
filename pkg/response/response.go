package response

import (
	"errors"
	"net/http"
	"time"

	"provably-fair-dice/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key the request ID middleware writes.
const RequestIDKey = "request_id"

// now is replaced in tests.
var now = time.Now

// SuccessResponse wraps every successful payload.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse carries a stable apperror code. Internal causes never leave
// the process.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, data)
}

// Error renders err. Anything that is not an *apperror.AppError becomes
// SYS_000. Server-side failures are attached to c.Errors so the request
// logger records the cause.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		RequestID: requestID(c),
		Timestamp: timestamp(),
	})
}

func write(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: requestID(c),
		Timestamp: timestamp(),
	})
}

func timestamp() string {
	return now().UTC().Format(time.RFC3339)
}

// requestID returns the ID assigned by the middleware. Without one, a fresh
// ID is minted and stored so later writers agree on it.
func requestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	id := uuid.New().String()
	c.Set(RequestIDKey, id)
	return id
}
