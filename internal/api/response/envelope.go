package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// correlationKey mirrors middleware.ContextCorrelationID; importing the
// middleware package here would create a cycle.
const correlationKey = "correlation_id"

// Envelope wraps every JSON body the API returns. Price queries put their
// freshness-tagged result in Data; failures fill Error instead.
type Envelope struct {
	Status string     `json:"status"`
	Data   any        `json:"data,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
	Meta   Meta       `json:"meta"`
}

// ErrorBody carries a machine-readable code such as NO_DATA_AVAILABLE or
// SCHEMA_NOT_FOUND alongside a human message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Meta struct {
	CorrelationID string `json:"correlation_id"`
	Timestamp     string `json:"timestamp"`
}

func newMeta(c *gin.Context) Meta {
	id := c.GetString(correlationKey)
	if id == "" {
		id = uuid.NewString()
	}
	return Meta{CorrelationID: id, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Success writes data under a "success" envelope.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Envelope{Status: "success", Data: data, Meta: newMeta(c)})
}

// Error writes an "error" envelope with the given code.
func Error(c *gin.Context, statusCode int, code, message string, details any) {
	c.JSON(statusCode, Envelope{
		Status: "error",
		Error:  &ErrorBody{Code: code, Message: message, Details: details},
		Meta:   newMeta(c),
	})
}

// BadRequest reports an invalid query parameter or request body.
func BadRequest(c *gin.Context, message string, details any) {
	Error(c, http.StatusBadRequest, "VALIDATION_ERROR", message, details)
}

// NotFound reports an unknown city, run or other addressed resource.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// UnprocessableEntity reports a spreadsheet that arrived intact but could
// not be turned into a price table.
func UnprocessableEntity(c *gin.Context, code, message string, details any) {
	Error(c, http.StatusUnprocessableEntity, code, message, details)
}

// NoData reports that no snapshot has been published yet.
func NoData(c *gin.Context) {
	Error(c, http.StatusServiceUnavailable, "NO_DATA_AVAILABLE",
		"no price data has been ingested yet", nil)
}

func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, "FORBIDDEN", message, nil)
}
