package router

import (
	"net/http"

	"github.com/akeren/raine-waitlist/internal/log"
	apperrors "github.com/akeren/raine-waitlist/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ServiceResult is what handlers return; it serializes as the {code, data, message} envelope.
type ServiceResult struct {
	StatusCode int    `json:"code"`
	Data       any    `json:"data"`
	Message    string `json:"message"`

	// Template renders Data through the named HTML template instead of the JSON envelope.
	Template string `json:"-"`
	// Headers are written before the body.
	Headers map[string]string `json:"-"`
}

func (result *ServiceResult) ToJSON() gin.H {
	return gin.H{"code": result.StatusCode, "data": result.Data, "message": result.Message}
}

// WithHeader sets a response header and returns the result for chaining.
func (result *ServiceResult) WithHeader(key, value string) *ServiceResult {
	if result.Headers == nil {
		result.Headers = make(map[string]string)
	}
	result.Headers[key] = value
	return result
}

// GetLogger returns the request-scoped logger injected by the router middleware.
func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

func OKResult(data any, message string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusOK, Data: data, Message: message}
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusTooManyRequests, Data: data, Message: "Too Many Requests"}
}

func InternalServerErrorResult(message string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusInternalServerError, Message: message}
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Data: data, Message: message}
}

// ErrorFrom maps a classified error onto its HTTP status and client-safe message.
func ErrorFrom(err error) *ServiceResult {
	return &ServiceResult{StatusCode: apperrors.HTTPStatusCode(err), Message: apperrors.PublicMessage(err)}
}

// HTMLResult renders data through a template installed with SetHTMLTemplate.
func HTMLResult(statusCode int, template string, data any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Data: data, Template: template}
}
