package router

import (
	"github.com/gin-gonic/gin"
)

type (
	RequestContext  = gin.Context
	MiddlewareFunc  = gin.HandlerFunc
	HandlerFunction func(*RequestContext) *ServiceResult
)

// RESTController groups handlers under one mount point. prepare registers them once mounted.
type RESTController struct {
	name         string
	mountPoint   string
	version      string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

// RateLimitResponse is the data of a 429 envelope.
type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}
