package waitlist

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/akeren/raine-waitlist/config/router"
	"github.com/akeren/raine-waitlist/pkg/ratelimit"
	"github.com/gin-gonic/gin/binding"
)

func NewWaitlistController(service WaitlistService) *router.RESTController {
	return router.NewVersionedRESTController(
		"WaitlistController",
		"v1",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			submissionLimiter := createWaitlistSubmissionRateLimiter(rs)

			rs.AddPostHandler(c, submissionLimiter, "", submitWaitlistEntryHandler(service))
			rs.AddGetHandler(c, nil, "/stats", getWaitlistStatsHandler(service))
		},
	)
}

// Coarse abuse guard in front of the service's own per-origin submission window.
const submissionThrottlePerMinute = 30

func createWaitlistSubmissionRateLimiter(rs *router.RouterService) ratelimit.RateLimiter {
	return rs.NewThrottle(submissionThrottlePerMinute, time.Minute)
}

func submitWaitlistEntryHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req SubmitWaitlistRequest

		// JSON for API clients, urlencoded/multipart for the landing page form.
		// An unreadable body still counts as an attempt and fails validation in the service.
		b := binding.Default(ctx.Request.Method, ctx.ContentType())
		if err := ctx.ShouldBindWith(&req, b); err != nil {
			logger.Warn("Failed to bind waitlist submission", "error", err)
			req = SubmitWaitlistRequest{}
		}

		result := service.Submit(ctx.Request.Context(), req, ctx.ClientIP())

		return toServiceResult(result)
	}
}

func getWaitlistStatsHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		stats := service.Stats(ctx.Request.Context(), ctx.Query("app_slug"))
		return router.OKResult(stats, "Waitlist stats retrieved successfully")
	}
}

// SubmissionStatusCode maps a submission outcome onto an HTTP status.
func SubmissionStatusCode(outcome Outcome) int {
	switch outcome {
	case OutcomeCreated:
		return http.StatusCreated
	case OutcomeDuplicate:
		return http.StatusOK
	case OutcomeInvalid:
		return http.StatusBadRequest
	case OutcomeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func toServiceResult(result *SubmissionResult) *router.ServiceResult {
	serviceResult := &router.ServiceResult{
		StatusCode: SubmissionStatusCode(result.Outcome),
		Data:       result,
		Message:    result.Message,
	}

	if result.Outcome == OutcomeRateLimited {
		retryAfterSeconds := int(math.Ceil(result.RetryAfter.Seconds()))
		if retryAfterSeconds < 1 {
			retryAfterSeconds = 1
		}
		serviceResult.WithHeader("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	return serviceResult
}
