package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/akeren/raine-waitlist/pkg/ratelimit"
)

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: cleanPath(mountPoint),
		prepare:    prepare,
	}
}

// NewVersionedRESTController mounts under "/<version>/<mountPoint>".
func NewVersionedRESTController(name, version, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: cleanPath(version + "/" + mountPoint),
		version:    version,
		prepare:    prepare,
	}
}

// RateLimitWith applies limiter to every handler of the controller that has no handler-level limiter.
func (controller *RESTController) RateLimitWith(routerService *RouterService, limiter ratelimit.RateLimiter) *RESTController {
	routerService.bindOverrideRateLimiter(controller.mountPoint, limiter)
	return controller
}

func (routerService *RouterService) AddGetHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(http.MethodGet, controller, limiter, path, handler, middlewares)
}

func (routerService *RouterService) AddPostHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(http.MethodPost, controller, limiter, path, handler, middlewares)
}

func (routerService *RouterService) addHandler(
	method string,
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares []MiddlewareFunc,
) {
	fullPath := controller.resolve(path)
	key := routerService.keyForPathAndMethod(fullPath, method)

	if other, exists := routerService.handlerToControllerMap[key]; exists {
		panic(fmt.Sprintf("%s %s is already registered by controller %q", method, fullPath, other.name))
	}
	routerService.handlerToControllerMap[key] = controller
	routerService.bindOverrideRateLimiter(key, limiter)

	controller.handlerCount++
	routerService.engine.Handle(method, fullPath, append(middlewares, createHandler(handler))...)
	routerService.logger.Debug("Handler registered", "method", method, "path", fullPath, "controller", controller.name)
}

func (routerService *RouterService) bindOverrideRateLimiter(key string, limiter ratelimit.RateLimiter) {
	if limiter == nil {
		return
	}
	if _, exists := routerService.rateLimitOverrides[key]; exists {
		panic(fmt.Sprintf("a rate limiter is already registered for %q", key))
	}
	routerService.rateLimitOverrides[key] = limiter
}

func (routerService *RouterService) keyForPathAndMethod(path, method string) string {
	return method + "-" + path
}

func (controller *RESTController) resolve(relativePath string) string {
	return cleanPath(controller.mountPoint + "/" + relativePath)
}

// cleanPath yields a rooted path without duplicate or trailing slashes.
func cleanPath(p string) string {
	p = "/" + strings.Trim(p, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

func createHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		// Past the deadline the timeout middleware owns the response.
		if errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) {
			return
		}

		if result == nil {
			c.JSON(http.StatusInternalServerError, InternalServerErrorResult("A handler returned an undefined result. This typically indicates a bug in a handler's implementation.").ToJSON())
			return
		}

		for key, value := range result.Headers {
			c.Header(key, value)
		}

		if result.Template != "" {
			c.HTML(result.StatusCode, result.Template, result.Data)
			return
		}
		c.JSON(result.StatusCode, result.ToJSON())
	}
}
