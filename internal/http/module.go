package http

import (
	"invoicing_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is the unauthenticated /api/v1 route group.
	V1 *gin.RouterGroup
	// Protected is the tenant-authenticated route group under /api/v1.
	Protected *gin.RouterGroup
	// Config is the JWT configuration for modules that need scoped access.
	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
}
