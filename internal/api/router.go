package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/pow-ledger/internal/api/handlers"
	"github.com/thanhnp/pow-ledger/internal/api/middleware"
	"github.com/thanhnp/pow-ledger/internal/registry"
)

// Router wraps the Gin router with handlers
type Router struct {
	engine       *gin.Engine
	registry     *registry.Registry
	chainHandler *handlers.ChainHandler
	blockHandler *handlers.BlockHandler
}

// NewRouter creates a new Router with all handlers
func NewRouter(reg *registry.Registry, defaults handlers.ChainDefaults, miningTimeout time.Duration) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:       gin.New(),
		registry:     reg,
		chainHandler: handlers.NewChainHandler(reg, defaults, miningTimeout),
		blockHandler: handlers.NewBlockHandler(reg.BlockStore()),
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// setupMiddleware configures middleware
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.CORS())
}

// setupRoutes configures API routes
func (r *Router) setupRoutes() {
	// Health check
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.engine.Group("/api/v1")
	{
		v1.POST("/chains", r.chainHandler.Create)
		v1.GET("/chains", r.chainHandler.List)

		chain := v1.Group("/chains/:chain")
		chain.Use(middleware.ValidateChain(r.registry))
		{
			chain.GET("", r.chainHandler.Get)
			chain.DELETE("", r.chainHandler.Delete)
			chain.GET("/validate", r.chainHandler.Validate)

			blocks := chain.Group("/blocks")
			{
				blocks.GET("", r.chainHandler.Snapshot)
				blocks.POST("", r.chainHandler.Append)
				blocks.GET("/latest", r.blockHandler.GetLatest)
				blocks.GET("/height/:height", r.blockHandler.GetByHeight)
				blocks.GET("/:hash", r.blockHandler.GetByHash)
			}
		}
	}
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
