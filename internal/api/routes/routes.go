package routes

import (
	"log/slog"
	"net/http"
	"time"

	"echo-gateway/internal/api/handlers"
	"echo-gateway/internal/api/middleware"
	"echo-gateway/internal/services"
	"echo-gateway/internal/signature"

	_ "echo-gateway/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the collaborators the HTTP surface is built from. A nil
// field leaves the matching routes unregistered.
type Dependencies struct {
	Signer      *signature.Signer
	Sockets     handlers.SocketServer
	Connections handlers.ConnectionManager
	Publisher   handlers.Publisher
	Invocations handlers.EventHandler
	RateLimiter *services.RateLimitService

	// ManagementToken guards the management API and invocations. When it
	// is empty those routes are not mounted.
	ManagementToken string
	JWTSecret       string
	AllowedOrigins  []string
	AuthRequests    int
	AuthWindow      time.Duration
	Logger          *slog.Logger
}

type Router struct {
	engine      *gin.Engine
	deps        Dependencies
	authMW      *middleware.AuthMiddleware
	rateLimitMW *middleware.RateLimitMiddleware
}

func NewRouter(deps Dependencies) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogApi("/healthz"))

	var rateLimitMW *middleware.RateLimitMiddleware
	if deps.RateLimiter != nil {
		rateLimitMW = middleware.NewRateLimitMiddleware(deps.RateLimiter)
	}

	return &Router{
		engine:      engine,
		deps:        deps,
		authMW:      middleware.NewAuthMiddleware(deps.JWTSecret),
		rateLimitMW: rateLimitMW,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if r.deps.Sockets != nil {
		ws := handlers.NewWSHandler(r.deps.Sockets)
		r.engine.GET("/app", ws.HandleWebSocket)
		r.engine.GET("/app/:key", ws.HandleWebSocket)
	}

	management := r.deps.ManagementToken != ""
	if !management && (r.deps.Connections != nil || r.deps.Invocations != nil) {
		r.deps.Logger.Warn("MANAGEMENT_TOKEN is not set; management and invocation endpoints are disabled")
	}
	requireManagement := middleware.RequireManagementToken(r.deps.ManagementToken)

	if management && r.deps.Connections != nil {
		connections := handlers.NewConnectionsHandler(r.deps.Connections, r.deps.Logger)
		managed := r.engine.Group("/@connections", requireManagement)
		managed.POST("/:id", connections.PostToConnection)
		managed.DELETE("/:id", connections.DeleteConnection)
	}

	if r.deps.Signer != nil {
		auth := handlers.NewAuthHandler(r.deps.Signer, r.deps.Logger)
		r.engine.POST("/broadcasting/auth",
			r.authMW.OptionalAuth(),
			r.rateLimitMW.RateLimit(r.deps.AuthRequests, r.deps.AuthWindow),
			auth.Authenticate,
		)
	}

	api := r.engine.Group("/api/v1")

	if management && r.deps.Invocations != nil {
		invocations := handlers.NewInvocationsHandler(r.deps.Invocations, r.deps.Logger)
		api.POST("/invocations", requireManagement, invocations.Invoke)
	}

	if r.deps.Publisher != nil {
		events := handlers.NewEventsHandler(r.deps.Publisher, r.deps.Logger)
		api.POST("/events", r.authMW.RequireAuth(), events.Publish)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
