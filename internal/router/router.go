// Package router defines how HTTP routes are registered for the API.
package router

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/event-flow/internal/config"
    "github.com/iliyamo/event-flow/internal/handler"
    "github.com/iliyamo/event-flow/internal/middleware"
)

// Deps bundles everything the route table needs: handlers, the JWT secret
// for the auth middleware and the optional Redis client for caching and
// rate limiting. A nil Redis client turns both middlewares into
// pass-throughs.
type Deps struct {
    Auth          *handler.AuthHandler
    Public        *handler.PublicHandler
    Owner         *handler.OwnerHandler
    Registrations *handler.RegistrationHandler

    JWTSecret string
    Redis     *redis.Client
    UploadDir string // local directory served under /uploads
}

// RegisterRoutes wires the full route table onto the Echo instance.
func RegisterRoutes(e *echo.Echo, d Deps) {
    // Health check for load balancers and monitoring.
    e.GET("/healthz", handler.Health)

    // Uploaded event images are served as static files.
    if d.UploadDir != "" {
        e.Static("/uploads", d.UploadDir)
    }

    // Public browse endpoints. No auth; responses are cached briefly in
    // Redis because the listing is read far more often than occupancy
    // changes.
    cache := middleware.NewResponseCache(config.LoadCacheConfig(), d.Redis)
    pub := e.Group("/v1")
    pub.GET("/events", d.Public.ListEvents, cache)
    pub.GET("/events/:id", d.Public.GetEvent, cache)
    pub.GET("/events/:id/colors", d.Public.GetEventColors, cache)

    // Session endpoints. Sign-up, sign-in and refresh create or exchange
    // tokens and therefore cannot sit behind the JWT middleware.
    auth := e.Group("/v1/auth")
    auth.POST("/signup", d.Auth.SignUp)
    auth.POST("/signin", d.Auth.SignIn)
    auth.POST("/refresh", d.Auth.Refresh)
    auth.POST("/signout", d.Auth.SignOut)

    // Everything below requires a valid access token.
    protected := e.Group("/v1")
    protected.Use(middleware.JWTAuth(d.JWTSecret))
    protected.Use(middleware.RequireRole("OWNER", "CUSTOMER"))

    protected.GET("/me", d.Auth.Me)
    protected.POST("/auth/signout-all", d.Auth.SignOutAll)

    // Registration: the write path is rate limited per caller so a single
    // client hammering a popular event cannot starve the row lock.
    limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis)
    protected.POST("/events/:id/register", d.Registrations.Register, limit)
    protected.GET("/events/:id/registration", d.Registrations.Status)
    protected.GET("/registrations", d.Registrations.MyRegistrations)

    // Event management, organizers only.
    owner := e.Group("/v1/owner")
    owner.Use(middleware.JWTAuth(d.JWTSecret))
    owner.Use(middleware.RequireRole("OWNER"))

    owner.GET("/events", d.Owner.ListMyEvents)
    owner.POST("/events", d.Owner.CreateEvent)
    owner.PATCH("/events/:id", d.Owner.UpdateEvent)
    owner.DELETE("/events/:id", d.Owner.DeleteEvent)
    owner.GET("/events/:id/registrations", d.Owner.ListRegistrations)
    owner.POST("/events/:id/image", d.Owner.UploadImage)
}
