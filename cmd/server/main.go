package main // Entry point package

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/iliyamo/event-flow/internal/color"
    "github.com/iliyamo/event-flow/internal/config"
    "github.com/iliyamo/event-flow/internal/database"
    "github.com/iliyamo/event-flow/internal/handler"
    "github.com/iliyamo/event-flow/internal/queue"
    "github.com/iliyamo/event-flow/internal/repository"
    "github.com/iliyamo/event-flow/internal/router"
    "github.com/iliyamo/event-flow/internal/storage"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is optional: without it the response cache and the rate
    // limiter become pass-throughs.
    rdb := config.NewRedisClient()

    store, err := storage.NewStore(cfg.StorageDir, cfg.PublicBaseURL)
    if err != nil {
        log.Fatalf("storage: %v", err)
    }

    resolver := color.NewResolver(cfg.ImageTimeout)

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    events := repository.NewEventRepo(db)
    regs := repository.NewRegistrationRepo(db)

    // Background consumer that writes confirmed registrations to the log
    // file. It reconnects on its own; a missing broker never blocks the
    // HTTP server.
    go func() {
        if err := queue.StartRegistrationConsumer(); err != nil {
            log.Printf("registration consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.Logger())

    router.RegisterRoutes(e, router.Deps{
        Auth:          handler.NewAuthHandler(cfg, users, tokens),
        Public:        handler.NewPublicHandler(events, resolver),
        Owner:         handler.NewOwnerHandler(events, regs, store),
        Registrations: handler.NewRegistrationHandler(events, regs),
        JWTSecret:     cfg.JWTSecret,
        Redis:         rdb,
        UploadDir:     store.Dir(),
    })

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
