package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/vladyslav-onipko/space-server/internal/config"
	"github.com/vladyslav-onipko/space-server/internal/db"
	"github.com/vladyslav-onipko/space-server/internal/geocode"
	"github.com/vladyslav-onipko/space-server/internal/handlers"
	"github.com/vladyslav-onipko/space-server/internal/httperr"
	"github.com/vladyslav-onipko/space-server/internal/middleware"
	"github.com/vladyslav-onipko/space-server/internal/models"
	"github.com/vladyslav-onipko/space-server/internal/services"
	"github.com/vladyslav-onipko/space-server/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zlog.Sync()

	database, err := db.Connect(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		zlog.Fatal("mongodb connection failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		zlog.Fatal("failed to create indexes", zap.Error(err))
	}
	cancel()

	images, err := storage.NewImageStore(cfg, zlog)
	if err != nil {
		zlog.Fatal("minio connection failed", zap.Error(err))
	}

	tokens := services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiryHours)
	feedService := services.NewFeedService(database, zlog)
	userService := services.NewUserService(database, images, tokens, zlog)
	listingService := services.NewListingService(database, images, geocode.NewNominatimClient(), feedService, zlog)

	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	placeHandler := handlers.NewListingHandler(models.CategoryPlace, listingService, feedService)
	rocketHandler := handlers.NewListingHandler(models.CategoryRocket, listingService, feedService)

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		BodyLimit:    2 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	auth := middleware.Auth(tokens)

	users := app.Group("/api/users")
	users.Post("/signup", authHandler.Signup)
	users.Post("/signin", authHandler.Signin)
	users.Get("/", userHandler.List)
	users.Get("/:id", auth, userHandler.Profile)
	users.Patch("/:id", auth, userHandler.Update)

	registerListingRoutes(app.Group("/api/places"), placeHandler, auth)
	registerListingRoutes(app.Group("/api/rockets"), rocketHandler, auth)

	app.Use(httperr.NotFoundRoute)

	zlog.Info("server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func registerListingRoutes(router fiber.Router, h *handlers.ListingHandler, auth fiber.Handler) {
	router.Get("/", h.List)
	router.Get("/:id", h.Get)
	router.Post("/", auth, h.Create)
	router.Patch("/:id/favorite", h.ToggleLike)
	router.Patch("/:id", auth, h.Edit)
	router.Delete("/:id", auth, h.Delete)
}
