package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contraco/backend/internal/config"
	"github.com/contraco/backend/internal/database"
	"github.com/contraco/backend/internal/handlers"
	"github.com/contraco/backend/internal/middleware"
	"github.com/contraco/backend/internal/services"
	"github.com/contraco/backend/internal/storage"
	"github.com/contraco/backend/pkg/logger"
	"github.com/contraco/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	accessService := services.NewAccessService(db)
	groupService := services.NewGroupService(db, accessService)
	rfiService := services.NewRfiService(db, accessService)

	authHandler := handlers.NewAuthHandler(db)
	usersHandler := handlers.NewUsersHandler(db)
	projectsHandler := handlers.NewProjectsHandler(db, accessService)
	groupsHandler := handlers.NewGroupsHandler(groupService)
	rfisHandler := handlers.NewRfisHandler(rfiService, accessService)
	drawingsHandler := handlers.NewDrawingsHandler(db, accessService, storageClient)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)
	authRoutes.Put("/current-project", authMiddleware.RequireAuth, projectsHandler.SetCurrentProject)

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.Search)
	api.Get("/users", authMiddleware.RequireAuth, middleware.AdminOnly, usersHandler.List)

	projectRoutes := api.Group("/projects", authMiddleware.RequireAuth)
	projectRoutes.Post("/", projectsHandler.Create)
	projectRoutes.Post("/join", projectsHandler.Join)
	projectRoutes.Get("/", projectsHandler.List)
	projectRoutes.Get("/:code", projectsHandler.Get)
	projectRoutes.Get("/:code/users", projectsHandler.Users)
	projectRoutes.Get("/:code/groups", groupsHandler.ProjectGroups)
	projectRoutes.Get("/:code/rfis", rfisHandler.ByProject)
	projectRoutes.Post("/:code/drawings", drawingsHandler.Upload)
	projectRoutes.Get("/:code/drawings", drawingsHandler.List)

	groupRoutes := api.Group("/groups", authMiddleware.RequireAuth)
	groupRoutes.Post("/", groupsHandler.Create)
	groupRoutes.Get("/", groupsHandler.MyGroups)
	groupRoutes.Post("/:id/members", groupsHandler.AddMembers)
	groupRoutes.Delete("/:id", groupsHandler.Delete)

	rfiRoutes := api.Group("/rfis", authMiddleware.RequireAuth)
	rfiRoutes.Post("/", rfisHandler.Create)
	rfiRoutes.Get("/assigned", rfisHandler.Assigned)
	rfiRoutes.Get("/created", rfisHandler.Created)
	rfiRoutes.Get("/related", rfisHandler.Related)
	rfiRoutes.Get("/overdue", rfisHandler.Overdue)
	rfiRoutes.Get("/:id", rfisHandler.Get)
	rfiRoutes.Patch("/:id", rfisHandler.Update)
	rfiRoutes.Post("/:id/resolve", rfisHandler.Resolve)
	rfiRoutes.Post("/:id/replies", rfisHandler.Reply)
	rfiRoutes.Delete("/:id", rfisHandler.Delete)

	drawingRoutes := api.Group("/drawings", authMiddleware.RequireAuth)
	drawingRoutes.Get("/:id/download", drawingsHandler.Download)
	drawingRoutes.Delete("/:id", drawingsHandler.Delete)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
