package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/contraco/backend/internal/middleware"
	"github.com/contraco/backend/internal/models"
	"github.com/contraco/backend/internal/services"
	"github.com/contraco/backend/pkg/logger"
	"github.com/contraco/backend/pkg/utils"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.Group{},
		&models.GroupMembership{},
		&models.Rfi{},
		&models.RfiReply{},
		&models.RfiGroupAssignment{},
		&models.Drawing{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	accessService := services.NewAccessService(db)
	groupService := services.NewGroupService(db, accessService)
	rfiService := services.NewRfiService(db, accessService)

	authHandler := NewAuthHandler(db)
	usersHandler := NewUsersHandler(db)
	projectsHandler := NewProjectsHandler(db, accessService)
	groupsHandler := NewGroupsHandler(groupService)
	rfisHandler := NewRfisHandler(rfiService, accessService)
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

	return &testEnv{app: app, db: db}
}

func createTestUser(t *testing.T, db *gorm.DB, email, username, password string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         models.UserRoleUser,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestProject(t *testing.T, db *gorm.DB, creator *models.User, code string) *models.Project {
	t.Helper()

	project := &models.Project{
		Code:        code,
		Name:        "Test Project " + code,
		CreatedByID: creator.ID,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed creating test project: %v", err)
	}

	membership := &models.ProjectMembership{
		UserID:    creator.ID,
		ProjectID: project.ID,
		Role:      models.ProjectRoleAdmin,
		JoinedAt:  time.Now().UTC(),
	}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed creating creator membership: %v", err)
	}

	return project
}

func addProjectMember(t *testing.T, db *gorm.DB, user *models.User, project *models.Project) {
	t.Helper()

	membership := &models.ProjectMembership{
		UserID:    user.ID,
		ProjectID: project.ID,
		Role:      models.ProjectRoleMember,
		JoinedAt:  time.Now().UTC(),
	}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed creating membership: %v", err)
	}
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()

	if success, ok := body["success"].(bool); !ok || success {
		t.Fatalf("expected success=false envelope, got %v", body)
	}
	if message, _ := body["error"].(string); expected != "" && message != expected {
		t.Fatalf("expected error %q, got %q", expected, message)
	}
}

func envelopeData(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	if success, ok := body["success"].(bool); !ok || !success {
		t.Fatalf("expected success=true envelope, got %v", body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %T", body["data"])
	}
	return data
}

func envelopeList(t *testing.T, body map[string]any) []any {
	t.Helper()

	if success, ok := body["success"].(bool); !ok || !success {
		t.Fatalf("expected success=true envelope, got %v", body)
	}
	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected list data, got %T", body["data"])
	}
	return data
}
