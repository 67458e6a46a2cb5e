package services

import (
	"database/sql/driver"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/contraco/backend/internal/models"
	"github.com/contraco/backend/pkg/logger"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testSetupOnce sync.Once

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
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

	return db
}

var userSeq int

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	userSeq++
	user := &models.User{
		Email:        fmt.Sprintf("%s-%d@example.com", username, userSeq),
		Username:     fmt.Sprintf("%s-%d", username, userSeq),
		PasswordHash: "x",
		Role:         models.UserRoleUser,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}
	return user
}

var projectSeq int

func seedProject(t *testing.T, db *gorm.DB, creator *models.User) *models.Project {
	t.Helper()

	projectSeq++
	project := &models.Project{
		Code:        fmt.Sprintf("PROJ-%03d", 100+projectSeq),
		Name:        fmt.Sprintf("Project %d", projectSeq),
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

func seedMember(t *testing.T, db *gorm.DB, user *models.User, project *models.Project, role models.ProjectRole) {
	t.Helper()

	membership := &models.ProjectMembership{
		UserID:    user.ID,
		ProjectID: project.ID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed creating membership: %v", err)
	}
}

func seedGroup(t *testing.T, db *gorm.DB, project *models.Project, creator *models.User, name string, members ...*models.User) *models.Group {
	t.Helper()

	group := &models.Group{
		Name:        name,
		ProjectID:   project.ID,
		CreatedByID: creator.ID,
	}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed creating test group: %v", err)
	}

	all := append([]*models.User{creator}, members...)
	for _, member := range all {
		membership := &models.GroupMembership{
			GroupID:   group.ID,
			ProjectID: project.ID,
			UserID:    member.ID,
		}
		if err := db.Create(membership).Error; err != nil {
			t.Fatalf("failed creating group membership: %v", err)
		}
	}
	return group
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()

	var count int64
	if err := db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		t.Fatalf("failed counting rows: %v", err)
	}
	return count
}

func errKind(t *testing.T, err error) ErrorKind {
	t.Helper()

	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	svcErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *services.Error, got %T: %v", err, err)
	}
	return svcErr.Kind
}
