package database

import (
	"fmt"

	"github.com/contraco/backend/internal/config"
	"github.com/contraco/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.Group{},
		&models.GroupMembership{},
		&models.Rfi{},
		&models.RfiReply{},
		&models.RfiGroupAssignment{},
		&models.Drawing{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	// Only the reference named by the discriminant may be set, never both.
	constraint := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1
    FROM pg_constraint
    WHERE conname = 'rfi_assignment_check'
  ) THEN
    ALTER TABLE rfis
    ADD CONSTRAINT rfi_assignment_check
    CHECK (
      (assigned_type IS NULL AND assigned_to_user_id IS NULL AND assigned_group_id IS NULL)
      OR
      (assigned_type = 'USER' AND assigned_to_user_id IS NOT NULL AND assigned_group_id IS NULL)
      OR
      (assigned_type = 'GROUP' AND assigned_to_user_id IS NULL AND assigned_group_id IS NOT NULL)
    );
  END IF;
END $$;`

	return db.Exec(constraint).Error
}
