package services

import (
	"fmt"
	"math/rand/v2"

	"github.com/contraco/backend/internal/models"
	"gorm.io/gorm"
)

// codeAttempts bounds the retry loop. The keyspace holds 900 codes; running
// out of attempts means it is effectively exhausted.
const codeAttempts = 5000

// GenerateProjectCode produces a PROJ-NNN code (three digits, 100-999) and
// retries until the code is free. Collisions are expected and cheap to retry.
func GenerateProjectCode(db *gorm.DB) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := fmt.Sprintf("PROJ-%03d", rand.IntN(900)+100)

		var count int64
		if err := db.Model(&models.Project{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free project code after %d attempts", codeAttempts)
}
