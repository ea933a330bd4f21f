package api

import (
	"net/http"
	"strings"

	"github.com/quarterhill/stratus/internal/logging"
	"github.com/quarterhill/stratus/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const apiTokenSettingKey = "api_token_hash"

// EnsureAPIToken provisions the bearer token on first boot: when no hash is
// stored yet, a fresh token is generated, its bcrypt hash persisted, and the
// plaintext returned exactly once so the operator can record it. On later
// boots the stored hash is kept and "" is returned.
func EnsureAPIToken(gdb *gorm.DB, logger logging.Logger) (string, error) {
	var row models.Setting
	err := gdb.Where("key = ?", apiTokenSettingKey).First(&row).Error
	if err == nil {
		return "", nil
	}
	if err != gorm.ErrRecordNotFound {
		return "", err
	}
	token := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	row = models.Setting{Key: apiTokenSettingKey, Value: string(hash)}
	if err := gdb.Create(&row).Error; err != nil {
		return "", err
	}
	logger.Info("api token provisioned", "token", token)
	return token, nil
}

func (s *apiServer) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var row models.Setting
		if err := s.gdb.Where("key = ?", apiTokenSettingKey).First(&row).Error; err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(row.Value), []byte(token)) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
