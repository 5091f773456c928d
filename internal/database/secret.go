package database

import (
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/BayRex1/bayrex-apk/internal/config"
	"github.com/BayRex1/bayrex-apk/internal/models"
)

const sessionSecretKey = "session_secret"

// EnsureSessionSecret returns the secret used to sign session tokens.
// An explicit SESSION_SECRET always wins. A generated one is replaced by the
// secret stored in db, or stored there so later restarts reuse it.
func EnsureSessionSecret(db *gorm.DB, cfg *config.Config, log logrus.FieldLogger) string {
	if !cfg.SessionSecretGenerated {
		return cfg.SessionSecret
	}
	if db == nil {
		return cfg.SessionSecret
	}

	var pref models.Preference
	err := db.Where("key = ?", sessionSecretKey).First(&pref).Error
	if err == nil && pref.Value != "" {
		log.Info("Session secret loaded from database - sessions will persist across restarts")
		return pref.Value
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.WithError(err).Warn("Failed to read session secret, using generated one")
		return cfg.SessionSecret
	}

	pref = models.Preference{Key: sessionSecretKey, Value: cfg.SessionSecret}
	if err := db.Create(&pref).Error; err != nil {
		// lost a race with another instance; its value wins
		var existing models.Preference
		if db.Where("key = ?", sessionSecretKey).First(&existing).Error == nil && existing.Value != "" {
			return existing.Value
		}
		log.WithError(err).Warn("Failed to persist session secret")
		return cfg.SessionSecret
	}

	log.Info("Session secret generated and persisted to database")
	return cfg.SessionSecret
}
