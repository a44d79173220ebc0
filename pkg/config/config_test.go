package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "PP", cfg.Enrollment.InstitutionTag)
	assert.False(t, cfg.Enrollment.AllowClassFallback)
	assert.Equal(t, 3, cfg.Enrollment.CollisionRetries)
	assert.Equal(t, "studentUser", cfg.Session.StudentCookieName)
	assert.Equal(t, 3*time.Second, cfg.Session.ResolveTimeout)
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, int64(20*1024*1024), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, "coaching-api", cfg.Database.ApplicationName)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("INSTITUTION_TAG", "ab")
	v.Set("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	v.Set("SESSION_RESOLVE_TIMEOUT", "not-a-duration")
	v.Set("STORAGE_PUBLIC_BASE_URL", "https://cdn.example/")

	cfg := fromViper(v)
	assert.Equal(t, "AB", cfg.Enrollment.InstitutionTag)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Session.ResolveTimeout)
	assert.Equal(t, "https://cdn.example", cfg.Storage.PublicBaseURL)
}
