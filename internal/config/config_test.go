package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.Policy().Protects(ResourceStudents))
	assert.False(t, cfg.Policy().Protects(ResourceCourses))
	assert.False(t, cfg.Policy().Protects(ResourceTeachers))
	assert.Equal(t, 60, cfg.RateLimit.Capacity)
	assert.GreaterOrEqual(t, cfg.RateLimit.TTL, 5*cfg.RateLimit.RefillInterval)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("PROTECTED_RESOURCES", "students, Courses,teachers")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	p := cfg.Policy()
	assert.True(t, p.Protects(ResourceStudents))
	assert.True(t, p.Protects(ResourceCourses))
	assert.True(t, p.Protects(ResourceTeachers))
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad driver", "DB_DRIVER", "oracle"},
		{"cost too low", "BCRYPT_COST", "2"},
		{"cost too high", "BCRYPT_COST", "40"},
		{"unknown resource", "PROTECTED_RESOURCES", "students,rooms"},
		{"negative ttl", "TOKEN_TTL", "-1m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "port: \"9090\"\njwt_secret: file-secret\ndb:\n  driver: sqlite\n  path: /tmp/school.db\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "/tmp/school.db", cfg.DB.Path)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy([]string{" STUDENTS ", "", "teachers"})
	require.NoError(t, err)
	assert.True(t, p.Protects(ResourceStudents))
	assert.True(t, p.Protects(ResourceTeachers))
	assert.False(t, p.Protects(ResourceCourses))

	_, err = ParsePolicy([]string{"cinemas"})
	assert.Error(t, err)
}
