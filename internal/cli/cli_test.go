package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"anoa.com/polychat/internal/config"
	"anoa.com/polychat/internal/entity"
	"anoa.com/polychat/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteEnv points the config at a throwaway sqlite file and clears every
// optional backend.
func sqliteEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polychat.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", path)
	for _, key := range []string{"REDIS_URL", "GEMINI_API_KEY", "AI_PROXY_URL", "MEILISEARCH_HOST", "CLOUDINARY_URL"} {
		t.Setenv(key, "")
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "proxy", "migrate", "job"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestMigrateCommand(t *testing.T) {
	path := sqliteEnv(t)

	_, err := execute(t, "migrate")
	require.NoError(t, err)

	db, err := database.Open(database.Options{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	for _, model := range entity.All() {
		assert.True(t, db.Migrator().HasTable(model))
	}
}

func TestJobCommand(t *testing.T) {
	sqliteEnv(t)

	out, err := execute(t, "job", "--list")
	require.NoError(t, err)
	assert.Equal(t, "mailbox-redelivery", strings.TrimSpace(out))

	_, err = execute(t, "job", "mailbox-redelivery")
	assert.NoError(t, err)

	_, err = execute(t, "job", "nightly-cleanup")
	assert.Error(t, err)
}

func TestInvalidConfigFailsEarly(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("AI_TIMEOUT", "soon")

	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid AI_TIMEOUT")
}

func TestProxyEngine_WithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, err := newProxyEngine(context.Background(), &config.Config{AppEnv: "development"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"translate","text":"hi","targetLang":"Spanish"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Missing API key")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
