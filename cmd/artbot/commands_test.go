package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artbot/pkg/auth"
	"artbot/pkg/config"
	errs "artbot/pkg/errors"
)

const testCaption = "Wheat Field with Cypresses by Vincent van Gogh. See more: https://www.metmuseum.org/art/collection/search/436535"

// isolate points every config source at an empty temp directory
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	for _, key := range []string{
		"API_KEY", "API_SECRET", "ACCESS_TOKEN", "ACCESS_TOKEN_SECRET",
		"ARTBOT_SEARCH_TERM", "ARTBOT_MAX_ATTEMPTS", "ARTBOT_TEMP_DIR",
		"ARTBOT_LOG_FILE", "ARTBOT_REQUESTS_PER_SECOND", "ARTBOT_MET_BASE_URL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("ARTBOT_LOG_LEVEL", "error")
	return dir
}

func resetFlags() {
	configFile, logLevel, logFile = "", "", ""
	quiet = false
	dryRun, maxAttempts, accountName, tempDir, notify = false, 0, "", "", false
	pickJSON, showGuide, assumeYes, forceInit = false, false, false, false
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), stdin, args...)
}

// executeContext runs the root command under ctx. cobra keeps the first
// context it hands a subcommand, so those are cleared before every run.
func executeContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	clearContexts(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--quiet"}, args...))

	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func clearContexts(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		sub.SetContext(nil)
		clearContexts(sub)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newMuseum serves a one-object collection; objectIDs is raw JSON
func newMuseum(t *testing.T, objectIDs string) *httptest.Server {
	t.Helper()
	imageData := pngBytes(t)

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"total":1,"objectIDs":%s}`, objectIDs)
	})
	mux.HandleFunc("/objects/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"objectID":436535,"title":"Wheat Field with Cypresses","artistDisplayName":"Vincent van Gogh",`+
			`"objectURL":"https://www.metmuseum.org/art/collection/search/436535","primaryImage":"%s/image.png"}`, srv.URL)
	})
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(imageData)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("ARTBOT_MET_BASE_URL", srv.URL)
	return srv
}

func TestPostDryRun(t *testing.T) {
	dir := isolate(t)
	newMuseum(t, "[436535]")
	staging := filepath.Join(dir, "staging")

	out, err := execute(t, "", "post", "wheat", "--dry-run", "--temp-dir", staging)
	require.NoError(t, err)

	assert.Contains(t, out, "Search term: wheat")
	assert.Contains(t, out, testCaption)
	assert.Contains(t, out, "Dry run: nothing was posted")

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged image must be removed")
}

func TestBareTermRunsPost(t *testing.T) {
	dir := isolate(t)
	newMuseum(t, "[436535]")

	out, err := execute(t, "", "wheat", "--dry-run", "--temp-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, testCaption)
}

func TestPostNotFound(t *testing.T) {
	isolate(t)
	newMuseum(t, "null")

	_, err := execute(t, "", "post", "nothing-matches", "--dry-run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.True(t, errors.Is(err, errs.ErrSearchFailed))
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestPostWithoutCredentials(t *testing.T) {
	isolate(t)
	newMuseum(t, "[436535]")

	manager, _ := auth.NewMockManager()
	original := newCredentialManager
	newCredentialManager = func() (*auth.Manager, error) { return manager, nil }
	t.Cleanup(func() { newCredentialManager = original })

	_, err := execute(t, "", "post", "wheat")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
	assert.Contains(t, err.Error(), "no X credentials available")
}

func TestPickJSON(t *testing.T) {
	isolate(t)
	newMuseum(t, "[436535]")

	out, err := execute(t, "", "pick", "wheat", "--json")
	require.NoError(t, err)

	var decoded struct {
		Artwork struct {
			ObjectID int    `json:"object_id"`
			Title    string `json:"title"`
		} `json:"artwork"`
		Caption string `json:"caption"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "Wheat Field with Cypresses", decoded.Artwork.Title)
	assert.Equal(t, testCaption, decoded.Caption)
}

func TestResolveCredentials(t *testing.T) {
	stored := &auth.Account{
		Name:              auth.DefaultAccountName,
		APIKey:            "stored-key",
		APISecret:         "stored-secret",
		AccessToken:       "stored-token",
		AccessTokenSecret: "stored-token-secret",
	}

	t.Run("complete config needs no store", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Twitter.APIKey, cfg.Twitter.APISecret = "k", "s"
		cfg.Twitter.AccessToken, cfg.Twitter.AccessTokenSecret = "t", "ts"

		manager, store := auth.NewMockManager()
		store.RetrieveError = errors.New("must not be called")

		require.NoError(t, resolveCredentials(cfg, "", manager))
		assert.Equal(t, "k", cfg.Twitter.APIKey)
	})

	t.Run("default account fills config", func(t *testing.T) {
		cfg := config.DefaultConfig()
		manager, _ := auth.NewMockManager()
		require.NoError(t, manager.Store(stored))

		require.NoError(t, resolveCredentials(cfg, "", manager))
		assert.Equal(t, "stored-key", cfg.Twitter.APIKey)
		assert.Equal(t, "stored-token-secret", cfg.Twitter.AccessTokenSecret)
		assert.True(t, cfg.HasCredentials())
	})

	t.Run("unknown account", func(t *testing.T) {
		cfg := config.DefaultConfig()
		manager, _ := auth.NewMockManager()
		require.NoError(t, manager.Store(stored))

		err := resolveCredentials(cfg, "someone-else", manager)
		require.Error(t, err)
		assert.True(t, errors.Is(err, auth.ErrCredentialsNotFound))
		assert.Equal(t, exitConfig, exitCode(err))
	})
}

func TestAuthLoginListLogout(t *testing.T) {
	isolate(t)

	manager, store := auth.NewMockManager()
	original := newCredentialManager
	newCredentialManager = func() (*auth.Manager, error) { return manager, nil }
	t.Cleanup(func() { newCredentialManager = original })

	out, err := execute(t, "api-key-value\napi-secret-value\naccess-token-value\naccess-token-secret\n", "auth", "login", "museum-bot")
	require.NoError(t, err)
	assert.Contains(t, out, "Account saved: museum-bot")
	assert.Equal(t, 1, store.Count())

	account, err := manager.Retrieve("museum-bot")
	require.NoError(t, err)
	assert.Equal(t, "api-secret-value", account.APISecret)

	out, err = execute(t, "", "auth", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "museum-bot")
	assert.Contains(t, out, "api-...alue")
	assert.NotContains(t, out, "api-key-value")

	out, err = execute(t, "y\n", "auth", "logout", "museum-bot")
	require.NoError(t, err)
	assert.Contains(t, out, "Account removed: museum-bot")
	assert.Equal(t, 0, store.Count())
}

func TestConfigInitAndPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "artbot.toml")

	out, err := execute(t, "", "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to")

	loaded := config.DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "cat", loaded.Picker.SearchTerm)

	_, err = execute(t, "", "--config", path, "config", "init")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))

	_, err = execute(t, "", "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "", "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, ".artbot.yaml")
}

func TestConfigShowMasksSecrets(t *testing.T) {
	isolate(t)
	t.Setenv("API_KEY", "abcdefghijklmnop")

	out, err := execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "abcd...mnop")
	assert.NotContains(t, out, "abcdefghijklmnop")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "5.0 MB", formatBytes(5<<20))
}

func TestCancelledRunIsNotNotFound(t *testing.T) {
	dir := isolate(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	t.Setenv("ARTBOT_MET_BASE_URL", srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := executeContext(t, ctx, "", "wheat", "--dry-run", "--temp-dir", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestPickCancelled(t *testing.T) {
	isolate(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	t.Setenv("ARTBOT_MET_BASE_URL", srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := executeContext(t, ctx, "", "pick", "wheat")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config", &configError{errors.New("bad")}, exitConfig},
		{"search failed", fmt.Errorf("%w: no results", errs.ErrSearchFailed), exitNotFound},
		{"exhausted", errs.ErrSelectionExhausted, exitNotFound},
		{"cancelled", fmt.Errorf("%w: %w", errs.ErrSearchFailed, context.Canceled), exitFailure},
		{"deadline", fmt.Errorf("download: %w", context.DeadlineExceeded), exitFailure},
		{"publish", fmt.Errorf("%w: forbidden", errs.ErrPublishFailed), exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
