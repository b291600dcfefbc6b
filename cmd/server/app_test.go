package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/pulseweave/internal/config"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/inference"
	"github.com/phrazzld/pulseweave/internal/platform/keyword"
	"github.com/phrazzld/pulseweave/internal/service/auth"
	"github.com/phrazzld/pulseweave/internal/testutils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	cfg.Provider = config.ProviderConfig{Name: "dummy"}
	cfg.Auth = config.AuthConfig{}
	cfg.Worker.Count = 2
	cfg.Worker.RetryBaseDelay = time.Millisecond
	cfg.Worker.RetryMaxDelay = time.Millisecond
	cfg.ASR.Dir = "outputs"
	cfg.ASR.AutoStart = false
	cfg.ASR.WatchEvents = false
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

type runningApp struct {
	app     *application
	baseURL string
	cancel  context.CancelFunc
	done    chan error
}

func startApp(t *testing.T, cfg *config.Config, fs afero.Fs) *runningApp {
	t.Helper()

	app, err := newApplication(context.Background(), cfg, testutils.DiscardLogger(), fs)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	ra := &runningApp{app: app, baseURL: "http://" + ln.Addr().String(), cancel: cancel, done: done}
	t.Cleanup(func() { _ = ra.stop(t) })
	return ra
}

func (ra *runningApp) stop(t *testing.T) error {
	t.Helper()

	ra.cancel()
	select {
	case err := <-ra.done:
		ra.done <- err
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
		return nil
	}
}

func (ra *runningApp) request(t *testing.T, method, path, body, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ra.baseURL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      config.ProviderConfig
		wantName string
		wantErr  error
	}{
		{name: "dummy", cfg: config.ProviderConfig{Name: "dummy"}, wantName: keyword.New().Name()},
		{name: "rule", cfg: config.ProviderConfig{Name: "rule"}, wantName: keyword.New().Name()},
		{name: "openai", cfg: config.ProviderConfig{Name: "openai", APIKey: "sk-test"}, wantName: "openai:"},
		{name: "deepseek without key", cfg: config.ProviderConfig{Name: "deepseek"}, wantErr: inference.ErrInvalidConfig},
		{name: "gemini without key", cfg: config.ProviderConfig{Name: "gemini"}, wantErr: inference.ErrInvalidConfig},
		{name: "unknown", cfg: config.ProviderConfig{Name: "claude"}, wantErr: inference.ErrInvalidConfig},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			provider, err := newProvider(context.Background(), tc.cfg, testutils.DiscardLogger())
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(provider.Name(), tc.wantName), "got %s", provider.Name())
		})
	}
}

func TestRunFlags(t *testing.T) {
	t.Parallel()

	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{"--port", "9100", "--log-level", "debug"}))

	cfg, err := config.Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)

	assert.Error(t, run([]string{"--no-such-flag"}))
}

func TestServe_TaskLifecycle(t *testing.T) {
	t.Parallel()
	ra := startApp(t, testConfig(t), afero.NewMemMapFs())

	resp := ra.request(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeJSON[map[string]any](t, resp)["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))

	resp = ra.request(t, http.MethodPost, "/api/tasks", `{"text":"明天下午三点开会"}`, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	created := decodeJSON[map[string]any](t, resp)
	id, _ := created["task_id"].(string)
	require.NotEmpty(t, id)

	var final domain.Task
	require.Eventually(t, func() bool {
		resp := ra.request(t, http.MethodGet, "/api/tasks/"+id, "", "")
		if resp.StatusCode != http.StatusOK {
			return false
		}
		final = decodeJSON[domain.Task](t, resp)
		return final.Status == domain.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, keyword.TypeMeeting, final.Result["task_type"])
	assert.Equal(t, keyword.ModelVersion, final.Result["model_version"])
	assert.Contains(t, final.Result, "latency_ms")

	resp = ra.request(t, http.MethodGet, "/ws/stats", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeJSON[map[string]any](t, resp)
	assert.EqualValues(t, 1, snap["completed_tasks"])

	require.NoError(t, ra.stop(t))

	_, err := ra.app.registry.Create(context.Background(), final.Payload, "late")
	assert.Error(t, err, "the registry refuses work after shutdown")
}

func TestServe_ASRAutoStart(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("outputs", 0o755))
	marker := `{"filename":"20250314T093000_mic1.wav","content":"提醒我给妈妈打电话","stream_id":"mic1"}`
	require.NoError(t, afero.WriteFile(fs, "outputs/20250314T093000_mic1.json", []byte(marker), 0o644))

	cfg := testConfig(t)
	cfg.ASR.AutoStart = true
	cfg.ASR.PollInterval = 20 * time.Millisecond
	ra := startApp(t, cfg, fs)

	require.Eventually(t, func() bool {
		st := ra.app.watcher.Stats()
		return st.Running && st.Ingested == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return ra.app.registry.Counts().Completed == 1
	}, 5*time.Second, 20*time.Millisecond)

	// created, processing and completed events of a system task are stored, not delivered
	assert.Equal(t, uint64(3), ra.app.broadcaster.StoredOnly())

	require.NoError(t, ra.stop(t))
	assert.False(t, ra.app.watcher.Running())
}

func TestServe_RequireAuth(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("gateway-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Auth = config.AuthConfig{
		RequireAuth:    true,
		GatewayKeyHash: string(hash),
		JWTSecret:      strings.Repeat("s", 32),
	}
	ra := startApp(t, cfg, afero.NewMemMapFs())

	resp := ra.request(t, http.MethodGet, "/api/tasks", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ra.request(t, http.MethodGet, "/api/tasks", "", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ra.request(t, http.MethodGet, "/api/tasks", "", "gateway-secret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret)
	require.NoError(t, err)
	token, err := jwtService.GenerateToken(context.Background(), "dashboard", time.Hour)
	require.NoError(t, err)

	resp = ra.request(t, http.MethodPost, "/api/tasks", `{"text":"hello"}`, token)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	tasks := ra.app.registry.ListRecent(1)
	require.Len(t, tasks, 1)
	assert.Equal(t, "http:dashboard", tasks[0].Owner)

	resp = ra.request(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays public")
}
