package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/pulseweave/internal/api/shared"
	"github.com/phrazzld/pulseweave/internal/asr"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/stats"
	"github.com/phrazzld/pulseweave/internal/task"
	"github.com/phrazzld/pulseweave/internal/testutils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router   chi.Router
	registry *task.Registry
	watcher  *asr.Watcher
	fs       afero.Fs
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := testutils.DiscardLogger()
	queue := task.NewQueue(logger)
	registry := task.NewRegistry(queue, nil, task.DefaultRegistryConfig(), logger)
	t.Cleanup(registry.Close)

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("outputs", 0o755))
	watcher := asr.NewWatcher(fs, registry, asr.Config{Dir: "outputs", PollInterval: time.Hour}, logger)
	t.Cleanup(func() { watcher.Stop() })

	tasks := NewTaskHandler(registry, logger)
	asrHandler := NewASRHandler(watcher)
	system := NewSystemHandler(stats.NewAggregator(registry, nil, watcher), "dummy")

	r := chi.NewRouter()
	r.Get("/health", system.Health)
	r.Get("/ws/stats", system.Stats)
	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", tasks.CreateTask)
		r.Get("/tasks", tasks.ListTasks)
		r.Get("/tasks/{id}", tasks.GetTask)
		r.Delete("/tasks/{id}", tasks.CancelTask)
		r.Post("/asr/start", asrHandler.Start)
		r.Post("/asr/stop", asrHandler.Stop)
		r.Get("/asr/stats", asrHandler.Stats)
		r.Get("/asr/recent", asrHandler.Recent)
	})

	return &testAPI{router: r, registry: registry, watcher: watcher, fs: fs}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()
	a := setupTestAPI(t)

	rr := a.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody[HealthResponse](t, rr)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "dummy", body.Provider)
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	t.Run("text", func(t *testing.T) {
		t.Parallel()
		a := setupTestAPI(t)

		rr := a.do(t, http.MethodPost, "/api/tasks", `{"text":"明天下午开会"}`)
		require.Equal(t, http.StatusAccepted, rr.Code)

		body := decodeBody[CreateTaskResponse](t, rr)
		assert.Equal(t, domain.StatusPending, body.Status)

		stored, err := a.registry.Get(body.TaskID)
		require.NoError(t, err)
		assert.Equal(t, HTTPOwnerPrefix+"anonymous", stored.Owner)
		assert.Equal(t, "明天下午开会", stored.Payload.Text)
	})

	t.Run("event", func(t *testing.T) {
		t.Parallel()
		a := setupTestAPI(t)

		rr := a.do(t, http.MethodPost, "/api/tasks",
			`{"event":{"event_id":"e1","transcript":"call mom","stream_id":"mic1"}}`)
		require.Equal(t, http.StatusAccepted, rr.Code)
	})

	t.Run("missing input", func(t *testing.T) {
		t.Parallel()
		a := setupTestAPI(t)

		rr := a.do(t, http.MethodPost, "/api/tasks", `{}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Either text or event.transcript is required",
			decodeBody[shared.ErrorResponse](t, rr).Error)
		assert.Zero(t, a.registry.Counts().TotalCreated)
	})

	t.Run("unknown field", func(t *testing.T) {
		t.Parallel()
		a := setupTestAPI(t)

		rr := a.do(t, http.MethodPost, "/api/tasks", `{"txt":"typo"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid request format", decodeBody[shared.ErrorResponse](t, rr).Error)
	})

	t.Run("registry closed", func(t *testing.T) {
		t.Parallel()
		a := setupTestAPI(t)
		a.registry.Close()

		rr := a.do(t, http.MethodPost, "/api/tasks", `{"text":"hello"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestGetTask(t *testing.T) {
	t.Parallel()
	a := setupTestAPI(t)

	payload, err := domain.NewPayload("hello", nil)
	require.NoError(t, err)
	created, err := a.registry.Create(context.Background(), payload, "client-1")
	require.NoError(t, err)

	rr := a.do(t, http.MethodGet, "/api/tasks/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeBody[domain.Task](t, rr)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, domain.StatusPending, got.Status)

	rr = a.do(t, http.MethodGet, "/api/tasks/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Task not found", decodeBody[shared.ErrorResponse](t, rr).Error)

	rr = a.do(t, http.MethodGet, "/api/tasks/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid task id", decodeBody[shared.ErrorResponse](t, rr).Error)
}

func TestCancelTask(t *testing.T) {
	t.Parallel()
	a := setupTestAPI(t)
	ctx := context.Background()

	payload, err := domain.NewPayload("hello", nil)
	require.NoError(t, err)

	pending, err := a.registry.Create(ctx, payload, "client-1")
	require.NoError(t, err)
	rr := a.do(t, http.MethodDelete, "/api/tasks/"+pending.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.StatusCancelled, decodeBody[domain.Task](t, rr).Status)

	claimed, err := a.registry.Create(ctx, payload, "client-1")
	require.NoError(t, err)
	_, err = a.registry.Claim(ctx, claimed.ID)
	require.NoError(t, err)

	rr = a.do(t, http.MethodDelete, "/api/tasks/"+claimed.ID.String(), "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Task is already being processed and can no longer be cancelled",
		decodeBody[shared.ErrorResponse](t, rr).Error)

	rr = a.do(t, http.MethodDelete, "/api/tasks/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListTasks(t *testing.T) {
	t.Parallel()
	a := setupTestAPI(t)

	for _, text := range []string{"one", "two", "three"} {
		payload, err := domain.NewPayload(text, nil)
		require.NoError(t, err)
		_, err = a.registry.Create(context.Background(), payload, "client-1")
		require.NoError(t, err)
	}

	rr := a.do(t, http.MethodGet, "/api/tasks?limit=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[struct {
		Tasks []domain.Task `json:"tasks"`
	}](t, rr)
	require.Len(t, body.Tasks, 2)
	assert.Equal(t, "three", body.Tasks[0].Payload.Text)

	for _, bad := range []string{"0", "1001", "abc"} {
		rr = a.do(t, http.MethodGet, "/api/tasks?limit="+bad, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, "limit=%s", bad)
	}
}

func TestASRControl(t *testing.T) {
	t.Parallel()
	a := setupTestAPI(t)

	rr := a.do(t, http.MethodPost, "/api/asr/start", "")
	require.Equal(t, http.StatusOK, rr.Code)
	started := decodeBody[WatcherControlResponse](t, rr)
	assert.True(t, started.Changed)
	assert.True(t, started.Stats.Running)

	rr = a.do(t, http.MethodPost, "/api/asr/start", "")
	assert.False(t, decodeBody[WatcherControlResponse](t, rr).Changed)

	rr = a.do(t, http.MethodPost, "/api/asr/stop", "")
	stopped := decodeBody[WatcherControlResponse](t, rr)
	assert.True(t, stopped.Changed)
	assert.False(t, stopped.Stats.Running)

	rr = a.do(t, http.MethodPost, "/api/asr/stop", "")
	assert.False(t, decodeBody[WatcherControlResponse](t, rr).Changed)
}

func TestASRStatsAndRecent(t *testing.T) {
	t.Parallel()
	a := setupTestAPI(t)

	marker := `{"filename":"20250314T093000_mic1.wav","content":"下午三点开会","stream_id":"mic1"}`
	require.NoError(t, afero.WriteFile(a.fs, "outputs/20250314T093000_mic1.json", []byte(marker), 0o644))
	report := a.watcher.Poll(context.Background())
	require.Equal(t, 1, report.Ingested)

	rr := a.do(t, http.MethodGet, "/api/asr/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	st := decodeBody[asr.Stats](t, rr)
	assert.Equal(t, uint64(1), st.Ingested)
	assert.Equal(t, "outputs", st.Dir)

	rr = a.do(t, http.MethodGet, "/api/asr/recent", "")
	require.Equal(t, http.StatusOK, rr.Code)
	recent := decodeBody[struct {
		Results []asr.RecentResult `json:"results"`
		Count   int                `json:"count"`
	}](t, rr)
	require.Equal(t, 1, recent.Count)
	assert.Equal(t, "下午三点开会", recent.Results[0].Transcript)
	assert.Equal(t, domain.StatusPending, recent.Results[0].Status)

	rr = a.do(t, http.MethodGet, "/api/asr/recent?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWSStats(t *testing.T) {
	t.Parallel()
	a := setupTestAPI(t)

	payload, err := domain.NewPayload("hello", nil)
	require.NoError(t, err)
	_, err = a.registry.Create(context.Background(), payload, "client-1")
	require.NoError(t, err)

	rr := a.do(t, http.MethodGet, "/ws/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)

	snap := decodeBody[stats.Snapshot](t, rr)
	assert.Equal(t, 1, snap.QueueSize)
	assert.Equal(t, 1, snap.ActiveTasks)
	require.NotNil(t, snap.ASR)
	assert.False(t, snap.ASR.Running)
}
