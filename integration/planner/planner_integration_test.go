package planner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/killallgit/route-planner-api/api"
	"github.com/killallgit/route-planner-api/api/planner"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/internal/database"
	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/killallgit/route-planner-api/internal/services/cache"
	"github.com/killallgit/route-planner-api/internal/services/geocoding"
	"github.com/killallgit/route-planner-api/internal/services/jobs"
	routeplanner "github.com/killallgit/route-planner-api/internal/services/planner"
	"github.com/killallgit/route-planner-api/internal/services/routes"
	"github.com/killallgit/route-planner-api/internal/services/search"
	"github.com/killallgit/route-planner-api/internal/services/workers"
	"github.com/killallgit/route-planner-api/pkg/config"
	"github.com/killallgit/route-planner-api/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plannerSuite runs the HTTP server against sqlite, a redis-backed
// geocoding cache, a stub Nominatim upstream and a live worker pool
type plannerSuite struct {
	baseURL       string
	wsURL         string
	upstreamCalls *atomic.Int32
	routeService  *routes.Service
}

func nominatimUpstream(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	places := map[string]string{
		"Bogotá": `[{"place_id": 1, "display_name": "Bogotá, Colombia", "lat": "4.7110", "lon": "-74.0721", "category": "boundary", "type": "administrative"}]`,
		"Medellín":        `[{"place_id": 2, "display_name": "Medellín, Antioquia, Colombia", "lat": "6.2442", "lon": "-75.5812", "category": "boundary", "type": "administrative"}]`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		body, ok := places[r.URL.Query().Get("q")]
		if !ok {
			body = `[]`
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupPlannerSuite(t *testing.T) *plannerSuite {
	t.Helper()
	log := logger.Discard()

	calls := &atomic.Int32{}
	upstream := nominatimUpstream(t, calls)

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Search:      config.SearchConfig{Debounce: 20 * time.Millisecond, MinQueryLength: 3},
		Security:    config.SecurityConfig{MaxRequestSize: 1 << 20},
		Processing:  config.ProcessingConfig{Workers: 2, PollInterval: 10 * time.Millisecond, MaxRetries: 1},
	}

	db, err := database.Open(filepath.Join(t.TempDir(), "planner.db"), database.Options{Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	mr := miniredis.RunT(t)
	rc := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "planner:", log)
	t.Cleanup(func() { _ = rc.Close() })

	client := geocoding.NewNominatimClient(geocoding.Config{
		BaseURL:   upstream.URL,
		UserAgent: "route-planner-api-tests",
		Timeout:   2 * time.Second,
		Limit:     5,
		Logger:    log,
	})
	geocoder := geocoding.NewCachedGeocoder(client, rc, time.Hour, 2*time.Second, log)

	jobService := jobs.NewService(jobs.NewRepository(db.DB), log)
	routeRepo := routes.NewRepository(db.DB)
	routeService := routes.NewService(routeRepo, jobService, cfg.Processing.MaxRetries, log)

	pool := workers.NewWorkerPool(jobService, cfg.Processing.Workers, cfg.Processing.PollInterval, log)
	pool.RegisterProcessor(routes.NewProcessor(routeRepo, jobService, routes.NewEstimator(), log))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pool.Start(ctx))
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})

	srv := api.NewServer(cfg, &types.Dependencies{
		DB:           db,
		Config:       cfg,
		Logger:       log,
		Geocoder:     geocoder,
		Cache:        rc,
		RouteService: routeService,
		JobService:   jobService,
		WorkerPool:   pool,
	})
	require.NoError(t, srv.Initialize())

	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)
	t.Cleanup(func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	})

	return &plannerSuite{
		baseURL:       ts.URL,
		wsURL:         "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/planner/ws",
		upstreamCalls: calls,
		routeService:  routeService,
	}
}

func (s *plannerSuite) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(s.baseURL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// waitCompleted polls the REST endpoint until the search leaves the queue
func (s *plannerSuite) waitCompleted(t *testing.T, id string) types.RouteSearch {
	t.Helper()
	var got types.RouteSearch
	require.Eventually(t, func() bool {
		resp, err := http.Get(s.baseURL + "/api/v1/routes/" + id)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var body types.RouteSearchResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false
		}
		got = body.RouteSearch
		return got.Status == string(models.RouteSearchCompleted)
	}, 5*time.Second, 20*time.Millisecond)
	return got
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	env := map[string]any{"type": msgType}
	if data != nil {
		env["data"] = data
	}
	require.NoError(t, conn.WriteJSON(env))
}

func await(t *testing.T, conn *websocket.Conn, msgType string, accept func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var m wsMessage
		require.NoError(t, conn.ReadJSON(&m), "waiting for %s", msgType)
		if m.Type == msgType && (accept == nil || accept(m.Data)) {
			return m.Data
		}
	}
}

func TestPlannerSession_EndToEnd(t *testing.T) {
	s := setupPlannerSuite(t)

	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	send(t, conn, planner.MsgOpen, nil)

	pick := func(field routeplanner.Field, text string) {
		send(t, conn, planner.MsgQuery, planner.QueryData{Field: field, Text: text})
		raw := await(t, conn, planner.MsgState, func(data json.RawMessage) bool {
			var st planner.StateData
			require.NoError(t, json.Unmarshal(data, &st))
			return st.Field == field && st.State.Value == text && !st.State.IsLoading && len(st.State.Results) > 0
		})
		var st planner.StateData
		require.NoError(t, json.Unmarshal(raw, &st))
		send(t, conn, planner.MsgSelect, planner.SelectData{Field: field, ID: st.State.Results[0].ID})
		await(t, conn, planner.MsgSelection, nil)
	}
	pick(routeplanner.FieldFrom, "Bogotá")
	pick(routeplanner.FieldTo, "Medellín")

	send(t, conn, planner.MsgCategory, map[string]any{"value": 1})
	await(t, conn, planner.MsgSelection, nil)

	send(t, conn, planner.MsgSearch, nil)
	var accepted planner.RouteSearchData
	require.NoError(t, json.Unmarshal(await(t, conn, planner.MsgRouteSearch, nil), &accepted))
	require.NotEmpty(t, accepted.ID)

	got := s.waitCompleted(t, accepted.ID)
	assert.Equal(t, [2]float64{-74.0721, 4.7110}, got.LocationFrom)
	assert.Equal(t, [2]float64{-75.5812, 6.2442}, got.LocationTo)
	assert.Equal(t, "Medellín, Antioquia, Colombia", got.ToTitle)
	assert.Equal(t, 1, got.Category)
	require.NotNil(t, got.DistanceKm)
	assert.Greater(t, *got.DistanceKm, 150.0)
}

func TestGeocode_CachedInRedis(t *testing.T) {
	s := setupPlannerSuite(t)

	for i := 0; i < 3; i++ {
		resp := s.postJSON(t, "/api/v1/geocode", types.GeocodeRequest{Query: "Medellín"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body types.GeocodeResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, 1, body.Count)
		assert.Equal(t, "2", body.Results[0].ID)
	}
	assert.Equal(t, int32(1), s.upstreamCalls.Load(), "repeat lookups are served from cache")

	resp := s.postJSON(t, "/api/v1/geocode", types.GeocodeRequest{Query: "zzzzqx"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var empty types.GeocodeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	assert.Equal(t, search.NoResultsMessage, empty.Message)
}

func TestRoutes_RESTLifecycle(t *testing.T) {
	s := setupPlannerSuite(t)

	resp := s.postJSON(t, "/api/v1/routes", map[string]any{
		"locationFrom": []float64{-74.0721, 4.7110},
		"locationTo":   []float64{-75.5812, 6.2442},
		"category":     0,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var accepted types.RouteAcceptedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	assert.Equal(t, "/api/v1/routes/"+accepted.ID, resp.Header.Get("Location"))

	got := s.waitCompleted(t, accepted.ID)
	require.NotNil(t, got.DurationMinutes)
	assert.Greater(t, *got.DurationMinutes, 0.0)

	list, err := s.routeService.List(context.Background(), models.RouteSearchCompleted, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	incomplete := s.postJSON(t, "/api/v1/routes", map[string]any{"locationFrom": []float64{-74.1, 4.7}})
	assert.Equal(t, http.StatusBadRequest, incomplete.StatusCode)
	var errBody types.ErrorResponse
	require.NoError(t, json.NewDecoder(incomplete.Body).Decode(&errBody))
	assert.Equal(t, routeplanner.IncompleteSelectionMessage, errBody.Message)

	req, err := http.NewRequest(http.MethodDelete, s.baseURL+"/api/v1/routes/"+accepted.ID, nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	missing, err := http.Get(s.baseURL + "/api/v1/routes/" + accepted.ID)
	require.NoError(t, err)
	_ = missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
