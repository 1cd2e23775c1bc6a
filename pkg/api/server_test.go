package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/opsbrief/pkg/actions"
	"github.com/plantops/opsbrief/pkg/briefing"
	"github.com/plantops/opsbrief/pkg/cache"
	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/events"
	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/grounding"
	"github.com/plantops/opsbrief/pkg/memory"
	"github.com/plantops/opsbrief/pkg/models"
	"github.com/plantops/opsbrief/pkg/tools"
)

// Saturday 2025-03-15 12:00 UTC; "yesterday" is 2025-03-14.
var apiNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func apiConfig() *config.Config {
	return &config.Config{
		Plant: &config.PlantConfig{
			Timezone: "UTC",
			Areas: []config.AreaConfig{
				{ID: "grinding", Name: "Grinding", AssetNames: []string{"Grinder 1", "Grinder 2"}},
				{ID: "packing", Name: "Packing", AssetNames: []string{"Packer 1"}},
			},
		},
		Actions:        config.DefaultActionsConfig(),
		Cache:          config.DefaultCacheConfig(),
		Briefing:       config.DefaultBriefingConfig(),
		Grounding:      config.DefaultGroundingConfig(),
		Recommendation: config.DefaultRecommendationConfig(),
		Schedule:       config.DefaultScheduleConfig(),
	}
}

func apiGateway() *gateway.StubGateway {
	yesterday := models.DateOf(apiNow, time.UTC).AddDays(-1)
	oee := func(v float64) *float64 { return &v }

	gw := gateway.NewStubGateway(time.UTC)
	gw.SeedAssets(
		models.Asset{ID: "a-grinder-1", Name: "Grinder 1", Area: "grinding"},
		models.Asset{ID: "a-grinder-2", Name: "Grinder 2", Area: "grinding"},
		models.Asset{ID: "a-packer-1", Name: "Packer 1", Area: "packing"},
	)
	gw.SeedSnapshots(
		models.LiveSnapshot{AssetID: "a-grinder-1", SnapshotTimestamp: apiNow.Add(-5 * time.Minute),
			CurrentOutput: 480, TargetOutput: 500, OutputVariance: -4, Status: models.StatusRunning},
		models.LiveSnapshot{AssetID: "a-packer-1", SnapshotTimestamp: apiNow.Add(-5 * time.Minute),
			CurrentOutput: 510, TargetOutput: 500, OutputVariance: 2, Status: models.StatusRunning},
	)
	gw.SeedSummaries(
		models.DailySummary{ID: "s1", AssetID: "a-grinder-1", ReportDate: yesterday,
			OEEPercentage: oee(72), ActualOutput: 7000, TargetOutput: 8000, DowntimeMinutes: 42,
			DowntimeReasons: map[string]float64{"jam clearing": 42}},
		models.DailySummary{ID: "s2", AssetID: "a-packer-1", ReportDate: yesterday,
			OEEPercentage: oee(91), ActualOutput: 8100, TargetOutput: 8000},
	)
	return gw
}

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := apiConfig()
	gw := apiGateway()
	now := func() time.Time { return apiNow }

	deps := &tools.Deps{Gateway: gw, Config: cfg, Now: now}
	engine := actions.NewEngine(gw, cfg)
	engine.Now = now
	registry, err := tools.DefaultRegistry(deps, engine)
	require.NoError(t, err)

	c := cache.New(cfg.Cache)
	c.Now = now
	exec := cache.NewExecutor(registry, c)

	store := briefing.NewStore()
	orch := briefing.NewOrchestrator(exec, cfg, store)
	orch.Now = now

	publisher := events.NewIngestionPublisher()
	publisher.Subscribe(events.CacheInvalidator(exec))
	publisher.Subscribe(events.ActionInvalidator(engine))

	srv := NewServer(Options{
		Config:    cfg,
		Executor:  exec,
		Engine:    engine,
		Briefings: orch,
		Store:     store,
		Validator: grounding.NewValidator(nil, cfg.Grounding),
		Memories:  memory.NewStubStore(),
		Publisher: publisher,
	})
	return srv, srv.Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthWithoutDatabase(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestQueryExecutesToolThroughCache(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/query",
		gin.H{"tool": "production_status", "input": gin.H{"area": "grinding"}})
	require.Equal(t, http.StatusOK, w.Code)

	var result models.ToolResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Citations)

	// The identical query is a cache hit.
	doJSON(t, router, http.MethodPost, "/api/v1/query",
		gin.H{"tool": "production_status", "input": gin.H{"area": "grinding"}})

	stats := doJSON(t, router, http.MethodGet, "/api/v1/cache/stats", nil)
	require.Equal(t, http.StatusOK, stats.Code)
	var parsed cache.Stats
	require.NoError(t, json.Unmarshal(stats.Body.Bytes(), &parsed))
	assert.Equal(t, int64(1), parsed.Hits)
}

func TestQueryUnknownTool(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/query", gin.H{"tool": "divination"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryMissingTool(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/query", gin.H{"input": gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTools(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/tools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "production_status")
	assert.Contains(t, w.Body.String(), "plant_overview")
}

func TestActionsEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/actions?date=2025-03-14", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ActionList    models.ActionListResponse `json:"action_list"`
		DegradedTiers []string                  `json:"degraded_tiers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	// Grinder 1 sits well below the OEE target.
	assert.NotEmpty(t, body.ActionList.Actions)
	assert.Empty(t, body.DegradedTiers)
}

func TestActionsBadDate(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/actions?date=tomorrow-ish", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlantBriefingEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/briefings/plant",
		gin.H{"user_id": "usr-1"})
	require.Equal(t, http.StatusOK, w.Code)

	var b briefing.Briefing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, briefing.TypePlant, b.Type)
	require.Len(t, b.Sections, 3)
	assert.Equal(t, "headline", b.Sections[0].ID)
	assert.Equal(t, 100.0, b.CompletionPercentage)
}

func TestBriefingRequiresUserID(t *testing.T) {
	_, router := newTestServer(t)
	for _, path := range []string{
		"/api/v1/briefings/plant",
		"/api/v1/briefings/supervisor",
		"/api/v1/briefings/eod",
		"/api/v1/briefings/handoff",
	} {
		w := doJSON(t, router, http.MethodPost, path, gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestGetBriefingRoundTrip(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/briefings/handoff",
		gin.H{"user_id": "usr-1"})
	require.Equal(t, http.StatusOK, w.Code)

	var b briefing.Briefing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	require.NotEmpty(t, b.ID)

	got := doJSON(t, router, http.MethodGet, "/api/v1/briefings/"+b.ID, nil)
	assert.Equal(t, http.StatusOK, got.Code)

	missing := doJSON(t, router, http.MethodGet, "/api/v1/briefings/brf-nope", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestGroundEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/ground", gin.H{
		"response_text": "Grinder 1 ran at 72.0% OEE on 2025-03-14.",
		"sources": []gin.H{{
			"table": "daily_summaries",
			"fields": gin.H{
				"id": "s1", "asset_id": "a-grinder-1", "asset_name": "Grinder 1",
				"report_date": "2025-03-14", "oee_percentage": 72.0,
			},
		}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var cited models.CitedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cited))
	assert.GreaterOrEqual(t, cited.GroundingScore, 0.0)
	assert.LessOrEqual(t, cited.GroundingScore, 1.0)
	assert.NotNil(t, cited.Citations)
}

func TestIngestInvalidatesCache(t *testing.T) {
	srv, router := newTestServer(t)

	doJSON(t, router, http.MethodPost, "/api/v1/query",
		gin.H{"tool": "oee_query", "input": gin.H{"time_range": "yesterday"}})
	require.Equal(t, 1, srv.exec.Stats().Entries)

	w := doJSON(t, router, http.MethodPost, "/api/v1/ingest",
		gin.H{"date": "2025-03-14", "tables": []string{"daily_summaries"}})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 0, srv.exec.Stats().Entries)
}

func TestIngestBadDate(t *testing.T) {
	_, router := newTestServer(t)
	w := doJSON(t, router, http.MethodPost, "/api/v1/ingest",
		gin.H{"date": "soon", "tables": []string{"daily_summaries"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
