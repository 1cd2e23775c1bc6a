// End-to-end tests: HTTP API over the real PostgreSQL gateway.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/opsbrief/pkg/actions"
	"github.com/plantops/opsbrief/pkg/api"
	"github.com/plantops/opsbrief/pkg/briefing"
	"github.com/plantops/opsbrief/pkg/cache"
	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/events"
	"github.com/plantops/opsbrief/pkg/gateway"
	"github.com/plantops/opsbrief/pkg/grounding"
	"github.com/plantops/opsbrief/pkg/memory"
	"github.com/plantops/opsbrief/pkg/tools"
	"github.com/plantops/opsbrief/test/util"
)

// Saturday 2025-03-15 12:00 UTC; "yesterday" is 2025-03-14.
var e2eNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func e2eConfig() *config.Config {
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

func seedStore(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range []string{
		`INSERT INTO assets (id, name, source_id, area) VALUES
			('a-grinder-1', 'Grinder 1', 'src-1', 'grinding'),
			('a-grinder-2', 'Grinder 2', 'src-2', 'grinding'),
			('a-packer-1', 'Packer 1', 'src-3', 'packing')`,
		`INSERT INTO daily_summaries (id, asset_id, report_date, oee_percentage, actual_output,
			target_output, downtime_minutes, downtime_reasons) VALUES
			('s1', 'a-grinder-1', '2025-03-14', 72.0, 7000, 8000, 42.0, '{"jam clearing": 42}'),
			('s2', 'a-grinder-2', '2025-03-14', 88.0, 7800, 8000, 0, NULL),
			('s3', 'a-packer-1', '2025-03-14', 91.0, 8100, 8000, 0, NULL)`,
		`INSERT INTO live_snapshots (asset_id, snapshot_timestamp, current_output, target_output,
			output_variance, status) VALUES
			('a-grinder-1', '2025-03-15T11:55:00Z', 480, 500, -4.0, 'running'),
			('a-grinder-2', '2025-03-15T11:55:00Z', 0, 500, -100.0, 'down'),
			('a-packer-1', '2025-03-15T11:55:00Z', 510, 500, 2.0, 'running')`,
		`INSERT INTO safety_events (id, asset_id, event_timestamp, reason_code, severity,
			description, is_resolved) VALUES
			('se-1', 'a-grinder-1', '2025-03-14T16:00:00Z', 'guard_interlock', 'high',
			 'Guard interlock triggered', false)`,
	} {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}
}

func newStack(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool := util.SetupTestDatabase(t)
	seedStore(t, pool)

	cfg := e2eConfig()
	gw, err := gateway.NewPostgresGateway(pool, time.UTC)
	require.NoError(t, err)

	now := func() time.Time { return e2eNow }
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

	srv := api.NewServer(api.Options{
		Config:    cfg,
		Executor:  exec,
		Engine:    engine,
		Briefings: orch,
		Store:     store,
		Validator: grounding.NewValidator(nil, cfg.Grounding),
		Memories:  memory.NewStubStore(),
		Publisher: publisher,
	})
	return srv.Router()
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMorningBriefingOverPostgres(t *testing.T) {
	router := newStack(t)

	w := postJSON(t, router, "/api/v1/briefings/plant", gin.H{"user_id": "usr-1"})
	require.Equal(t, http.StatusOK, w.Code)

	var b briefing.Briefing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	require.Len(t, b.Sections, 3)
	assert.Equal(t, 100.0, b.CompletionPercentage)

	headline := b.Sections[0]
	assert.Equal(t, "completed", headline.Status)
	assert.Contains(t, headline.Content, "Good morning.")
	assert.Contains(t, headline.Content, "down")

	grinding := b.Sections[1]
	assert.Equal(t, "Grinding", grinding.Title)
	assert.Contains(t, grinding.Content, "jam clearing")
	assert.NotEmpty(t, grinding.Citations)
}

func TestQueryAndIngestOverPostgres(t *testing.T) {
	router := newStack(t)

	w := postJSON(t, router, "/api/v1/query",
		gin.H{"tool": "oee_query", "input": gin.H{"area": "grinding", "time_range": "yesterday"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	// The ingest webhook invalidates the daily tier.
	ing := postJSON(t, router, "/api/v1/ingest",
		gin.H{"date": "2025-03-14", "tables": []string{"daily_summaries"}})
	require.Equal(t, http.StatusAccepted, ing.Code)

	stats := httptest.NewRecorder()
	router.ServeHTTP(stats, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	require.Equal(t, http.StatusOK, stats.Code)
	var parsed cache.Stats
	require.NoError(t, json.Unmarshal(stats.Body.Bytes(), &parsed))
	assert.Equal(t, 0, parsed.Entries)
	assert.GreaterOrEqual(t, parsed.Invalidations, int64(1))
}

func TestSupervisorScopingOverPostgres(t *testing.T) {
	router := newStack(t)

	w := postJSON(t, router, "/api/v1/briefings/supervisor",
		gin.H{"user_id": "usr-2", "assigned_assets": []string{"Grinder 1"}})
	require.Equal(t, http.StatusOK, w.Code)

	var b briefing.Briefing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	require.Len(t, b.Sections, 1)
	content := b.Sections[0].Content
	assert.True(t, strings.Contains(content, "Grinder 1"))
	assert.NotContains(t, content, "Grinder 2 OEE")
	assert.NotContains(t, content, "Packer 1")
}
