package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/internal/database"
	"github.com/killallgit/route-planner-api/internal/services/cache"
	"github.com/killallgit/route-planner-api/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "health.db"), database.Options{Logger: logger.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		setupDeps      func(t *testing.T) *types.Dependencies
		expectedStatus int
		expectedBody   string
		expectedDB     string
		expectedCache  string
	}{
		{
			name: "healthy with database and memory cache",
			setupDeps: func(t *testing.T) *types.Dependencies {
				mc := cache.NewMemoryCache(1)
				t.Cleanup(func() { _ = mc.Close() })
				return &types.Dependencies{DB: openDB(t), Cache: mc}
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
			expectedDB:     "healthy",
			expectedCache:  "healthy",
		},
		{
			name: "nothing configured",
			setupDeps: func(t *testing.T) *types.Dependencies {
				return &types.Dependencies{}
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
			expectedDB:     "not configured",
			expectedCache:  "not configured",
		},
		{
			name: "closed database",
			setupDeps: func(t *testing.T) *types.Dependencies {
				db := openDB(t)
				sqlDB, err := db.DB.DB()
				require.NoError(t, err)
				require.NoError(t, sqlDB.Close())
				return &types.Dependencies{DB: db}
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "unhealthy",
			expectedDB:     "unhealthy",
			expectedCache:  "not configured",
		},
		{
			name: "redis down",
			setupDeps: func(t *testing.T) *types.Dependencies {
				mr := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				rc := cache.NewRedisCacheFromClient(client, "test:", logger.Discard())
				t.Cleanup(func() { _ = rc.Close() })
				mr.Close()
				return &types.Dependencies{DB: openDB(t), Cache: rc}
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "degraded",
			expectedDB:     "healthy",
			expectedCache:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

			Get(tt.setupDeps(t))(c)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response types.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedBody, response.Status)
			assert.NotEmpty(t, response.Timestamp)

			db := response.Services["database"].(map[string]any)
			assert.Equal(t, tt.expectedDB, db["status"])
			cacheStatus := response.Services["cache"].(map[string]any)
			assert.Equal(t, tt.expectedCache, cacheStatus["status"])
		})
	}
}
