package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/internal/services/geocoding"
	apperrors "github.com/killallgit/route-planner-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, text string) ([]geocoding.Place, error) {
	args := m.Called(ctx, text)
	places, _ := args.Get(0).([]geocoding.Place)
	return places, args.Error(1)
}

func place(id, name string, lat, lon float64) geocoding.Place {
	return geocoding.Place{
		Name:       name,
		Center:     geocoding.Coordinates{Lat: lat, Lon: lon},
		Properties: geocoding.Properties{PlaceID: id},
	}
}

func TestPost(t *testing.T) {
	gin.SetMode(gin.TestMode)

	threePlaces := []geocoding.Place{
		place("1", "Medellín, Colombia", 6.2442, -75.5812),
		place("2", "Medellín, Antioquia", 6.25, -75.58),
		place("3", "Antioquia", 6.5, -75.4),
	}

	tests := []struct {
		name           string
		body           any
		setupMock      func(m *mockGeocoder)
		expectedStatus int
		expectedCode   string
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name: "successful lookup",
			body: types.GeocodeRequest{Query: "  Medellín "},
			setupMock: func(m *mockGeocoder) {
				m.On("Geocode", mock.Anything, "Medellín").Return(threePlaces, nil)
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp types.GeocodeResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "Medellín", resp.Query)
				require.Equal(t, 3, resp.Count)
				assert.Equal(t, "1", resp.Results[0].ID)
				assert.Equal(t, "Medellín, Colombia", resp.Results[0].Title)
				assert.Equal(t, -75.5812, resp.Results[0].Coordinates.Lon)
			},
		},
		{
			name: "limit truncates results",
			body: types.GeocodeRequest{Query: "Medellín", Limit: 2},
			setupMock: func(m *mockGeocoder) {
				m.On("Geocode", mock.Anything, "Medellín").Return(threePlaces, nil)
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp types.GeocodeResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, 2, resp.Count)
			},
		},
		{
			name: "no results",
			body: types.GeocodeRequest{Query: "zzzzqx"},
			setupMock: func(m *mockGeocoder) {
				m.On("Geocode", mock.Anything, "zzzzqx").Return([]geocoding.Place{}, nil)
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp types.GeocodeResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "No se encontraron resultados", resp.Message)
				assert.NotNil(t, resp.Results)
				assert.Zero(t, resp.Count)
			},
		},
		{
			name:           "query too short",
			body:           types.GeocodeRequest{Query: "ab"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "QUERY_TOO_SHORT",
			checkResponse: func(t *testing.T, body []byte) {
				var resp types.ErrorResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "Intenta con una palabra más larga", resp.Message)
			},
		},
		{
			name:           "multibyte characters count once",
			body:           types.GeocodeRequest{Query: "ñá"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "QUERY_TOO_SHORT",
		},
		{
			name:           "missing query",
			body:           map[string]any{"limit": 3},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION",
		},
		{
			name:           "limit out of range",
			body:           types.GeocodeRequest{Query: "Medellín", Limit: 500},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION",
		},
		{
			name: "provider failure",
			body: types.GeocodeRequest{Query: "Medellín"},
			setupMock: func(m *mockGeocoder) {
				m.On("Geocode", mock.Anything, "Medellín").
					Return(nil, apperrors.ExternalServiceError("nominatim", errors.New("status 500")))
			},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "EXTERNAL_SERVICE",
		},
		{
			name: "provider timeout",
			body: types.GeocodeRequest{Query: "Medellín"},
			setupMock: func(m *mockGeocoder) {
				m.On("Geocode", mock.Anything, "Medellín").
					Return(nil, apperrors.TimeoutError("nominatim", context.DeadlineExceeded))
			},
			expectedStatus: http.StatusGatewayTimeout,
			expectedCode:   "API_TIMEOUT",
		},
		{
			name: "unclassified failure",
			body: types.GeocodeRequest{Query: "Medellín"},
			setupMock: func(m *mockGeocoder) {
				m.On("Geocode", mock.Anything, "Medellín").Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geocoder := &mockGeocoder{}
			if tt.setupMock != nil {
				tt.setupMock(geocoder)
			}

			engine := gin.New()
			RegisterRoutes(engine.Group("/api/v1/geocode"), &types.Dependencies{Geocoder: geocoder})

			body, err := json.Marshal(tt.body)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/geocode", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				var resp types.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedCode, resp.Error)
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, w.Body.Bytes())
			}
			geocoder.AssertExpectations(t)
		})
	}
}

func TestPost_NoGeocoder(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	RegisterRoutes(engine.Group("/api/v1/geocode"), &types.Dependencies{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/geocode", bytes.NewBufferString(`{"query":"Medellín"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
