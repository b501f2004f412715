package journey

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartguard/cartguard/internal/features"
	"github.com/cartguard/cartguard/internal/scan"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func seedRecord(t *testing.T, store scan.Store, riskPct int, isBot bool, stage features.FunnelStage) {
	t.Helper()
	err := store.Record(context.Background(), &scan.Record{
		Assessment: scan.RiskAssessment{
			ID:          "scan_test",
			RiskPct:     riskPct,
			IsBot:       isBot,
			Source:      scan.SourceModel,
			EvaluatedAt: time.Now(),
		},
		Features: features.SessionFeatures{
			ItemCount:    2,
			CartValue:    75,
			DwellMinutes: 3,
			Platform:     features.PlatformDesktop,
			FunnelStage:  stage,
		},
	})
	require.NoError(t, err)
}

func TestFunnelEndpoint(t *testing.T) {
	store := scan.NewMemoryStore()
	seedRecord(t, store, 30, false, features.StageCart)
	seedRecord(t, store, 70, false, features.StageCart)
	seedRecord(t, store, 90, true, features.StageReview)

	router := gin.New()
	NewHandler(store).RegisterRoutes(router.Group("/v1"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/journey/funnel", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stages []scan.StageStats `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Stages, len(features.Stages))

	assert.Equal(t, features.StageCart, resp.Stages[0].Stage)
	assert.Equal(t, 2, resp.Stages[0].Scans)
	assert.Equal(t, 50.0, resp.Stages[0].MeanRiskPct)
	assert.Equal(t, features.StageReview, resp.Stages[3].Stage)
	assert.Equal(t, 1, resp.Stages[3].Bots)
}

func TestFunnelEndpointEmpty(t *testing.T) {
	router := gin.New()
	NewHandler(scan.NewMemoryStore()).RegisterRoutes(router.Group("/v1"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/journey/funnel", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stages []scan.StageStats `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Stages, len(features.Stages))
	for _, st := range resp.Stages {
		assert.Zero(t, st.Scans)
	}
}
