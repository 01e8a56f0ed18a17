package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sourceplane/pipecfg/internal/chain"
	"github.com/sourceplane/pipecfg/internal/loader"
	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	settings, err := loader.Load(context.Background(), "../loader/testdata/tcdsl")
	require.NoError(t, err)
	srv, err := New(validate.Validate(settings, validate.Options{}), nil)
	require.NoError(t, err)
	return srv.Router()
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := get(t, newTestRouter(t), "/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "2022.10", response.Version)
	assert.Equal(t, 8, response.BuildTypes)
}

func TestSettings(t *testing.T) {
	router := newTestRouter(t)

	rr := get(t, router, "/api/v1/settings")
	require.Equal(t, http.StatusOK, rr.Code)
	var settings model.Settings
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &settings))
	assert.Equal(t, model.RootProjectID, settings.Project.ID)
	assert.Len(t, settings.Project.SubProjects, 2)

	rr = get(t, router, "/api/v1/settings.kts")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rr.Body.String(), "object Playwright : BuildType({")
}

func TestBuildTypes(t *testing.T) {
	router := newTestRouter(t)

	rr := get(t, router, "/api/v1/build-types")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []BuildTypeSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 8)
	assert.Equal(t, "HelloWorld1", list[0].ID)

	rr = get(t, router, "/api/v1/build-types/Backend_BackendSurvey")
	require.Equal(t, http.StatusOK, rr.Code)
	var eff model.EffectiveBuildType
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &eff))
	assert.Equal(t, "Backend", eff.Project)
	assert.Len(t, eff.Steps, 1)

	rr = get(t, router, "/api/v1/build-types/Nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nope")
}

func TestChain(t *testing.T) {
	router := newTestRouter(t)

	rr := get(t, router, "/api/v1/build-types/Backend_MakeBackendUnitTests/chain")
	require.Equal(t, http.StatusOK, rr.Code)
	var c chain.Chain
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &c))
	assert.Equal(t, []string{"Backend_BackendSurvey", "Backend_BackendUnitAnalytics", "Backend_MakeBackendUnitTests"}, c.IDs())

	rr = get(t, router, "/api/v1/build-types/Nope/chain")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestValidation(t *testing.T) {
	rr := get(t, newTestRouter(t), "/api/v1/validation")
	require.Equal(t, http.StatusOK, rr.Code)

	var response ValidationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.True(t, response.Valid)
	require.Len(t, response.Issues, 1)
	assert.Equal(t, validate.SeverityWarning, response.Issues[0].Severity)
	assert.Equal(t, "buildTypes/ThisIsAnotherProject", response.Issues[0].Path)
}

func TestCORS(t *testing.T) {
	router := newTestRouter(t)

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRejectsUnindexedSettings(t *testing.T) {
	_, err := New(&validate.Result{}, nil)
	assert.Error(t, err)
}
