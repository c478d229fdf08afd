package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotionsim/emotionsim/pkg/models"
)

func TestCreateScenario(t *testing.T) {
	env := newTestEnv(t)

	sc := testScenario("", 5)
	rec := env.do(t, http.MethodPost, "/api/scenarios", sc)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Scenario](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Mini Flood", created.Name)

	rec = env.do(t, http.MethodGet, "/api/scenarios/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]models.Scenario](t, rec)
	require.Len(t, list["scenarios"], 1)
}

func TestCreateScenarioDuplicate(t *testing.T) {
	env := newTestEnv(t, testScenario("flood-mini", 5))

	rec := env.do(t, http.MethodPost, "/api/scenarios", testScenario("flood-mini", 5))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateScenarioInvalid(t *testing.T) {
	env := newTestEnv(t)

	sc := testScenario("", 5)
	sc.World.InitialState.Locations = nil
	rec := env.do(t, http.MethodPost, "/api/scenarios", sc)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sc = testScenario("", 5)
	sc.Agents = nil
	rec = env.do(t, http.MethodPost, "/api/scenarios", sc)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetScenarioNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/scenarios/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
