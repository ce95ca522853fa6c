package rest

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/namastexlabs/automagik-omni-go/core/config"
	"github.com/namastexlabs/automagik-omni-go/domains/instance"
	"github.com/namastexlabs/automagik-omni-go/repository"
	"github.com/namastexlabs/automagik-omni-go/ui/rest/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestApp wires the Admin API against a real sqlite-backed repository
// layer with auth bypassed (test-mode config), the same way the server
// bootstraps in production minus the network-facing channel adapters and
// router, which these handler tests never reach.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	instances := repository.NewInstanceRepository(db)
	accessControl := repository.NewAccessRepository(db)
	traces := repository.NewTraceRepository(db, 1024)
	require.NoError(t, accessControl.Reload(t.Context()))

	cfg := &config.Config{App: config.AppConfig{Environment: "test"}}

	app := fiber.New()
	app.Use(middleware.Recovery())
	RegisterRoutes(app, Dependencies{
		Config:    cfg,
		Instances: instances,
		Access:    accessControl,
		Traces:    traces,
		Router:    nil,
	})
	return app
}

func TestInstanceRoutes_CreateListGet(t *testing.T) {
	app := newTestApp(t)

	createBody, _ := json.Marshal(instance.CreateRequest{
		Name:        "tenant-a",
		ChannelType: instance.ChannelWhatsApp,
		AgentAPIURL: "https://agent",
	})
	req := httptest.NewRequest("POST", "/api/v1/instances/", bytes.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	listReq := httptest.NewRequest("GET", "/api/v1/instances/", nil)
	listResp, err := app.Test(listReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, listResp.StatusCode)

	getReq := httptest.NewRequest("GET", "/api/v1/instances/tenant-a", nil)
	getResp, err := app.Test(getReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, getResp.StatusCode)
}

func TestInstanceRoutes_CreateMissingFieldsIsValidationError(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/instances/", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestInstanceRoutes_GetMissingIs404(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/instances/does-not-exist", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAccessRuleRoutes_AddAndList(t *testing.T) {
	app := newTestApp(t)

	addBody, _ := json.Marshal(map[string]any{"rule_type": "deny", "phone_number": "5511999990000"})
	req := httptest.NewRequest("POST", "/api/v1/access-rules/", bytes.NewReader(addBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	listReq := httptest.NewRequest("GET", "/api/v1/access-rules/", nil)
	listResp, err := app.Test(listReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, listResp.StatusCode)
}

func TestTraceRoutes_AnalyticsEmpty(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/traces/analytics", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
