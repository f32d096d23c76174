package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/suministros-api/internal/application/apptest"
	appinv "github.com/jhoicas/suministros-api/internal/application/inventory"
	"github.com/jhoicas/suministros-api/internal/application/usecase"
	"github.com/jhoicas/suministros-api/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/suministros-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/suministros-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type apiFixture struct {
	app     *fiber.App
	metrics *metrics.Metrics
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := apptest.NewStore()
	repos := store.Repos()
	m := metrics.New()
	ledger := appinv.NewLedgerUseCase(store.TxRunner(), repos.Movements, nil, nil, m, zerolog.Nop(), appinv.DefaultLedgerConfig())
	projection := appinv.NewProjectionUseCase(repos.Items, repos.Locations, repos.Movements, repos.Stock, nil, zerolog.Nop(),
		appinv.ProjectionConfig{CacheTTL: time.Minute})

	app := fiber.New()
	app.Use(apphttp.RequestLogger(zerolog.Nop(), m))
	apphttp.Router(app, apphttp.RouterDeps{
		LocationUC:   usecase.NewLocationUseCase(store.TxRunner(), repos.Locations),
		ItemUC:       usecase.NewItemUseCase(repos.Items, repos.Locations),
		Ledger:       ledger,
		Projection:   projection,
		JWTSecret:    testJWTSecret,
		ServiceName:  "suministros-api",
		MetricsRoute: m.Handler(),
	})
	return &apiFixture{app: app, metrics: m}
}

// call lanza la petición con un token del rol indicado (role vacío = sin token) y decodifica el JSON.
func (f *apiFixture) call(t *testing.T, method, path, role string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

// setup crea una ubicación y un artículo y devuelve sus IDs.
func (f *apiFixture) setup(t *testing.T) (itemID, locationID string) {
	t.Helper()
	status, loc := f.call(t, http.MethodPost, "/api/locations", pkgjwt.RoleAdmin, map[string]any{"code": "bod-01", "name": "Bodega central"})
	require.Equal(t, http.StatusCreated, status)
	status, item := f.call(t, http.MethodPost, "/api/items", pkgjwt.RoleAdmin, map[string]any{
		"sku": "pap-001", "name": "Resma carta", "unit": "resma", "low_stock_threshold": "20",
	})
	require.Equal(t, http.StatusCreated, status)
	return item["id"].(string), loc["id"].(string)
}

// ──────────────────────────────────────────────────────────────────────────────
// Rutas públicas y autorización
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_HealthSinToken(t *testing.T) {
	f := newAPI(t)
	status, body := f.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_APIRequiereToken(t *testing.T) {
	f := newAPI(t)
	status, body := f.call(t, http.MethodGet, "/api/locations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_TOKEN", body["code"])
}

func TestRouter_ConsultaSoloLee(t *testing.T) {
	f := newAPI(t)
	status, body := f.call(t, http.MethodPost, "/api/locations", pkgjwt.RoleConsulta, map[string]any{"code": "A", "name": "A"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, _ = f.call(t, http.MethodGet, "/api/locations", pkgjwt.RoleConsulta, nil)
	assert.Equal(t, http.StatusOK, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Mapeo de errores
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_ValidacionDeCuerpo(t *testing.T) {
	f := newAPI(t)
	status, body := f.call(t, http.MethodPost, "/api/movements", pkgjwt.RoleBodeguero, map[string]any{
		"item_id": "no-es-uuid", "location_id": "tampoco", "type": "transfer", "quantity": "5",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "item_id")
	assert.Contains(t, details, "location_id")
	assert.Contains(t, details, "type")
}

func TestRouter_UbicacionInexistente404(t *testing.T) {
	f := newAPI(t)
	status, body := f.call(t, http.MethodGet, "/api/locations/00000000-0000-0000-0000-00000000dead", pkgjwt.RoleConsulta, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestRouter_CodigoDuplicado409(t *testing.T) {
	f := newAPI(t)
	f.setup(t)
	status, body := f.call(t, http.MethodPost, "/api/locations", pkgjwt.RoleAdmin, map[string]any{"code": "BOD-01", "name": "Otra"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["code"])
}

func TestRouter_IDMalFormadoEs400(t *testing.T) {
	f := newAPI(t)
	for _, path := range []string{"/api/movements/abc", "/api/locations/abc", "/api/items/abc/inventory", "/api/locations/abc/ancestors"} {
		status, body := f.call(t, http.MethodGet, path, pkgjwt.RoleConsulta, nil)
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.Equal(t, "VALIDATION", body["code"], path)
		assert.Contains(t, body["details"], "id", path)
	}

	status, _ := f.call(t, http.MethodDelete, "/api/movements/abc", pkgjwt.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRouter_StockConIDsMalFormados(t *testing.T) {
	f := newAPI(t)
	_, locID := f.setup(t)
	status, body := f.call(t, http.MethodGet, "/api/inventory/stock?item_id=abc&location_id="+locID, pkgjwt.RoleConsulta, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	details := body["details"].(map[string]any)
	assert.Equal(t, "debe ser un UUID", details["item_id"])
	assert.NotContains(t, details, "location_id")
}

func TestRouter_HistorialParametroDays(t *testing.T) {
	f := newAPI(t)
	itemID, locID := f.setup(t)
	base := "/api/items/" + itemID + "/history"

	status, body := f.call(t, http.MethodGet, base+"?days=abc", pkgjwt.RoleConsulta, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["details"], "days")

	status, body = f.call(t, http.MethodGet, base+"?days=0", pkgjwt.RoleConsulta, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["days"])
	assert.Len(t, body["series"], 1)

	status, body = f.call(t, http.MethodGet, base+"?location_id="+locID, pkgjwt.RoleConsulta, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 30, body["days"])
	assert.Len(t, body["series"], 31)

	status, _ = f.call(t, http.MethodGet, base+"?location_id=nope", pkgjwt.RoleConsulta, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo de movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_SalidaSuperaStock(t *testing.T) {
	f := newAPI(t)
	itemID, locID := f.setup(t)

	status, mov := f.call(t, http.MethodPost, "/api/movements", pkgjwt.RoleBodeguero, map[string]any{
		"item_id": itemID, "location_id": locID, "type": "inbound", "quantity": "100", "supplier": "Papelería S.A.",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, testUserName, mov["operator"], "sin operator se usa el usuario del token")

	status, body := f.call(t, http.MethodPost, "/api/movements", pkgjwt.RoleBodeguero, map[string]any{
		"item_id": itemID, "location_id": locID, "type": "outbound", "quantity": "150",
		"recipient": "Contabilidad", "purpose": "consumo",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, "100", details["current"])
	assert.Equal(t, "150", details["requested"])

	status, stock := f.call(t, http.MethodGet, "/api/inventory/stock?item_id="+itemID+"&location_id="+locID, pkgjwt.RoleConsulta, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "100", stock["current_stock"])
}

func TestRouter_LoteRechazadoReportaFilas(t *testing.T) {
	f := newAPI(t)
	itemID, locID := f.setup(t)

	status, body := f.call(t, http.MethodPost, "/api/movements/batch", pkgjwt.RoleBodeguero, map[string]any{
		"batch_id": "LOTE-1",
		"movements": []map[string]any{
			{"item_id": itemID, "location_id": locID, "type": "outbound", "quantity": "5", "recipient": "R", "purpose": "P"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "BATCH_REJECTED", body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, "LOTE-1", details["batch_id"])
	failures := details["failures"].([]any)
	require.NotEmpty(t, failures)
	assert.Equal(t, "INSUFFICIENT_STOCK", failures[0].(map[string]any)["code"])

	status, _ = f.call(t, http.MethodGet, "/api/movements/batch/LOTE-1", pkgjwt.RoleConsulta, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_StockRequiereParametros(t *testing.T) {
	f := newAPI(t)
	status, body := f.call(t, http.MethodGet, "/api/inventory/stock", pkgjwt.RoleConsulta, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	details := body["details"].(map[string]any)
	assert.Contains(t, details, "item_id")
	assert.Contains(t, details, "location_id")
}

func TestRouter_UmbralNoNumerico(t *testing.T) {
	f := newAPI(t)
	status, body := f.call(t, http.MethodGet, "/api/inventory/low-stock?threshold=abc", pkgjwt.RoleConsulta, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Métricas
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_MetricasExpuestas(t *testing.T) {
	f := newAPI(t)
	f.call(t, http.MethodGet, "/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "suministros_http_requests_total")
}
