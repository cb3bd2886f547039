package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/conciliador/config"
	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/logging"
	"github.com/Aashish23092/conciliador/metrics"
	"github.com/Aashish23092/conciliador/service"
	"github.com/Aashish23092/conciliador/store"
)

// textPDF treats the uploaded bytes as the text of a single page.
type textPDF struct{}

func (textPDF) ExtractPages(data []byte) ([]string, error) { return []string{string(data)}, nil }

func (textPDF) Validate([]byte) error { return nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.NewMemPebbleStore()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := logging.Nop()
	reg := metrics.NewRegistry()
	cfg := config.ExtractionConfig{Workers: 2, ContextWindow: 30}

	syncService := service.NewSyncService(
		service.NewTransformer("IKE", "api", "1", log),
		service.NewMergeService(st, nil, reg, log),
		st,
		log,
	)
	h := Handlers{
		Expedientes: NewExpedienteHandler(service.NewExpedienteService(st)),
		Processing: NewProcessingHandler(
			service.NewInvoiceService(textPDF{}, cfg, reg, log),
			service.NewOrderService(textPDF{}, cfg, reg, log),
			syncService,
			"IKE",
		),
		Sync: NewSyncHandler(syncService),
	}
	return NewRouter(h, reg, log, 8)
}

func do(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func syncBody(t *testing.T, rows []dto.RawRow) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(dto.SyncRequest{Rows: rows})
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func upload(t *testing.T, url string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files[]", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSyncAndQuery(t *testing.T) {
	r := newTestRouter(t)

	rows := []dto.RawRow{
		{CaseID: "1234567", OrderID: "4500000001", Price: "1500", Status: "FACTURADO"},
		{CaseID: "7654321", OrderID: "4500000001", Price: "900"},
	}
	w := do(t, r, httptest.NewRequest(http.MethodPost, "/api/v1/expedientes/sync?dry_run=true", syncBody(t, rows)))
	require.Equal(t, http.StatusOK, w.Code)
	var summary dto.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.Inserted)

	w = do(t, r, httptest.NewRequest(http.MethodPost, "/api/v1/expedientes/sync", syncBody(t, rows)))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/expedientes?cliente=ike&limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.ExpedienteListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 2, list.Pages)
	assert.Len(t, list.Items, 1)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/expedientes/IKE/1234567", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var doc dto.Expediente
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "01234567", doc.NumeroExpediente)
	assert.Equal(t, dto.EstadoCompleto, doc.Metadatos.EstadoGeneral)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/pedidos/4500000001", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var docs []dto.Expediente
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	assert.Len(t, docs, 2)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/estadisticas", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Completos)
	assert.Equal(t, 1, stats.Pendientes)
}

func TestInvoiceAndDuplicateQueries(t *testing.T) {
	r := newTestRouter(t)

	rows := []dto.RawRow{
		{CaseID: "12345678", OrderID: "1111111111", Price: "100", Status: "FACTURADO", InvoiceNo: "A42"},
		{CaseID: "12345678", OrderID: "2222222222", Price: "150"},
	}
	w := do(t, r, httptest.NewRequest(http.MethodPost, "/api/v1/expedientes/sync?force=true", syncBody(t, rows)))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/facturas/a42", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var docs []dto.Expediente
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "12345678", docs[0].NumeroExpediente)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/duplicados?cliente=ike", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var groups []dto.DuplicateGroup
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"1111111111", "2222222222"}, groups[0].Orders)
	assert.True(t, groups[0].PriceConflict)

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/duplicados?format=text", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Expediente duplicado: 12345678")
}

func TestErrorResponses(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"missing expediente", httptest.NewRequest(http.MethodGet, "/api/v1/expedientes/IKE/99", nil), http.StatusNotFound, "NOT_FOUND"},
		{"non numeric case", httptest.NewRequest(http.MethodGet, "/api/v1/expedientes/IKE/abc", nil), http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown order", httptest.NewRequest(http.MethodGet, "/api/v1/pedidos/1", nil), http.StatusNotFound, "NOT_FOUND"},
		{"unknown invoice", httptest.NewRequest(http.MethodGet, "/api/v1/facturas/Z9", nil), http.StatusNotFound, "NOT_FOUND"},
		{"empty sync", httptest.NewRequest(http.MethodPost, "/api/v1/expedientes/sync", strings.NewReader(`{"rows":[]}`)), http.StatusBadRequest, "INVALID_INPUT"},
		{"bad flag", httptest.NewRequest(http.MethodPost, "/api/v1/expedientes/sync?force=maybe", syncBody(t, []dto.RawRow{{CaseID: "1"}})), http.StatusBadRequest, "INVALID_INPUT"},
		{"no files", upload(t, "/api/v1/invoices/detect", nil), http.StatusBadRequest, "INVALID_INPUT"},
		{"not a pdf", upload(t, "/api/v1/invoices/detect", map[string]string{"a.txt": "x"}), http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.req)
			assert.Equal(t, tt.status, w.Code)
			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, tt.status, resp.Code)
		})
	}
}

func TestDetectInvoicesUpload(t *testing.T) {
	r := newTestRouter(t)

	page := "SERIE: A\nFOLIO: 42\nDESCRIPCION\n00 01234567 8901234567 MATERIAL\nIMPUESTOS FEDERALES"
	w := do(t, r, upload(t, "/api/v1/invoices/detect", map[string]string{"a.pdf": page}))
	require.Equal(t, http.StatusOK, w.Code)

	var res dto.DetectionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"8901234567"}, res.Orders)
	assert.Equal(t, []string{"01234567"}, res.Cases)
	assert.Equal(t, "A42", res.Index.Invoices["01234567"])
}

func TestExtractOrdersUpload(t *testing.T) {
	r := newTestRouter(t)

	rows := []dto.RawRow{{CaseID: "01234567", OrderID: "4500000001", Price: "1500"}}
	w := do(t, r, httptest.NewRequest(http.MethodPost, "/api/v1/expedientes/sync", syncBody(t, rows)))
	require.Equal(t, http.StatusOK, w.Code)

	po := "Pedido de compra: 4500000002\n10 1 01234567 998877 Material Arrastre $1,600.00 $256.00\n"
	w = do(t, r, upload(t, "/api/v1/orders/extract", map[string]string{"po.pdf": po}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ExtractionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Result.NewRows, 1)
	require.Len(t, resp.Result.Duplicates, 1)
	assert.True(t, resp.Result.Duplicates[0].PriceConflict)
	assert.Contains(t, resp.Report, "¡ALERTA!")
}
