package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/conciliador/client"
	"github.com/Aashish23092/conciliador/dto"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	t.Setenv("CONCILIADOR_STORE_PATH", filepath.Join(t.TempDir(), "store"))
	t.Setenv("CONCILIADOR_LOG_OUTPUT", "discard")

	var out bytes.Buffer
	app := NewApp("test")
	app.out = &out
	return app, &out
}

func TestSyncExportCommands(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.xlsx")
	outPath := filepath.Join(dir, "out.xlsx")

	wb := client.NewWorkbookClient()
	require.NoError(t, wb.WriteRows(in, []dto.RawRow{
		{CaseID: "1234567", OrderID: "4500000001", Price: "1500", Status: "FACTURADO", InvoiceNo: "A42"},
		{CaseID: "", OrderID: "4500000002"},
	}))

	app, out := newTestApp(t)
	require.NoError(t, app.Execute(context.Background(), []string{"sync", "--dry-run", in}))
	assert.Contains(t, out.String(), "dry run")
	assert.Contains(t, out.String(), "inserted 1, updated 0, skipped 1, failed 0")

	out.Reset()
	require.NoError(t, app.Execute(context.Background(), []string{"sync", in}))
	assert.Contains(t, out.String(), "inserted 1")

	out.Reset()
	require.NoError(t, app.Execute(context.Background(), []string{"-q", "export", outPath}))
	assert.Contains(t, out.String(), "1 rows written")

	rows, err := wb.ReadRows(outPath)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "01234567", rows[0].CaseID)
	assert.Equal(t, "4500000001", rows[0].OrderID)
	assert.Equal(t, "FACTURADO", rows[0].Status)
	assert.Equal(t, "A42", rows[0].InvoiceNo)
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	stored := filepath.Join(dir, "stored.xlsx")
	edited := filepath.Join(dir, "edited.xlsx")
	jsonPath := filepath.Join(dir, "compare.json")

	wb := client.NewWorkbookClient()
	require.NoError(t, wb.WriteRows(stored, []dto.RawRow{
		{CaseID: "1", OrderID: "4500000001", Status: "FACTURADO", InvoiceNo: "A42"},
		{CaseID: "2", OrderID: "4500000002"},
	}))
	require.NoError(t, wb.WriteRows(edited, []dto.RawRow{
		{CaseID: "1", OrderID: "4500000001", Status: "FACTURADO", InvoiceNo: "A43"},
		{CaseID: "3", OrderID: "4500000003"},
	}))

	app, out := newTestApp(t)
	require.NoError(t, app.Execute(context.Background(), []string{"sync", stored}))

	out.Reset()
	require.NoError(t, app.Execute(context.Background(), []string{"compare", "-o", jsonPath, edited}))
	text := out.String()
	assert.Contains(t, text, "Expedientes nuevos en workbook: 1\n   - 00000003\n")
	assert.Contains(t, text, "Expedientes faltantes en workbook: 1\n   - 00000002\n")
	assert.Contains(t, text, "Pedidos con diferencias: 1\n   - 4500000001 (expediente 00000001)\n")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var report dto.CompareReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "IKE", report.Cliente)
	require.Len(t, report.PedidosDiferentes, 1)
	assert.Equal(t, "A42", report.PedidosDiferentes[0].Store.Factura)
	assert.Equal(t, "A43", report.PedidosDiferentes[0].Workbook.Factura)
}

func TestExtractAndDetectEmptyDirs(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "pdfs")
	require.NoError(t, os.Mkdir(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "notes.txt"), []byte("x"), 0o644))

	workbook := filepath.Join(dir, "data.xlsx")
	report := filepath.Join(dir, "report.txt")
	logFile := filepath.Join(dir, "facturas.log")

	app, out := newTestApp(t)
	require.NoError(t, app.Execute(context.Background(), []string{"extract", docs, workbook, report}))
	assert.Contains(t, out.String(), "0 new rows")

	text, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Total de PDFs encontrados: 0")

	out.Reset()
	require.NoError(t, app.Execute(context.Background(), []string{"detect", "--log-file", logFile, docs, workbook}))
	assert.Contains(t, out.String(), "0 rows updated")
	assert.FileExists(t, logFile)
}

func TestCommandErrors(t *testing.T) {
	app, _ := newTestApp(t)

	err := app.Execute(context.Background(), []string{"extract", "only-one-arg"})
	assert.Error(t, err)

	err = app.Execute(context.Background(), []string{"extract", filepath.Join(t.TempDir(), "missing"), "a.xlsx", "r.txt"})
	assert.Error(t, err)

	err = app.Execute(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "export", "x.xlsx"})
	assert.Error(t, err)
}

func TestLogLevelFlags(t *testing.T) {
	app, _ := newTestApp(t)
	dir := t.TempDir()

	require.NoError(t, app.Execute(context.Background(), []string{"-v", "export", filepath.Join(dir, "a.xlsx")}))
	assert.Equal(t, "debug", app.cfg.Log.Level)

	app2, _ := newTestApp(t)
	require.NoError(t, app2.Execute(context.Background(), []string{"--log-level", "error", "-v", "export", filepath.Join(dir, "b.xlsx")}))
	assert.Equal(t, "error", app2.cfg.Log.Level)
}

func TestLogFileClosedAfterExecute(t *testing.T) {
	app, _ := newTestApp(t)
	logPath := filepath.Join(t.TempDir(), "conciliador.log")
	t.Setenv("CONCILIADOR_LOG_OUTPUT", logPath)
	t.Setenv("CONCILIADOR_LOG_FORMAT", "json")

	require.NoError(t, app.Execute(context.Background(), []string{"export", filepath.Join(t.TempDir(), "out.xlsx")}))
	assert.Nil(t, app.logCloser)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "export finished")
}
