package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/logging"
	"github.com/Aashish23092/conciliador/metrics"
)

func purchaseOrder(orderID, line string) []string {
	return []string{
		"Pedido de compra: " + orderID + "\n" +
			"Fecha para la que se requiere\n" +
			"Cant. (Unidad) 8 oct 2024\n" +
			line + "\n",
	}
}

func TestExtractSuppressesAndReportsDuplicates(t *testing.T) {
	pdf := &fakePDF{pages: map[string][]string{
		"001.pdf": purchaseOrder("4500000001", "10 1 01234567 998877 Material Arrastre $1,500.00 $240.00"),
		"002.pdf": purchaseOrder("4500000002", "10 1 01234567 998877 Material Arrastre $1,600.00 $256.00"),
	}}
	reg := metrics.NewRegistry()
	svc := NewOrderService(pdf, testExtractionConfig(), reg, logging.Nop())

	existing := []dto.RawRow{
		{CaseID: "01234567", OrderID: "4500000001", Price: "1500.00", Description: "Arrastre/M (SER)"},
	}

	res, err := svc.Extract(context.Background(), []Document{doc("001.pdf"), doc("002.pdf")}, existing)
	require.NoError(t, err)

	require.Len(t, res.NewRows, 1)
	assert.Equal(t, "4500000002", res.NewRows[0].OrderID)
	assert.Equal(t, "08/10/2024", res.NewRows[0].RequiredDate)
	require.Len(t, res.Suppressed, 1)
	assert.Equal(t, "4500000001", res.Suppressed[0].OrderID)

	require.Len(t, res.Duplicates, 1)
	g := res.Duplicates[0]
	assert.Equal(t, "01234567", g.CaseID)
	assert.Len(t, g.Rows, 3)
	assert.Equal(t, dto.DuplicateCrossOrder, g.Kind)
	assert.Equal(t, []string{"4500000001", "4500000002"}, g.Orders)
	assert.Equal(t, []float64{1500, 1600}, g.Prices)
	assert.True(t, g.PriceConflict)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.DuplicateGroups))

	report := FormatExtractionReport(res)
	assert.Contains(t, report, "Total de PDFs encontrados: 2")
	assert.Contains(t, report, "Registros omitidos por duplicado: 1")
	assert.Contains(t, report, "Diferentes pedidos (2 pedidos distintos)")
	assert.Contains(t, report, "¡ALERTA! Diferentes precios")
	assert.Contains(t, report, "     - $1600.00")
}

func TestExtractInvalidDocuments(t *testing.T) {
	pdf := &fakePDF{
		pages:  map[string][]string{"empty.pdf": {"Pedido de compra: 4500000001\nsin materiales"}},
		broken: map[string]bool{"broken.pdf": true},
	}
	svc := NewOrderService(pdf, testExtractionConfig(), nil, logging.Nop())

	res, err := svc.Extract(context.Background(), []Document{doc("broken.pdf"), doc("empty.pdf")}, nil)
	require.NoError(t, err)

	require.Len(t, res.Documents, 2)
	assert.False(t, res.Documents[0].Valid)
	assert.Contains(t, res.Documents[0].Reason, "missing header")
	assert.Equal(t, "no material lines found", res.Documents[1].Reason)
	assert.Empty(t, res.NewRows)
	assert.Empty(t, res.Duplicates)

	report := FormatExtractionReport(res)
	assert.Contains(t, report, "PDFs inválidos: 2")
	assert.Contains(t, report, "No se encontraron expedientes duplicados.")
}

func TestMergeDedupesWithinBatch(t *testing.T) {
	svc := NewOrderService(&fakePDF{}, testExtractionConfig(), nil, logging.Nop())
	line := "10 1 07654321 1 Material Arrastre $900.00 $144.00"

	a := svc.ParsePages("a.pdf", purchaseOrder("4500000003", line))
	b := svc.ParsePages("b.pdf", purchaseOrder("4500000003", line))
	res := svc.Merge([]dto.OrderDocument{a, b}, nil)

	assert.Len(t, res.NewRows, 1)
	assert.Len(t, res.Suppressed, 1)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, dto.DuplicateSameOrder, res.Duplicates[0].Kind)
	assert.False(t, res.Duplicates[0].PriceConflict)

	report := FormatDuplicateReport(res.Duplicates)
	assert.Contains(t, report, "Mismo pedido (4500000003)")
	assert.Contains(t, report, "Número de ocurrencias: 2")
}

func TestAnalyzeDuplicatesOrdering(t *testing.T) {
	rows := []dto.RawRow{
		{CaseID: "2", OrderID: "B", Price: "$20"},
		{CaseID: "1", OrderID: "B", Price: "n/a"},
		{CaseID: "2", OrderID: "A", Price: "$30"},
		{CaseID: "1", OrderID: "A", Price: "$5"},
		{CaseID: "3", OrderID: "A", Price: "$5"},
		{CaseID: "", OrderID: "A"},
		{CaseID: "", OrderID: "B"},
	}

	groups := AnalyzeDuplicates(rows)
	require.Len(t, groups, 2)
	assert.Equal(t, "1", groups[0].CaseID)
	assert.Equal(t, "2", groups[1].CaseID)
	assert.Equal(t, []float64{0, 5}, groups[0].Prices)
	assert.Equal(t, "A", groups[1].Rows[0].OrderID)
	assert.Equal(t, "B", groups[1].Rows[1].OrderID)
}
