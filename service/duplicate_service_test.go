package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/conciliador/dto"
)

func TestAnalyzeDuplicates(t *testing.T) {
	tests := []struct {
		name       string
		rows       []dto.RawRow
		wantGroups int
		kind       dto.DuplicateKind
		orders     []string
		prices     []float64
		rowOrders  []string
		rowPrices  []string
		conflict   bool
		report     []string
	}{
		{
			name: "cross order with price conflict",
			rows: []dto.RawRow{
				{CaseID: "12345678", OrderID: "2222222222", Price: "150", Description: "Arrastre"},
				{CaseID: "12345678", OrderID: "1111111111", Price: "100", Description: "Arrastre"},
				{CaseID: "12345678", OrderID: "1111111111", Price: "100", Description: "Arrastre"},
			},
			wantGroups: 1,
			kind:       dto.DuplicateCrossOrder,
			orders:     []string{"1111111111", "2222222222"},
			prices:     []float64{100, 150},
			rowOrders:  []string{"1111111111", "1111111111", "2222222222"},
			rowPrices:  []string{"100", "100", "150"},
			conflict:   true,
			report: []string{
				"Expediente duplicado: 12345678",
				"TIPO DE DUPLICADO: Diferentes pedidos (2 pedidos distintos)",
				"   - Pedido: 1111111111\n   - Pedido: 2222222222\n",
				"   - Pedido: 1111111111\n     Precio: $100.00\n   - Pedido: 1111111111\n     Precio: $100.00\n   - Pedido: 2222222222\n     Precio: $150.00\n",
				"¡ALERTA! Diferentes precios encontrados:\n     - $100.00\n     - $150.00\n",
			},
		},
		{
			name: "same order same price",
			rows: []dto.RawRow{
				{CaseID: "12345678", OrderID: "1111111111", Price: "100"},
				{CaseID: "12345678", OrderID: "1111111111", Price: "100"},
			},
			wantGroups: 1,
			kind:       dto.DuplicateSameOrder,
			orders:     []string{"1111111111"},
			prices:     []float64{100},
			rowOrders:  []string{"1111111111", "1111111111"},
			rowPrices:  []string{"100", "100"},
			report: []string{
				"TIPO DE DUPLICADO: Mismo pedido (1111111111)",
				"Número de ocurrencias: 2",
			},
		},
		{
			name: "no duplicates",
			rows: []dto.RawRow{
				{CaseID: "12345678", OrderID: "1111111111", Price: "100"},
				{CaseID: "87654321", OrderID: "1111111111", Price: "100"},
				{CaseID: "", OrderID: "2222222222"},
				{CaseID: " ", OrderID: "2222222222"},
			},
			report: []string{"No se encontraron expedientes duplicados."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := AnalyzeDuplicates(tt.rows)
			require.Len(t, groups, tt.wantGroups)

			report := FormatDuplicateReport(groups)
			assert.Contains(t, report, "=== ANÁLISIS DE DUPLICADOS ===")
			for _, want := range tt.report {
				assert.Contains(t, report, want)
			}
			if tt.wantGroups == 0 {
				return
			}

			g := groups[0]
			assert.Equal(t, "12345678", g.CaseID)
			assert.Equal(t, tt.kind, g.Kind)
			assert.Equal(t, tt.orders, g.Orders)
			assert.Equal(t, tt.prices, g.Prices)
			assert.Equal(t, tt.conflict, g.PriceConflict)
			require.Len(t, g.Rows, len(tt.rowOrders))
			for i, r := range g.Rows {
				assert.Equal(t, tt.rowOrders[i], r.OrderID)
				assert.Equal(t, tt.rowPrices[i], r.Price)
			}
			if !tt.conflict {
				assert.NotContains(t, report, "¡ALERTA!")
			}
		})
	}
}
