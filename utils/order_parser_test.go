package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/conciliador/dto"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$1,234.50", "1234.50"},
		{"1.234,56 MXN", "1234.56"},
		{"$1500", "1500.00"},
		{"2.345", "2.35"},
		{"1,5", "1.50"},
		{"1,500", "1500.00"},
		{"1.234.567", "1234567.00"},
		{"abc", "0.00"},
		{"", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(ParseCurrency(tt.in)))
		})
	}
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, 1500.0, ParseAmount("$1,500.00"))
	assert.Equal(t, 0.0, ParseAmount("n/a"))
}

func TestParseNumber(t *testing.T) {
	n, ok := ParseNumber("12.7")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	n, ok = ParseNumber("#10")
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	_, ok = ParseNumber("abc")
	assert.False(t, ok)
}

func TestParseSpanishDate(t *testing.T) {
	assert.Equal(t, "08/10/2024", ParseSpanishDate("8 oct 2024"))
	assert.Equal(t, "15/09/2023", ParseSpanishDate("15 SEPT 2023"))
	assert.Equal(t, "01/01/2025", ParseSpanishDate("1 ene. 2025"))
	assert.Equal(t, "08/10/2024", ParseSpanishDate("08/10/2024"))
	assert.Equal(t, dto.NoDate, ParseSpanishDate("octubre 2024"))
	assert.Equal(t, dto.NoDate, ParseSpanishDate("8 oct 24"))
	assert.Equal(t, dto.NoDate, ParseSpanishDate(""))
}

func TestFindRequiredDate(t *testing.T) {
	lines := []string{
		"Pedido de compra: 4500012345",
		"Fecha para la que se",
		"requiere",
		"1 (SER) 8 oct. 2024",
	}
	assert.Equal(t, "08/10/2024", FindRequiredDate(lines))

	assert.Equal(t, dto.NoDate, FindRequiredDate([]string{"sin fecha", "8 oct 2024"}))
}

func TestParseOrderNumber(t *testing.T) {
	assert.Equal(t, "4500012345", ParseOrderNumber("Proveedor X\nPedido de compra: 4500012345 del 1 oct\n"))
	assert.Equal(t, "", ParseOrderNumber("Factura 1"))
}

func TestParseMaterialLine(t *testing.T) {
	row, err := ParseMaterialLine("10 1 01234567 998877 Material Arrastre $1,500.00 $240.00", "4500012345", "08/10/2024")
	require.NoError(t, err)

	assert.Equal(t, "01234567", row.CaseID)
	assert.Equal(t, "4500012345", row.OrderID)
	assert.Equal(t, "10", row.LineNo)
	assert.Equal(t, "1", row.Deliveries)
	assert.Equal(t, "998877", row.ClientPart)
	assert.Equal(t, "1500.00", row.Price)
	assert.Equal(t, "1500.00", row.Subtotal)
	assert.Equal(t, "240.00", row.Tax)
	assert.Equal(t, "08/10/2024", row.RequiredDate)
	assert.Equal(t, string(dto.StatusNotInvoiced), row.Status)

	_, err = ParseMaterialLine("Material", "1", "")
	assert.True(t, dto.IsInvalidInput(err))
}

func TestParsePurchaseOrder(t *testing.T) {
	pages := []string{
		"Pedido de compra: 4500012345\n" +
			"Pos Rep Material Descripcion\n" +
			"Fecha para la que se requiere\n" +
			"Cant. (Unidad) 8 oct 2024\n" +
			"10 1 01234567 998877 Material Arrastre $1,500.00 $240.00\n",
		"20 1 07654321 112233 Material Arrastre $900.00 $144.00\n",
	}

	orderID, rows, errs := ParsePurchaseOrder(pages)

	assert.Equal(t, "4500012345", orderID)
	require.Len(t, rows, 2)
	assert.Len(t, errs, 1)

	assert.Equal(t, "01234567", rows[0].CaseID)
	assert.Equal(t, "08/10/2024", rows[0].RequiredDate)
	assert.Equal(t, "07654321", rows[1].CaseID)
	assert.Equal(t, "4500012345", rows[1].OrderID)
	assert.Equal(t, dto.NoDate, rows[1].RequiredDate)
}
