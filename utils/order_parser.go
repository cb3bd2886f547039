package utils

import (
	"strconv"
	"strings"

	"github.com/Aashish23092/conciliador/dto"
)

const (
	orderNumberLabel = "Pedido de compra:"
	materialMarker   = "Material"

	materialType        = "Material"
	materialDescription = "Arrastre/M (SER)"
	materialQuantity    = "(SER)"
)

// ParseOrderNumber reads the purchase order number from the first page.
func ParseOrderNumber(firstPage string) string {
	for _, line := range SplitLines(firstPage) {
		idx := strings.Index(line, orderNumberLabel)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(line[idx+len(orderNumberLabel):])
		return digitsOf(firstField(rest))
	}
	return ""
}

func firstField(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// ParseMaterialLine turns a "Material" row of a purchase order into a raw
// row. The first four tokens are line number, deliveries, part number (the
// case id) and client part number; the first "$" token is the unit price and
// the last one the tax.
func ParseMaterialLine(line, orderID, requiredDate string) (dto.RawRow, error) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return dto.RawRow{}, dto.NewValidationError("line", line, "material line has fewer than four columns")
	}

	caseID := digitsOf(parts[2])
	if caseID == "" {
		return dto.RawRow{}, dto.NewValidationError("part", parts[2], "part number is not numeric")
	}

	price, tax := "$0", "$0"
	for _, p := range parts {
		if strings.Contains(p, "$") {
			price = p
			break
		}
	}
	for i := len(parts) - 1; i >= 0; i-- {
		if strings.Contains(parts[i], "$") {
			tax = parts[i]
			break
		}
	}

	amount := FormatCurrency(ParseCurrency(price))
	return dto.RawRow{
		CaseID:       caseID,
		OrderID:      orderID,
		LineNo:       numberOrText(parts[0]),
		Deliveries:   numberOrText(parts[1]),
		ClientPart:   numberOrText(parts[3]),
		Type:         materialType,
		Quantity:     materialQuantity,
		Description:  materialDescription,
		RequiredDate: requiredDate,
		Price:        amount,
		Subtotal:     amount,
		Tax:          FormatCurrency(ParseCurrency(tax)),
		Status:       string(dto.StatusNotInvoiced),
	}, nil
}

func numberOrText(s string) string {
	if n, ok := ParseNumber(s); ok {
		return strconv.Itoa(n)
	}
	return s
}

// ParsePurchaseOrder extracts the rows of every page of a purchase order.
// Lines that cannot be parsed are returned as errors alongside the rows.
func ParsePurchaseOrder(pages []string) (string, []dto.RawRow, []error) {
	if len(pages) == 0 {
		return "", nil, nil
	}

	orderID := ParseOrderNumber(pages[0])
	var rows []dto.RawRow
	var errs []error

	for _, page := range pages {
		lines := SplitLines(page)
		date := FindRequiredDate(lines)
		for _, line := range lines {
			if !strings.Contains(line, materialMarker) {
				continue
			}
			row, err := ParseMaterialLine(line, orderID, date)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			rows = append(rows, row)
		}
	}
	return orderID, rows, errs
}
