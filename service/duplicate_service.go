package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/utils"
)

// AnalyzeDuplicates groups rows by case id and returns every group with more
// than one row, ordered by case id. Rows inside a group are ordered by order
// id and then price.
func AnalyzeDuplicates(rows []dto.RawRow) []dto.DuplicateGroup {
	byCase := make(map[string][]dto.RawRow)
	for _, r := range rows {
		caseID := strings.TrimSpace(r.CaseID)
		if caseID == "" {
			continue
		}
		byCase[caseID] = append(byCase[caseID], r)
	}

	var groups []dto.DuplicateGroup
	for caseID, members := range byCase {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, newDuplicateGroup(caseID, members))
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CaseID < groups[j].CaseID })
	return groups
}

func newDuplicateGroup(caseID string, members []dto.RawRow) dto.DuplicateGroup {
	sorted := append([]dto.RawRow(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		oi, oj := strings.TrimSpace(sorted[i].OrderID), strings.TrimSpace(sorted[j].OrderID)
		if oi != oj {
			return oi < oj
		}
		return utils.ParseAmount(sorted[i].Price) < utils.ParseAmount(sorted[j].Price)
	})

	orderSet := make(map[string]bool)
	priceSet := make(map[float64]bool)
	for _, m := range members {
		orderSet[strings.TrimSpace(m.OrderID)] = true
		priceSet[utils.ParseAmount(m.Price)] = true
	}

	prices := make([]float64, 0, len(priceSet))
	for p := range priceSet {
		prices = append(prices, p)
	}
	sort.Float64s(prices)

	g := dto.DuplicateGroup{
		CaseID:        caseID,
		Description:   members[0].Description,
		Rows:          sorted,
		Orders:        sortedKeys(orderSet),
		Prices:        prices,
		Kind:          dto.DuplicateCrossOrder,
		PriceConflict: len(prices) > 1,
	}
	if len(g.Orders) == 1 {
		g.Kind = dto.DuplicateSameOrder
	}
	return g
}

// FormatDuplicateReport renders the duplicate analysis as text.
func FormatDuplicateReport(groups []dto.DuplicateGroup) string {
	var b strings.Builder
	b.WriteString("=== ANÁLISIS DE DUPLICADOS ===\n")
	if len(groups) == 0 {
		b.WriteString("\nNo se encontraron expedientes duplicados.\n")
		return b.String()
	}

	for _, g := range groups {
		fmt.Fprintf(&b, "\nExpediente duplicado: %s\n", g.CaseID)
		fmt.Fprintf(&b, "Descripción: %s\n", g.Description)

		if g.Kind == dto.DuplicateSameOrder {
			fmt.Fprintf(&b, "TIPO DE DUPLICADO: Mismo pedido (%s)\n", g.Orders[0])
			fmt.Fprintf(&b, "Número de ocurrencias: %d\n", len(g.Rows))
		} else {
			fmt.Fprintf(&b, "TIPO DE DUPLICADO: Diferentes pedidos (%d pedidos distintos)\n", len(g.Orders))
			b.WriteString("Pedidos involucrados:\n")
			for _, o := range g.Orders {
				fmt.Fprintf(&b, "   - Pedido: %s\n", o)
			}
		}

		b.WriteString("\nDetalles de ocurrencias:\n")
		for _, r := range g.Rows {
			fmt.Fprintf(&b, "   - Pedido: %s\n", r.OrderID)
			fmt.Fprintf(&b, "     Precio: $%.2f\n", utils.ParseAmount(r.Price))
		}

		if g.PriceConflict {
			b.WriteString("\n   ¡ALERTA! Diferentes precios encontrados:\n")
			for _, p := range g.Prices {
				fmt.Fprintf(&b, "     - $%.2f\n", p)
			}
		}
	}
	return b.String()
}
