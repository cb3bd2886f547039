package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Aashish23092/conciliador/dto"
)

// Compare lists the differences between workbook rows and the expedientes
// stored for cliente. Case and order ids are normalized on both sides;
// statuses are compared after parsing and invoices after normalization.
func (s *ExpedienteService) Compare(ctx context.Context, cliente string, rows []dto.RawRow) (*dto.CompareReport, error) {
	stored := make(map[string]bool)
	storedOrders := make(map[string]dto.PedidoRef)
	err := eachExpediente(ctx, s.store, cliente, func(e *dto.Expediente) {
		stored[e.NumeroExpediente] = true
		for _, p := range e.Pedidos {
			order := deref(p.NumeroPedido)
			if order == "" {
				continue
			}
			storedOrders[order] = dto.PedidoRef{
				NumeroPedido: order,
				Expediente:   e.NumeroExpediente,
				Estatus:      string(dto.ParseStatus(deref(p.Estatus))),
				Factura:      dto.NormalizeInvoice(deref(p.Factura)),
			}
		}
	})
	if err != nil {
		return nil, err
	}

	book := make(map[string]bool)
	bookOrders := make(map[string]dto.PedidoRef)
	for _, r := range rows {
		caseID := dto.NormalizeCaseID(r.CaseID)
		if caseID != "" {
			book[caseID] = true
		}
		order := dto.NormalizeOrderID(r.OrderID)
		if order == "" {
			continue
		}
		bookOrders[order] = dto.PedidoRef{
			NumeroPedido: order,
			Expediente:   caseID,
			Estatus:      string(dto.ParseStatus(r.Status)),
			Factura:      dto.NormalizeInvoice(r.InvoiceNo),
		}
	}

	report := &dto.CompareReport{
		FechaAnalisis:        time.Now().UTC(),
		Cliente:              dto.NormalizeClient(cliente),
		ExpedientesWorkbook:  len(book),
		ExpedientesStore:     len(stored),
		PedidosWorkbook:      len(bookOrders),
		PedidosStore:         len(storedOrders),
		ExpedientesNuevos:    missingFrom(book, stored),
		ExpedientesFaltantes: missingFrom(stored, book),
		PedidosNuevos:        []dto.PedidoRef{},
		PedidosFaltantes:     []dto.PedidoRef{},
		PedidosDiferentes:    []dto.PedidoDiff{},
	}
	for _, order := range sortedRefKeys(bookOrders) {
		if _, ok := storedOrders[order]; !ok {
			report.PedidosNuevos = append(report.PedidosNuevos, bookOrders[order])
		}
	}
	for _, order := range sortedRefKeys(storedOrders) {
		st := storedOrders[order]
		wb, ok := bookOrders[order]
		if !ok {
			report.PedidosFaltantes = append(report.PedidosFaltantes, st)
			continue
		}
		if st.Estatus != wb.Estatus || st.Factura != wb.Factura {
			report.PedidosDiferentes = append(report.PedidosDiferentes, dto.PedidoDiff{
				NumeroPedido: order,
				Expediente:   st.Expediente,
				Store:        st,
				Workbook:     wb,
			})
		}
	}
	return report, nil
}

// missingFrom returns the keys of a absent from b, sorted.
func missingFrom(a, b map[string]bool) []string {
	out := []string{}
	for k := range a {
		if !b[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedRefKeys(m map[string]dto.PedidoRef) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatCompareReport renders a comparison as text.
func FormatCompareReport(r *dto.CompareReport) string {
	var b strings.Builder
	b.WriteString("=== COMPARACIÓN DE WORKBOOK CON ALMACÉN ===\n")
	fmt.Fprintf(&b, "Expedientes en workbook: %d\n", r.ExpedientesWorkbook)
	fmt.Fprintf(&b, "Expedientes almacenados: %d\n", r.ExpedientesStore)
	fmt.Fprintf(&b, "Pedidos en workbook: %d\n", r.PedidosWorkbook)
	fmt.Fprintf(&b, "Pedidos almacenados: %d\n", r.PedidosStore)

	b.WriteString("\n=== ANÁLISIS DE DIFERENCIAS ===\n")
	fmt.Fprintf(&b, "\nExpedientes nuevos en workbook: %d\n", len(r.ExpedientesNuevos))
	writeList(&b, r.ExpedientesNuevos)
	fmt.Fprintf(&b, "\nExpedientes faltantes en workbook: %d\n", len(r.ExpedientesFaltantes))
	writeList(&b, r.ExpedientesFaltantes)

	fmt.Fprintf(&b, "\nPedidos nuevos en workbook: %d\n", len(r.PedidosNuevos))
	for _, p := range r.PedidosNuevos {
		fmt.Fprintf(&b, "   - %s (expediente %s)\n", p.NumeroPedido, p.Expediente)
	}
	fmt.Fprintf(&b, "\nPedidos faltantes en workbook: %d\n", len(r.PedidosFaltantes))
	for _, p := range r.PedidosFaltantes {
		fmt.Fprintf(&b, "   - %s (expediente %s)\n", p.NumeroPedido, p.Expediente)
	}

	fmt.Fprintf(&b, "\nPedidos con diferencias: %d\n", len(r.PedidosDiferentes))
	for _, d := range r.PedidosDiferentes {
		fmt.Fprintf(&b, "   - %s (expediente %s)\n", d.NumeroPedido, d.Expediente)
		fmt.Fprintf(&b, "     almacén: estatus %s, factura %s\n", d.Store.Estatus, d.Store.Factura)
		fmt.Fprintf(&b, "     workbook: estatus %s, factura %s\n", d.Workbook.Estatus, d.Workbook.Factura)
	}
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	for _, it := range items {
		fmt.Fprintf(b, "   - %s\n", it)
	}
}
