package service

import (
	"github.com/rs/zerolog"

	"github.com/Aashish23092/conciliador/dto"
)

// StatusService moves workbook rows toward invoiced using a detection run.
type StatusService struct {
	logger *zerolog.Logger
}

func NewStatusService(logger *zerolog.Logger) *StatusService {
	return &StatusService{logger: logger}
}

// ApplyDetection returns a copy of rows with updated statuses and the number
// of rows that changed. An order id match sets FACTURADO and the invoice
// number; otherwise a case id match sets FACTURADO_POR_EXPEDIENTE unless the
// row is already FACTURADO. Statuses never move back.
func (s *StatusService) ApplyDetection(rows []dto.RawRow, det *dto.DetectionResult) ([]dto.RawRow, int) {
	out := append([]dto.RawRow(nil), rows...)
	if det == nil {
		return out, 0
	}

	orders := make(map[string]bool, len(det.Orders))
	for _, o := range det.Orders {
		orders[o] = true
	}
	cases := make(map[string]bool, len(det.Cases))
	for _, c := range det.Cases {
		cases[c] = true
	}

	changed := 0
	for i := range out {
		row := &out[i]
		current := dto.ParseStatus(row.Status)
		orderID := dto.NormalizeOrderID(row.OrderID)
		caseID := dto.NormalizeCaseID(row.CaseID)

		var next dto.Status
		var invoice string
		switch {
		case orderID != "" && orders[orderID]:
			next = dto.StatusInvoiced
			invoice, _ = det.Index.Lookup(orderID)
		case caseID != "" && cases[caseID]:
			next = dto.StatusInvoicedByCase
			invoice, _ = det.Index.Lookup(caseID)
		default:
			continue
		}
		if next.Rank() < current.Rank() {
			continue
		}

		before := *row
		row.Status = string(next)
		if invoice != "" && (next == dto.StatusInvoiced || row.InvoiceNo == "") {
			row.InvoiceNo = invoice
		}
		if *row != before {
			changed++
			s.logger.Debug().
				Str("case_id", row.CaseID).
				Str("order_id", row.OrderID).
				Str("status", row.Status).
				Str("invoice", row.InvoiceNo).
				Msg("row status updated")
		}
	}
	return out, changed
}
