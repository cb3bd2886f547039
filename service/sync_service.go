package service

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/store"
	"github.com/Aashish23092/conciliador/utils"
)

const exportPageSize = 200

// SyncService moves workbook rows into the expediente store and back.
type SyncService struct {
	transformer *Transformer
	merger      *MergeService
	store       store.Store
	logger      *zerolog.Logger
}

func NewSyncService(transformer *Transformer, merger *MergeService, st store.Store, logger *zerolog.Logger) *SyncService {
	return &SyncService{
		transformer: transformer,
		merger:      merger,
		store:       st,
		logger:      logger,
	}
}

// Sync transforms every row into a fragment for cliente, or the configured
// client when empty, and upserts it. Rows the transformer skips are counted
// as skipped.
func (s *SyncService) Sync(ctx context.Context, cliente string, rows []dto.RawRow, opts MergeOptions) dto.RunSummary {
	tr := s.transformer
	if cliente != "" {
		tr = tr.WithClient(cliente)
	}

	var frags []*dto.Expediente
	skipped := 0
	for _, row := range rows {
		out := tr.Transform(row)
		if !out.IsOk() {
			skipped++
			continue
		}
		frags = append(frags, tr.Fragment(out.Value))
	}

	summary := s.merger.Apply(ctx, frags, opts)
	summary.Skipped += skipped

	s.logger.Info().
		Str("run_id", summary.RunID).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Bool("forced", opts.Force).
		Bool("dry_run", opts.DryRun).
		Dur("duration", summary.Duration).
		Msg("sync finished")
	return summary
}

// Export reads every stored expediente and returns one row per order line.
// Expedientes without lines yield a single row with only the case id.
func (s *SyncService) Export(ctx context.Context, cliente string) ([]dto.RawRow, error) {
	var rows []dto.RawRow
	err := eachExpediente(ctx, s.store, cliente, func(e *dto.Expediente) {
		rows = append(rows, ExpedienteRows(e)...)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("rows", len(rows)).Msg("export finished")
	return rows, nil
}

// ExpedienteRows flattens an expediente into workbook rows.
func ExpedienteRows(e *dto.Expediente) []dto.RawRow {
	base := dto.RawRow{
		CaseID:       e.NumeroExpediente,
		Description:  e.Datos.Descripcion,
		Type:         e.Datos.TipoServicio,
		RequiredDate: e.Datos.FechaCreacion,
		Status:       string(dto.StatusNotInvoiced),
	}
	if len(e.Pedidos) == 0 {
		return []dto.RawRow{base}
	}

	rows := make([]dto.RawRow, 0, len(e.Pedidos))
	for _, p := range e.Pedidos {
		r := base
		r.OrderID = deref(p.NumeroPedido)
		r.LineNo = intText(p.NumeroLinea)
		r.Price = amountText(p.Precio)
		r.Tax = amountText(p.Impuesto)
		r.Subtotal = amountText(p.Subtotal)
		r.Quantity = intText(p.Cantidad)
		r.InvoiceNo = deref(p.Factura)
		if p.FechaPedido != nil {
			r.RequiredDate = *p.FechaPedido
		}
		if p.Descripcion != nil {
			r.Description = *p.Descripcion
		}
		if p.Estatus != nil {
			r.Status = string(dto.ParseStatus(*p.Estatus))
		}
		rows = append(rows, r)
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intText(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func amountText(f *float64) string {
	if f == nil {
		return ""
	}
	return utils.FormatCurrency(decimal.NewFromFloat(*f))
}
