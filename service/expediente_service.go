package service

import (
	"context"

	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/store"
)

// ExpedienteService answers read queries over the store.
type ExpedienteService struct {
	store store.Store
}

func NewExpedienteService(st store.Store) *ExpedienteService {
	return &ExpedienteService{store: st}
}

func (s *ExpedienteService) List(ctx context.Context, q dto.ListQuery) (*dto.ExpedienteListResponse, error) {
	q.Normalize()
	items, total, err := s.store.List(ctx, store.ListFilter{Cliente: q.Cliente, Offset: q.Offset(), Limit: q.Limit})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []dto.Expediente{}
	}
	return &dto.ExpedienteListResponse{
		Items: items,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
		Pages: (total + q.Limit - 1) / q.Limit,
	}, nil
}

// Get looks an expediente up by client and case number; both are normalized.
func (s *ExpedienteService) Get(ctx context.Context, cliente, numero string) (*dto.Expediente, error) {
	key := dto.ExpedienteKey{
		NumeroExpediente: dto.NormalizeCaseID(numero),
		Cliente:          dto.NormalizeClient(cliente),
	}
	if key.NumeroExpediente == "" {
		return nil, dto.NewValidationError("numero", numero, "case number must contain digits")
	}
	return s.store.Get(ctx, key)
}

func (s *ExpedienteService) FindByOrder(ctx context.Context, numeroPedido string) ([]dto.Expediente, error) {
	order := dto.NormalizeOrderID(numeroPedido)
	if order == "" {
		return nil, dto.NewValidationError("numeroPedido", numeroPedido, "order number must contain digits")
	}
	docs, err := s.store.FindByOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, dto.NewNotFoundError("pedido", order)
	}
	return docs, nil
}

// FindByInvoice returns the expedientes with a line billed on factura.
func (s *ExpedienteService) FindByInvoice(ctx context.Context, factura string) ([]dto.Expediente, error) {
	invoice := dto.NormalizeInvoice(factura)
	if invoice == "" {
		return nil, dto.NewValidationError("numeroFactura", factura, "invoice number must not be empty")
	}
	docs, err := s.store.FindByInvoice(ctx, invoice)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, dto.NewNotFoundError("factura", invoice)
	}
	return docs, nil
}

// Duplicates runs the duplicate analysis over the stored order lines of
// cliente. Every expediente holding more than one line forms a group.
func (s *ExpedienteService) Duplicates(ctx context.Context, cliente string) ([]dto.DuplicateGroup, error) {
	var rows []dto.RawRow
	err := eachExpediente(ctx, s.store, cliente, func(e *dto.Expediente) {
		rows = append(rows, ExpedienteRows(e)...)
	})
	if err != nil {
		return nil, err
	}
	groups := AnalyzeDuplicates(rows)
	if groups == nil {
		groups = []dto.DuplicateGroup{}
	}
	return groups, nil
}

// Stats counts expedientes by billing state and their order lines.
func (s *ExpedienteService) Stats(ctx context.Context, cliente string) (*dto.StatsResponse, error) {
	stats := &dto.StatsResponse{}
	err := eachExpediente(ctx, s.store, cliente, func(e *dto.Expediente) {
		stats.Expedientes++
		stats.Pedidos += len(e.Pedidos)
		switch e.Metadatos.EstadoGeneral {
		case dto.EstadoCompleto:
			stats.Completos++
		case dto.EstadoParcial:
			stats.Parciales++
		default:
			stats.Pendientes++
		}
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// eachExpediente pages through the stored expedientes of cliente, or of
// every client when cliente is empty.
func eachExpediente(ctx context.Context, st store.Store, cliente string, fn func(*dto.Expediente)) error {
	for offset := 0; ; offset += exportPageSize {
		page, total, err := st.List(ctx, store.ListFilter{
			Cliente: dto.NormalizeClient(cliente),
			Offset:  offset,
			Limit:   exportPageSize,
		})
		if err != nil {
			return err
		}
		for i := range page {
			fn(&page[i])
		}
		if len(page) == 0 || offset+len(page) >= total {
			return nil
		}
	}
}
