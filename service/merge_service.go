package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Aashish23092/conciliador/client"
	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/metrics"
	"github.com/Aashish23092/conciliador/store"
)

// MergeOptions controls how fragments for existing expedientes are applied.
type MergeOptions struct {
	Force  bool
	DryRun bool
}

// MergeService upserts expediente fragments into the store.
type MergeService struct {
	store     store.Store
	publisher client.EventPublisher
	metrics   *metrics.Registry
	logger    *zerolog.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewMergeService(
	st store.Store,
	publisher client.EventPublisher,
	registry *metrics.Registry,
	logger *zerolog.Logger,
) *MergeService {
	if publisher == nil {
		publisher = client.NopPublisher{}
	}
	return &MergeService{
		store:     st,
		publisher: publisher,
		metrics:   registry,
		logger:    logger,
		now:       time.Now,
		locks:     make(map[string]*keyLock),
	}
}

// lock serializes work on one key and returns its release func.
func (m *MergeService) lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Upsert applies one fragment:
//   - absent key: the fragment is inserted;
//   - present, not forced: only the update timestamp, source and version change;
//   - present, forced: Metadatos is replaced, the non-empty Datos fields are
//     copied and the fragment's order line is merged into the matching line
//     or appended.
//
// A dry run reports the decision without writing.
func (m *MergeService) Upsert(ctx context.Context, frag *dto.Expediente, opts MergeOptions) dto.UpsertResult {
	return m.upsert(ctx, "", frag, opts)
}

func (m *MergeService) upsert(ctx context.Context, runID string, frag *dto.Expediente, opts MergeOptions) dto.UpsertResult {
	key := frag.Key()
	res := dto.UpsertResult{Key: key, Order: fragmentOrder(frag), Forced: opts.Force, DryRun: opts.DryRun}

	unlock := m.lock(key.String())
	defer unlock()

	var (
		doc *dto.Expediente
		err error
	)
	// an insert racing another writer on the store falls back to update once
	for attempt := 0; attempt < 2; attempt++ {
		existing, gerr := m.store.Get(ctx, key)
		if gerr != nil && !dto.IsNotFound(gerr) {
			err = gerr
			break
		}

		if existing == nil {
			res.Action = dto.ActionInserted
			if opts.DryRun {
				break
			}
			doc = cloneExpediente(frag)
			doc.CreatedAt = m.now().UTC()
			doc.UpdatedAt = doc.CreatedAt
			doc.RollUp()
			err = m.store.Insert(ctx, doc)
			if dto.IsAlreadyExists(err) {
				continue
			}
			break
		}

		res.Action = dto.ActionUpdated
		if opts.DryRun {
			break
		}
		doc = existing
		if opts.Force {
			mergeDatos(&doc.Datos, frag.Datos)
			doc.Metadatos = frag.Metadatos
			for _, line := range frag.Pedidos {
				mergeLine(doc, line)
			}
		} else {
			doc.Metadatos.UltimaActualizacion = frag.Metadatos.UltimaActualizacion
			doc.Metadatos.FuenteDatos = frag.Metadatos.FuenteDatos
			doc.Metadatos.Version = frag.Metadatos.Version
		}
		doc.UpdatedAt = m.now().UTC()
		doc.RollUp()
		err = m.store.Update(ctx, doc)
		break
	}

	if err != nil {
		res.Action = dto.ActionFailed
		res.Err = err
		m.metrics.ObserveUpsert(string(res.Action))
		m.logger.Error().Err(err).
			Str("case_id", key.NumeroExpediente).
			Str("order_id", res.Order).
			Msg("upsert failed")
		return res
	}

	m.metrics.ObserveUpsert(string(res.Action))
	m.logger.Debug().
		Str("case_id", key.NumeroExpediente).
		Str("order_id", res.Order).
		Str("action", string(res.Action)).
		Bool("forced", opts.Force).
		Bool("dry_run", opts.DryRun).
		Msg("expediente upserted")

	if !opts.DryRun {
		m.publish(ctx, runID, doc, res)
	}
	return res
}

func (m *MergeService) publish(ctx context.Context, runID string, doc *dto.Expediente, res dto.UpsertResult) {
	ev := dto.MergeEvent{
		RunID:            runID,
		NumeroExpediente: doc.NumeroExpediente,
		Cliente:          doc.Cliente,
		NumeroPedido:     res.Order,
		Action:           res.Action,
		Forced:           res.Forced,
		EstadoGeneral:    doc.Metadatos.EstadoGeneral,
		At:               m.now().UTC(),
	}
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.logger.Warn().Err(err).Str("case_id", doc.NumeroExpediente).Msg("publish merge event")
	}
}

// Apply upserts every fragment in order. Failures are collected in the
// summary and never stop the batch.
func (m *MergeService) Apply(ctx context.Context, frags []*dto.Expediente, opts MergeOptions) dto.RunSummary {
	summary := dto.RunSummary{
		RunID:     uuid.NewString(),
		DryRun:    opts.DryRun,
		Forced:    opts.Force,
		StartTime: m.now(),
	}
	m.applyInto(ctx, &summary, frags, opts)
	summary.EndTime = m.now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	return summary
}

func (m *MergeService) applyInto(ctx context.Context, summary *dto.RunSummary, frags []*dto.Expediente, opts MergeOptions) {
	for _, frag := range frags {
		if err := ctx.Err(); err != nil {
			summary.Add(dto.UpsertResult{Key: frag.Key(), Order: fragmentOrder(frag), Action: dto.ActionFailed, Err: err})
			continue
		}
		summary.Add(m.upsert(ctx, summary.RunID, frag, opts))
	}
}

// mergeLine folds line into doc. A line with the same order number is
// updated field by field where line has a value; otherwise it is appended.
func mergeLine(doc *dto.Expediente, line dto.PedidoLine) {
	if line.NumeroPedido == nil {
		doc.Pedidos = append(doc.Pedidos, line)
		return
	}
	i := doc.FindPedido(*line.NumeroPedido)
	if i < 0 {
		doc.Pedidos = append(doc.Pedidos, line)
		return
	}

	dst := &doc.Pedidos[i]
	if line.NumeroLinea != nil {
		dst.NumeroLinea = line.NumeroLinea
	}
	if line.FechaPedido != nil {
		dst.FechaPedido = line.FechaPedido
	}
	if line.Precio != nil {
		dst.Precio = line.Precio
	}
	if line.Impuesto != nil {
		dst.Impuesto = line.Impuesto
	}
	if line.Subtotal != nil {
		dst.Subtotal = line.Subtotal
	}
	if line.Cantidad != nil {
		dst.Cantidad = line.Cantidad
	}
	if line.Estatus != nil {
		dst.Estatus = line.Estatus
	}
	if line.Factura != nil {
		dst.Factura = line.Factura
	}
	if line.Descripcion != nil {
		dst.Descripcion = line.Descripcion
	}
}

// mergeDatos copies the fields src provides.
func mergeDatos(dst *dto.Datos, src dto.Datos) {
	if src.Descripcion != "" {
		dst.Descripcion = src.Descripcion
	}
	if src.TipoServicio != "" {
		dst.TipoServicio = src.TipoServicio
	}
	if src.FechaCreacion != "" {
		dst.FechaCreacion = src.FechaCreacion
	}
}

func fragmentOrder(frag *dto.Expediente) string {
	if len(frag.Pedidos) == 0 || frag.Pedidos[0].NumeroPedido == nil {
		return ""
	}
	return *frag.Pedidos[0].NumeroPedido
}

func cloneExpediente(e *dto.Expediente) *dto.Expediente {
	c := *e
	c.Pedidos = append([]dto.PedidoLine(nil), e.Pedidos...)
	return &c
}
