package dto

import (
	"strings"
	"time"
)

// Billing roll-up of an expediente.
const (
	EstadoPendiente = "PENDIENTE"
	EstadoParcial   = "PARCIAL"
	EstadoCompleto  = "COMPLETO"
)

// ExpedienteKey is the unique key of a persisted expediente.
type ExpedienteKey struct {
	NumeroExpediente string `json:"numeroExpediente"`
	Cliente          string `json:"cliente"`
}

func (k ExpedienteKey) String() string {
	return k.Cliente + "/" + k.NumeroExpediente
}

// Expediente is the durable per-case document.
type Expediente struct {
	NumeroExpediente string       `json:"numeroExpediente"`
	Cliente          string       `json:"cliente"`
	Datos            Datos        `json:"datos"`
	Pedidos          []PedidoLine `json:"pedidos"`
	Metadatos        Metadatos    `json:"metadatos"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

func (e *Expediente) Key() ExpedienteKey {
	return ExpedienteKey{NumeroExpediente: e.NumeroExpediente, Cliente: e.Cliente}
}

// Datos carries service metadata.
type Datos struct {
	Descripcion   string `json:"descripcion,omitempty"`
	TipoServicio  string `json:"tipoServicio,omitempty"`
	FechaCreacion string `json:"fechaCreacion,omitempty"`
}

// PedidoLine is one order line of an expediente. Nil fields are unknown and
// never overwrite a known value during a merge.
type PedidoLine struct {
	NumeroPedido *string  `json:"numeroPedido"`
	NumeroLinea  *int     `json:"numeroLinea,omitempty"`
	FechaPedido  *string  `json:"fechaPedido,omitempty"`
	Precio       *float64 `json:"precio,omitempty"`
	Impuesto     *float64 `json:"impuesto,omitempty"`
	Subtotal     *float64 `json:"subtotal,omitempty"`
	Cantidad     *int     `json:"cantidad,omitempty"`
	Estatus      *string  `json:"estatus,omitempty"`
	Factura      *string  `json:"factura,omitempty"`
	Descripcion  *string  `json:"descripcion,omitempty"`
}

// Metadatos is the bookkeeping block.
type Metadatos struct {
	UltimaActualizacion time.Time `json:"ultimaActualizacion"`
	FuenteDatos         string    `json:"fuenteDatos"`
	Version             string    `json:"version"`
	EstadoGeneral       string    `json:"estadoGeneral"`
	Facturado           bool      `json:"facturado"`
}

// FindPedido returns the index of the line with the given order number, or -1.
func (e *Expediente) FindPedido(numeroPedido string) int {
	for i, p := range e.Pedidos {
		if p.NumeroPedido != nil && *p.NumeroPedido == numeroPedido {
			return i
		}
	}
	return -1
}

// RollUp recomputes the billing state from the order line statuses.
func (e *Expediente) RollUp() {
	if len(e.Pedidos) == 0 {
		e.Metadatos.EstadoGeneral = EstadoPendiente
		e.Metadatos.Facturado = false
		return
	}

	invoiced := 0
	for _, p := range e.Pedidos {
		if p.Estatus != nil && ParseStatus(*p.Estatus).Rank() > 0 {
			invoiced++
		}
	}

	switch {
	case invoiced == len(e.Pedidos):
		e.Metadatos.EstadoGeneral = EstadoCompleto
	case invoiced > 0:
		e.Metadatos.EstadoGeneral = EstadoParcial
	default:
		e.Metadatos.EstadoGeneral = EstadoPendiente
	}
	e.Metadatos.Facturado = invoiced == len(e.Pedidos)
}

// NormalizeCaseID keeps digits and left-pads to 8.
func NormalizeCaseID(s string) string {
	return padDigits(s, 8)
}

// NormalizeOrderID keeps digits and left-pads to 10.
func NormalizeOrderID(s string) string {
	return padDigits(s, 10)
}

// NormalizeClient removes whitespace and upper-cases.
func NormalizeClient(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// NormalizeInvoice trims and upper-cases an invoice number.
func NormalizeInvoice(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func padDigits(s string, width int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if d == "" {
		return ""
	}
	if len(d) < width {
		d = strings.Repeat("0", width-len(d)) + d
	}
	return d
}

// StringPtr and friends build optional PedidoLine fields.
func StringPtr(s string) *string { return &s }

func IntPtr(i int) *int { return &i }

func FloatPtr(f float64) *float64 { return &f }
