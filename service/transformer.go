package service

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/utils"
)

// Transformer coerces workbook rows into typed records and builds the
// single-line expediente fragments the merge engine consumes.
type Transformer struct {
	clientID string
	source   string
	version  string
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewTransformer(clientID, source, version string, logger *zerolog.Logger) *Transformer {
	return &Transformer{
		clientID: dto.NormalizeClient(clientID),
		source:   source,
		version:  version,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClient returns a copy of t building fragments for another client.
func (t *Transformer) WithClient(clientID string) *Transformer {
	c := *t
	c.clientID = dto.NormalizeClient(clientID)
	return &c
}

// Transform coerces one raw row. A row whose case id is blank or has no
// digits is skipped.
func (t *Transformer) Transform(row dto.RawRow) dto.Outcome[dto.ExtractedRecord] {
	caseID := strings.TrimSpace(row.CaseID)
	if caseID == "" {
		t.logger.Warn().Str("order_id", row.OrderID).Msg("row without case id skipped")
		return dto.Skip[dto.ExtractedRecord]("missing case id")
	}
	if dto.NormalizeCaseID(caseID) == "" {
		t.logger.Warn().Str("case_id", caseID).Str("order_id", row.OrderID).Msg("row with non-numeric case id skipped")
		return dto.Skip[dto.ExtractedRecord]("case id has no digits")
	}

	rec := dto.ExtractedRecord{
		CaseID:       caseID,
		OrderID:      strings.TrimSpace(row.OrderID),
		InvoiceNo:    strings.TrimSpace(row.InvoiceNo),
		ClientPart:   strings.TrimSpace(row.ClientPart),
		Price:        amount(row.Price),
		Tax:          amount(row.Tax),
		Subtotal:     amount(row.Subtotal),
		Description:  strings.TrimSpace(row.Description),
		Type:         strings.TrimSpace(row.Type),
		RequiredDate: requiredDate(row.RequiredDate),
	}
	rec.LineNo, _ = utils.ParseNumber(row.LineNo)
	rec.Deliveries, _ = utils.ParseNumber(row.Deliveries)
	rec.Quantity, _ = utils.ParseNumber(row.Quantity)
	if strings.TrimSpace(row.Status) != "" {
		rec.Status = dto.ParseStatus(row.Status)
	}
	return dto.Ok(rec)
}

// amount is unknown for empty text and 0.00 for text that is not a number.
func amount(s string) decimal.NullDecimal {
	if strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(utils.ParseCurrency(s))
}

func requiredDate(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return utils.ParseSpanishDate(s)
}

// Fragment builds an expediente holding rec as its only order line. Unknown
// values stay nil so a merge never erases what the store already knows.
func (t *Transformer) Fragment(rec dto.ExtractedRecord) *dto.Expediente {
	now := t.now().UTC()
	line := dto.PedidoLine{
		NumeroPedido: optionalString(dto.NormalizeOrderID(rec.OrderID)),
		FechaPedido:  optionalString(rec.RequiredDate),
		Precio:       optionalAmount(rec.Price),
		Impuesto:     optionalAmount(rec.Tax),
		Subtotal:     optionalAmount(rec.Subtotal),
		Factura:      optionalString(rec.InvoiceNo),
		Descripcion:  optionalString(rec.Description),
		Estatus:      optionalString(string(rec.Status)),
	}
	if rec.LineNo > 0 {
		line.NumeroLinea = dto.IntPtr(rec.LineNo)
	}
	if rec.Quantity > 0 {
		line.Cantidad = dto.IntPtr(rec.Quantity)
	}

	doc := &dto.Expediente{
		NumeroExpediente: dto.NormalizeCaseID(rec.CaseID),
		Cliente:          t.clientID,
		Datos: dto.Datos{
			Descripcion:  rec.Description,
			TipoServicio: rec.Type,
		},
		Pedidos: []dto.PedidoLine{line},
		Metadatos: dto.Metadatos{
			UltimaActualizacion: now,
			FuenteDatos:         t.source,
			Version:             t.version,
		},
	}
	if rec.RequiredDate != dto.NoDate {
		doc.Datos.FechaCreacion = rec.RequiredDate
	}
	doc.RollUp()
	return doc
}

func optionalString(s string) *string {
	if s == "" || s == dto.NoDate {
		return nil
	}
	return dto.StringPtr(s)
}

func optionalAmount(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f, _ := d.Decimal.Float64()
	return dto.FloatPtr(f)
}
