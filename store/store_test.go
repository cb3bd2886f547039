package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashish23092/conciliador/config"
	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/logging"
)

func newTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	s, err := NewMemPebbleStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newDoc(numero, cliente string, pedidos ...string) *dto.Expediente {
	doc := &dto.Expediente{
		NumeroExpediente: numero,
		Cliente:          cliente,
		Datos:            dto.Datos{Descripcion: "Arrastre", TipoServicio: "Material"},
		Metadatos:        dto.Metadatos{FuenteDatos: "test", Version: "1.0"},
		CreatedAt:        time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, p := range pedidos {
		doc.Pedidos = append(doc.Pedidos, dto.PedidoLine{NumeroPedido: dto.StringPtr(p), Precio: dto.FloatPtr(1500)})
	}
	return doc
}

func TestPebbleStoreInsertGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := newDoc("01234567", "IKE", "8901234567")
	require.NoError(t, s.Insert(ctx, doc))

	got, err := s.Get(ctx, doc.Key())
	require.NoError(t, err)
	assert.Equal(t, "01234567", got.NumeroExpediente)
	require.Len(t, got.Pedidos, 1)
	assert.Equal(t, "8901234567", *got.Pedidos[0].NumeroPedido)
	assert.Equal(t, 1500.0, *got.Pedidos[0].Precio)
	assert.Nil(t, got.Pedidos[0].Factura)
}

func TestPebbleStoreUniqueKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newDoc("01234567", "IKE")))
	err := s.Insert(ctx, newDoc("01234567", "IKE"))
	assert.True(t, dto.IsAlreadyExists(err))

	// same case number under another client is a different key
	assert.NoError(t, s.Insert(ctx, newDoc("01234567", "OTRO")))
}

func TestPebbleStoreNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, dto.ExpedienteKey{NumeroExpediente: "1", Cliente: "IKE"})
	assert.True(t, dto.IsNotFound(err))

	err = s.Update(ctx, newDoc("1", "IKE"))
	assert.True(t, dto.IsNotFound(err))
}

func TestPebbleStoreOrderIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newDoc("01234567", "IKE", "1111111111")))
	require.NoError(t, s.Insert(ctx, newDoc("07654321", "IKE", "1111111111", "2222222222")))

	found, err := s.FindByOrder(ctx, "1111111111")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "01234567", found[0].NumeroExpediente)
	assert.Equal(t, "07654321", found[1].NumeroExpediente)

	// moving the line to another order drops the stale index entry
	doc := newDoc("01234567", "IKE", "3333333333")
	require.NoError(t, s.Update(ctx, doc))

	found, err = s.FindByOrder(ctx, "1111111111")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "07654321", found[0].NumeroExpediente)

	found, err = s.FindByOrder(ctx, "3333333333")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = s.FindByOrder(ctx, "111111111")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestPebbleStoreInvoiceIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := newDoc("01234567", "IKE", "1111111111", "2222222222")
	first.Pedidos[0].Factura = dto.StringPtr("A42")
	first.Pedidos[1].Factura = dto.StringPtr(" a42 ")
	require.NoError(t, s.Insert(ctx, first))

	second := newDoc("07654321", "IKE", "3333333333")
	second.Pedidos[0].Factura = dto.StringPtr("F/2024/7")
	require.NoError(t, s.Insert(ctx, second))

	found, err := s.FindByInvoice(ctx, "a42")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "01234567", found[0].NumeroExpediente)

	// invoice numbers may contain the key separator
	found, err = s.FindByInvoice(ctx, "F/2024/7")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "07654321", found[0].NumeroExpediente)

	found, err = s.FindByInvoice(ctx, "F")
	require.NoError(t, err)
	assert.Empty(t, found)

	second.Pedidos[0].Factura = dto.StringPtr("B7")
	require.NoError(t, s.Update(ctx, second))
	found, err = s.FindByInvoice(ctx, "F/2024/7")
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = s.FindByInvoice(ctx, "B7")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestPebbleStoreList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, n := range []string{"00000003", "00000001", "00000002"} {
		require.NoError(t, s.Insert(ctx, newDoc(n, "IKE")))
	}
	require.NoError(t, s.Insert(ctx, newDoc("00000009", "OTRO")))

	all, total, err := s.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, all, 4)

	page, total, err := s.List(ctx, ListFilter{Cliente: "IKE", Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "00000002", page[0].NumeroExpediente)
}

func TestPebbleStoreValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Insert(ctx, newDoc("", "IKE"))
	assert.True(t, dto.IsInvalidInput(err))

	err = s.Insert(ctx, newDoc("01234567", "IKE/MX", "1111111111"))
	assert.True(t, dto.IsInvalidInput(err))

	require.NoError(t, s.Insert(ctx, newDoc("01234567", "IKE", "1111111111")))
	found, err := s.FindByOrder(ctx, "1111111111")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "IKE", found[0].Cliente)
}

func TestOpenPebble(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = t.TempDir()

	s, err := Open(cfg, logging.Nop())
	require.NoError(t, err)
	assert.NoError(t, s.Close())

	cfg.Store.Driver = "mongo"
	_, err = Open(cfg, logging.Nop())
	assert.Error(t, err)
}

func TestRecordConversion(t *testing.T) {
	doc := newDoc("01234567", "IKE", "1111111111", "1111111111", "2222222222")
	doc.Metadatos.EstadoGeneral = dto.EstadoPendiente

	rec := toRecord(doc)
	assert.Equal(t, dto.EstadoPendiente, rec.EstadoGeneral)
	assert.Equal(t, *doc, rec.toDTO())

	rows := indexRows(7, doc)
	require.Len(t, rows, 2)
	assert.Equal(t, pedidoIndexRecord{NumeroPedido: "1111111111", ExpedienteID: 7}, rows[0])

	doc.Pedidos[0].Factura = dto.StringPtr("a42")
	doc.Pedidos[1].Factura = dto.StringPtr("A42")
	invoices := invoiceRows(7, doc)
	require.Len(t, invoices, 1)
	assert.Equal(t, facturaIndexRecord{NumeroFactura: "A42", ExpedienteID: 7}, invoices[0])
}
