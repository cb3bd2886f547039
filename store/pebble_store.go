package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/Aashish23092/conciliador/dto"
)

const (
	docPrefix     = "exp/"
	orderPrefix   = "ped/"
	invoicePrefix = "fac/"
)

// PebbleStore keeps one JSON document per expediente and an index entry per
// order number and per invoice number.
type PebbleStore struct {
	db *pebble.DB
	mu sync.Mutex // serializes read-modify-write of documents and index
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

// NewMemPebbleStore opens a store backed by an in-memory filesystem.
func NewMemPebbleStore() (*PebbleStore, error) {
	d, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func docKey(key dto.ExpedienteKey) []byte {
	return []byte(docPrefix + key.Cliente + "/" + key.NumeroExpediente)
}

// indexKey is prefix, the escaped value, then the expediente key.
func indexKey(prefix, value string, key dto.ExpedienteKey) []byte {
	return []byte(prefix + url.PathEscape(value) + "/" + key.Cliente + "/" + key.NumeroExpediente)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (p *PebbleStore) get(key dto.ExpedienteKey) (*dto.Expediente, error) {
	v, closer, err := p.db.Get(docKey(key))
	if err == pebble.ErrNotFound {
		return nil, dto.NewNotFoundError("expediente", key.String())
	}
	if err != nil {
		return nil, dto.NewStoreError("get", key.String(), err)
	}
	defer closer.Close()

	var doc dto.Expediente
	if err := json.Unmarshal(v, &doc); err != nil {
		return nil, dto.NewStoreError("decode", key.String(), err)
	}
	return &doc, nil
}

func (p *PebbleStore) Get(_ context.Context, key dto.ExpedienteKey) (*dto.Expediente, error) {
	return p.get(key)
}

func (p *PebbleStore) Insert(_ context.Context, doc *dto.Expediente) error {
	if err := validateDoc(doc); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	key := doc.Key()
	if _, err := p.get(key); err == nil {
		return dto.NewStoreError("insert", key.String(), dto.ErrAlreadyExists)
	} else if !dto.IsNotFound(err) {
		return err
	}
	return p.write("insert", doc, nil)
}

func (p *PebbleStore) Update(_ context.Context, doc *dto.Expediente) error {
	if err := validateDoc(doc); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, err := p.get(doc.Key())
	if err != nil {
		return err
	}
	return p.write("update", doc, prev)
}

// write stores doc and moves its index entries from those of prev to the
// current order and invoice numbers in a single batch.
func (p *PebbleStore) write(op string, doc, prev *dto.Expediente) error {
	key := doc.Key()
	val, err := json.Marshal(doc)
	if err != nil {
		return dto.NewStoreError(op, key.String(), err)
	}

	b := p.db.NewBatch()
	defer b.Close()

	if prev != nil {
		for _, k := range indexKeys(prev) {
			if err := b.Delete(k, nil); err != nil {
				return dto.NewStoreError(op, key.String(), err)
			}
		}
	}
	for _, k := range indexKeys(doc) {
		if err := b.Set(k, nil, nil); err != nil {
			return dto.NewStoreError(op, key.String(), err)
		}
	}
	if err := b.Set(docKey(key), val, nil); err != nil {
		return dto.NewStoreError(op, key.String(), err)
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return dto.NewStoreError(op, key.String(), err)
	}
	return nil
}

func indexKeys(doc *dto.Expediente) [][]byte {
	key := doc.Key()
	var out [][]byte
	for _, o := range orderNumbers(doc) {
		out = append(out, indexKey(orderPrefix, o, key))
	}
	for _, f := range invoiceNumbers(doc) {
		out = append(out, indexKey(invoicePrefix, f, key))
	}
	return out
}

func (p *PebbleStore) FindByOrder(ctx context.Context, numeroPedido string) ([]dto.Expediente, error) {
	return p.findIndexed(ctx, orderPrefix, numeroPedido)
}

func (p *PebbleStore) FindByInvoice(ctx context.Context, factura string) ([]dto.Expediente, error) {
	return p.findIndexed(ctx, invoicePrefix, dto.NormalizeInvoice(factura))
}

// findIndexed loads every expediente with an index entry for value.
func (p *PebbleStore) findIndexed(ctx context.Context, indexPrefix, value string) ([]dto.Expediente, error) {
	prefix := []byte(indexPrefix + url.PathEscape(value) + "/")
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, dto.NewStoreError("find", value, err)
	}

	var keys []dto.ExpedienteKey
	for it.First(); it.Valid(); it.Next() {
		rest := bytes.TrimPrefix(it.Key(), prefix)
		cliente, numero, ok := bytes.Cut(rest, []byte("/"))
		if !ok {
			continue
		}
		keys = append(keys, dto.ExpedienteKey{Cliente: string(cliente), NumeroExpediente: string(numero)})
	}
	if err := it.Close(); err != nil {
		return nil, dto.NewStoreError("find", value, err)
	}

	out := make([]dto.Expediente, 0, len(keys))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := p.get(k)
		if dto.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (p *PebbleStore) List(ctx context.Context, filter ListFilter) ([]dto.Expediente, int, error) {
	prefix := []byte(docPrefix)
	if filter.Cliente != "" {
		prefix = []byte(docPrefix + filter.Cliente + "/")
	}
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, 0, dto.NewStoreError("list", string(prefix), err)
	}
	defer it.Close()

	var out []dto.Expediente
	total := 0
	for it.First(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		total++
		if total <= filter.Offset || (filter.Limit > 0 && len(out) >= filter.Limit) {
			continue
		}
		var doc dto.Expediente
		if err := json.Unmarshal(it.Value(), &doc); err != nil {
			return nil, 0, dto.NewStoreError("decode", string(it.Key()), err)
		}
		out = append(out, doc)
	}
	return out, total, nil
}
