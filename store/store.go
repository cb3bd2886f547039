// Package store persists expedientes keyed by (case number, client) with
// secondary lookups by the order and invoice numbers of their lines.
package store

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Aashish23092/conciliador/config"
	"github.com/Aashish23092/conciliador/dto"
)

// ListFilter selects a page of expedientes.
type ListFilter struct {
	Cliente string
	Offset  int
	Limit   int
}

// Store is implemented by every expediente backend. Insert fails with
// dto.ErrAlreadyExists when the key is taken; Get and Update fail with
// dto.ErrNotFound when it is absent.
type Store interface {
	Get(ctx context.Context, key dto.ExpedienteKey) (*dto.Expediente, error)
	Insert(ctx context.Context, doc *dto.Expediente) error
	Update(ctx context.Context, doc *dto.Expediente) error
	FindByOrder(ctx context.Context, numeroPedido string) ([]dto.Expediente, error)
	FindByInvoice(ctx context.Context, factura string) ([]dto.Expediente, error)
	List(ctx context.Context, filter ListFilter) ([]dto.Expediente, int, error)
	Close() error
}

// Open returns the backend selected by cfg.Store.Driver.
func Open(cfg *config.Config, logger *zerolog.Logger) (Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return NewPostgresStore(cfg.Store.DatabaseURL, logger)
	case "pebble":
		return NewPebbleStore(cfg.Store.Path)
	}
	return nil, dto.NewConfigError("store.driver", "unknown driver "+cfg.Store.Driver, nil)
}

func orderNumbers(doc *dto.Expediente) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range doc.Pedidos {
		if p.NumeroPedido == nil || *p.NumeroPedido == "" || seen[*p.NumeroPedido] {
			continue
		}
		seen[*p.NumeroPedido] = true
		out = append(out, *p.NumeroPedido)
	}
	sort.Strings(out)
	return out
}

// invoiceNumbers returns the distinct normalized invoice numbers of doc.
func invoiceNumbers(doc *dto.Expediente) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range doc.Pedidos {
		if p.Factura == nil {
			continue
		}
		f := dto.NormalizeInvoice(*p.Factura)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func validateDoc(doc *dto.Expediente) error {
	if doc == nil {
		return dto.NewValidationError("expediente", nil, "document is nil")
	}
	if doc.NumeroExpediente == "" {
		return dto.NewValidationError("numeroExpediente", doc.NumeroExpediente, "must not be empty")
	}
	if doc.Cliente == "" {
		return dto.NewValidationError("cliente", doc.Cliente, "must not be empty")
	}
	// key segments are joined with '/'
	if strings.Contains(doc.NumeroExpediente, "/") {
		return dto.NewValidationError("numeroExpediente", doc.NumeroExpediente, "must not contain '/'")
	}
	if strings.Contains(doc.Cliente, "/") {
		return dto.NewValidationError("cliente", doc.Cliente, "must not contain '/'")
	}
	return nil
}
