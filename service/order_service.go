package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Aashish23092/conciliador/config"
	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/metrics"
	"github.com/Aashish23092/conciliador/utils"
)

// OrderService turns purchase order PDFs into workbook rows.
type OrderService struct {
	pdfProcessor PDFProcessor
	workers      int
	metrics      *metrics.Registry
	logger       *zerolog.Logger
}

func NewOrderService(
	pdfProcessor PDFProcessor,
	cfg config.ExtractionConfig,
	registry *metrics.Registry,
	logger *zerolog.Logger,
) *OrderService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &OrderService{
		pdfProcessor: pdfProcessor,
		workers:      workers,
		metrics:      registry,
		logger:       logger,
	}
}

// ParsePages extracts the order rows of one document's page text.
func (s *OrderService) ParsePages(name string, pages []string) dto.OrderDocument {
	orderID, rows, errs := utils.ParsePurchaseOrder(pages)
	for _, err := range errs {
		s.logger.Debug().Err(err).Str("document", name).Msg("skipping material line")
	}

	doc := dto.OrderDocument{Document: name, OrderID: orderID, Rows: rows}
	switch {
	case len(pages) == 0:
		doc.Reason = "no text could be extracted"
	case len(rows) == 0:
		doc.Reason = "no material lines found"
	default:
		doc.Valid = true
	}
	return doc
}

func (s *OrderService) processDocument(doc Document) dto.OrderDocument {
	data, err := doc.Bytes()
	if err != nil {
		return dto.OrderDocument{Document: doc.Name, Reason: dto.NewDocumentError(doc.Name, "read failed", err).Error()}
	}
	pages, err := s.pdfProcessor.ExtractPages(data)
	if err != nil {
		reason := dto.NewDocumentError(doc.Name, "text extraction failed", err).Error()
		if verr := s.pdfProcessor.Validate(data); verr != nil {
			reason += "; " + verr.Error()
		}
		return dto.OrderDocument{Document: doc.Name, Reason: reason}
	}
	return s.ParsePages(doc.Name, pages)
}

// Extract parses every purchase order and merges the rows with the existing
// table. Rows whose (case id, order id) already exist are suppressed from the
// new rows but still take part in the duplicate analysis.
func (s *OrderService) Extract(ctx context.Context, docs []Document, existing []dto.RawRow) (*dto.ExtractionResult, error) {
	parsed := make([]dto.OrderDocument, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = s.processDocument(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.Merge(parsed, existing), nil
}

// Merge folds parsed documents into the existing table in document order.
func (s *OrderService) Merge(parsed []dto.OrderDocument, existing []dto.RawRow) *dto.ExtractionResult {
	res := &dto.ExtractionResult{RunID: uuid.NewString(), Documents: parsed}

	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.Key()] = true
	}
	all := append([]dto.RawRow(nil), existing...)

	for _, doc := range parsed {
		s.metrics.ObserveDocument("order", doc.Valid)
		if !doc.Valid {
			s.logger.Warn().Str("document", doc.Document).Str("reason", doc.Reason).Msg("invalid purchase order")
			continue
		}
		for _, row := range doc.Rows {
			all = append(all, row)
			if seen[row.Key()] {
				s.logger.Info().
					Str("case_id", row.CaseID).
					Str("order_id", row.OrderID).
					Msg("skipping duplicate row")
				res.Suppressed = append(res.Suppressed, row)
				continue
			}
			seen[row.Key()] = true
			res.NewRows = append(res.NewRows, row)
		}
	}

	res.Duplicates = AnalyzeDuplicates(all)
	s.metrics.SetDuplicateGroups(len(res.Duplicates))
	return res
}

// FormatExtractionReport renders the processing summary followed by the
// duplicate analysis.
func FormatExtractionReport(res *dto.ExtractionResult) string {
	var b strings.Builder
	var invalid []string
	for _, d := range res.Documents {
		if !d.Valid {
			invalid = append(invalid, fmt.Sprintf("%s (%s)", d.Document, d.Reason))
		}
	}

	b.WriteString("=== RESUMEN DE PROCESAMIENTO ===\n")
	fmt.Fprintf(&b, "Total de PDFs encontrados: %d\n", len(res.Documents))
	fmt.Fprintf(&b, "PDFs procesados correctamente: %d\n", len(res.Documents)-len(invalid))
	fmt.Fprintf(&b, "PDFs inválidos: %d\n", len(invalid))
	fmt.Fprintf(&b, "Registros nuevos: %d\n", len(res.NewRows))
	fmt.Fprintf(&b, "Registros omitidos por duplicado: %d\n", len(res.Suppressed))
	if len(invalid) > 0 {
		b.WriteString("\nPDFs inválidos:\n")
		for _, v := range invalid {
			fmt.Fprintf(&b, "   - %s\n", v)
		}
	}
	b.WriteString("\n")
	b.WriteString(FormatDuplicateReport(res.Duplicates))
	return b.String()
}
