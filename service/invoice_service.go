package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Aashish23092/conciliador/config"
	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/metrics"
	"github.com/Aashish23092/conciliador/utils"
)

const previewLines = 10

// InvoiceService finds order and case numbers in invoices and associates
// them with the invoice they were billed on.
type InvoiceService struct {
	pdfProcessor PDFProcessor
	scanner      *utils.ZoneScanner
	workers      int
	metrics      *metrics.Registry
	logger       *zerolog.Logger
}

func NewInvoiceService(
	pdfProcessor PDFProcessor,
	cfg config.ExtractionConfig,
	registry *metrics.Registry,
	logger *zerolog.Logger,
) *InvoiceService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &InvoiceService{
		pdfProcessor: pdfProcessor,
		scanner: utils.NewZoneScanner(
			utils.NewContextValidator(cfg.ContextWindow),
			cfg.DescriptionMarker,
			cfg.TaxMarker,
		),
		workers: workers,
		metrics: registry,
		logger:  logger,
	}
}

// ScanPages classifies the candidates of a document already turned into
// page text. The invoice id comes from the first page only.
func (s *InvoiceService) ScanPages(name string, pages []string) dto.DocumentResult {
	res := dto.DocumentResult{Document: name}
	if len(pages) == 0 {
		res.Reason = "no text could be extracted"
		return res
	}

	if id, ok := utils.ParseInvoiceID(pages[0]); ok {
		res.Invoice = id
	}

	var accepted []dto.Candidate
	for _, page := range pages {
		scan := s.scanner.ScanPage(page)
		accepted = append(accepted, scan.Accepted...)
		for _, c := range scan.Rejected {
			if res.Rejected == nil {
				res.Rejected = make(map[dto.Kind]int)
			}
			res.Rejected[c.Kind]++
		}
	}
	for i := range accepted {
		accepted[i].DocumentID = name
	}
	res.Candidates = utils.DedupeCandidates(accepted)

	if len(res.Candidates) == 0 {
		res.Reason = "no order or case numbers found"
		res.Preview = utils.Preview(pages, previewLines)
		return res
	}
	res.Valid = true
	return res
}

func (s *InvoiceService) processDocument(doc Document) dto.DocumentResult {
	data, err := doc.Bytes()
	if err != nil {
		return dto.DocumentResult{Document: doc.Name, Reason: dto.NewDocumentError(doc.Name, "read failed", err).Error()}
	}

	pages, err := s.pdfProcessor.ExtractPages(data)
	if err != nil {
		reason := dto.NewDocumentError(doc.Name, "text extraction failed", err).Error()
		if verr := s.pdfProcessor.Validate(data); verr != nil {
			reason += "; " + verr.Error()
		}
		return dto.DocumentResult{Document: doc.Name, Reason: reason}
	}
	return s.ScanPages(doc.Name, pages)
}

// Detect scans every document on a bounded worker pool and aggregates the
// results in document order.
func (s *InvoiceService) Detect(ctx context.Context, docs []Document) (*dto.DetectionResult, error) {
	results := make([]dto.DocumentResult, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.processDocument(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.Aggregate(results), nil
}

// Aggregate builds the invoice index from per-document results. Later
// documents win when an identifier appears under several invoices; the
// conflict is kept in the index.
func (s *InvoiceService) Aggregate(results []dto.DocumentResult) *dto.DetectionResult {
	out := &dto.DetectionResult{
		RunID:     uuid.NewString(),
		Documents: results,
		Index:     dto.NewInvoiceIndex(),
	}
	orders := make(map[string]bool)
	cases := make(map[string]bool)

	for _, r := range results {
		s.metrics.ObserveDocument("invoice", r.Valid)
		if !r.Valid {
			s.logger.Warn().
				Str("document", r.Document).
				Str("reason", r.Reason).
				Strs("preview", r.Preview).
				Msg("invalid invoice document")
			continue
		}

		orderIDs := r.Identifiers(dto.KindOrder)
		caseIDs := r.Identifiers(dto.KindCase)
		s.metrics.ObserveCandidates(string(dto.KindOrder), len(orderIDs), r.Rejected[dto.KindOrder])
		s.metrics.ObserveCandidates(string(dto.KindCase), len(caseIDs), r.Rejected[dto.KindCase])
		for _, o := range orderIDs {
			orders[o] = true
		}
		for _, c := range caseIDs {
			cases[c] = true
		}

		if r.Invoice.IsZero() {
			s.logger.Warn().Str("document", r.Document).Msg("invoice series or folio not found")
			continue
		}
		invoice := r.Invoice.String()
		for _, c := range r.Candidates {
			if out.Index.Record(c.Value, invoice) {
				s.metrics.ObserveConflict()
				s.logger.Warn().
					Str("identifier", c.Value).
					Strs("invoices", out.Index.Conflicts[c.Value]).
					Str("document", r.Document).
					Msg("identifier found in more than one invoice")
			}
		}
		s.logger.Debug().
			Str("document", r.Document).
			Str("invoice", invoice).
			Int("orders", len(orderIDs)).
			Int("cases", len(caseIDs)).
			Msg("invoice scanned")
	}

	out.Orders = sortedKeys(orders)
	out.Cases = sortedKeys(cases)
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FormatDetectionLog renders the processing log of an invoice run: invalid
// documents with their text preview, totals and conflicting associations.
func FormatDetectionLog(res *dto.DetectionResult) string {
	var b strings.Builder
	invalid := res.Invalid()

	fmt.Fprintf(&b, "=== PROCESAMIENTO DE FACTURAS (%s) ===\n", res.RunID)
	for _, d := range invalid {
		fmt.Fprintf(&b, "\nPDF inválido: %s\n", d.Document)
		fmt.Fprintf(&b, "Motivo: %s\n", d.Reason)
		if len(d.Preview) > 0 {
			b.WriteString("Vista previa del texto:\n")
			for _, line := range d.Preview {
				fmt.Fprintf(&b, "   %s\n", line)
			}
		}
	}

	b.WriteString("\n=== RESUMEN ===\n")
	fmt.Fprintf(&b, "Total de PDFs: %d\n", len(res.Documents))
	fmt.Fprintf(&b, "PDFs válidos: %d\n", len(res.Documents)-len(invalid))
	fmt.Fprintf(&b, "PDFs inválidos: %d\n", len(invalid))
	fmt.Fprintf(&b, "Pedidos encontrados: %d\n", len(res.Orders))
	fmt.Fprintf(&b, "Expedientes encontrados: %d\n", len(res.Cases))

	if len(res.Index.Conflicts) > 0 {
		b.WriteString("\n=== CONFLICTOS DE FACTURA ===\n")
		for _, id := range sortedKeys(conflictSet(res.Index.Conflicts)) {
			last, _ := res.Index.Lookup(id)
			fmt.Fprintf(&b, "%s: %s (se usa %s)\n", id, strings.Join(res.Index.Conflicts[id], ", "), last)
		}
	}
	return b.String()
}

func conflictSet(m map[string][]string) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}
