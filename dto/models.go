package dto

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the identifier class of a reference candidate.
type Kind string

const (
	KindOrder Kind = "ORDER" // 10-digit purchase order number
	KindCase  Kind = "CASE"  // 8-digit case (expediente) number
)

// NoDate is written when a required date cannot be recovered.
const NoDate = "Sin fecha"

// Candidate is a digit sequence found in a line of page text.
type Candidate struct {
	Value      string `json:"value"`
	Kind       Kind   `json:"kind"`
	Raw        string `json:"raw"`
	SourceLine string `json:"source_line"`
	DocumentID string `json:"document_id,omitempty"`
	Split      bool   `json:"split,omitempty"`
	InZone     bool   `json:"in_zone,omitempty"`
}

// InvoiceID identifies an invoice by its series letter and folio number.
type InvoiceID struct {
	Series string `json:"series"`
	Folio  string `json:"folio"`
}

func (i InvoiceID) String() string {
	return i.Series + i.Folio
}

func (i InvoiceID) IsZero() bool {
	return i.Series == "" || i.Folio == ""
}

// InvoiceIndex maps accepted identifiers to the invoice they were found in.
// The last recorded invoice wins; identifiers seen under more than one
// invoice are listed in Conflicts.
type InvoiceIndex struct {
	Invoices  map[string]string   `json:"invoices"`
	Conflicts map[string][]string `json:"conflicts,omitempty"`
}

func NewInvoiceIndex() InvoiceIndex {
	return InvoiceIndex{
		Invoices:  make(map[string]string),
		Conflicts: make(map[string][]string),
	}
}

// Record associates identifier with invoice and reports whether a different
// invoice had already been recorded for it.
func (x *InvoiceIndex) Record(identifier, invoice string) bool {
	if x.Invoices == nil {
		x.Invoices = make(map[string]string)
	}
	if x.Conflicts == nil {
		x.Conflicts = make(map[string][]string)
	}

	prev, seen := x.Invoices[identifier]
	x.Invoices[identifier] = invoice
	if !seen || prev == invoice {
		return false
	}

	set := x.Conflicts[identifier]
	if len(set) == 0 {
		set = []string{prev}
	}
	if !containsString(set, invoice) {
		set = append(set, invoice)
	}
	sort.Strings(set)
	x.Conflicts[identifier] = set
	return true
}

func (x InvoiceIndex) Lookup(identifier string) (string, bool) {
	inv, ok := x.Invoices[identifier]
	return inv, ok
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Status is the billing state of an order line.
type Status string

const (
	StatusNotInvoiced    Status = "NO_FACTURADO"
	StatusInvoiced       Status = "FACTURADO"
	StatusInvoicedByCase Status = "FACTURADO_POR_EXPEDIENTE"
)

// ParseStatus accepts the canonical spelling as well as the legacy spaced
// one ("NO FACTURADO"). Empty input is NO_FACTURADO.
func ParseStatus(s string) Status {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return StatusNotInvoiced
	}
	return Status(strings.Join(strings.Fields(v), "_"))
}

// Rank orders statuses from not invoiced to invoiced.
func (s Status) Rank() int {
	switch s {
	case StatusInvoiced:
		return 2
	case StatusInvoicedByCase:
		return 1
	default:
		return 0
	}
}

// RawRow is one row as read from a purchase order or the workbook. Every
// field is text; coercion happens in the transformer.
type RawRow struct {
	CaseID       string `json:"case_id"`
	OrderID      string `json:"order_id"`
	LineNo       string `json:"line_no"`
	Price        string `json:"price"`
	Tax          string `json:"tax"`
	Description  string `json:"description"`
	RequiredDate string `json:"required_date"`
	Status       string `json:"status"`
	InvoiceNo    string `json:"invoice_no"`
	Deliveries   string `json:"deliveries,omitempty"`
	ClientPart   string `json:"client_part,omitempty"`
	Type         string `json:"type,omitempty"`
	Quantity     string `json:"quantity,omitempty"`
	Subtotal     string `json:"subtotal,omitempty"`
}

// Key is the workbook dedupe key.
func (r RawRow) Key() string {
	return strings.TrimSpace(r.CaseID) + "|" + strings.TrimSpace(r.OrderID)
}

// ExtractedRecord is a canonical, typed row. Empty strings, zero integers
// and invalid amounts are unknown values.
type ExtractedRecord struct {
	CaseID       string              `json:"case_id"`
	OrderID      string              `json:"order_id,omitempty"`
	InvoiceNo    string              `json:"invoice_no,omitempty"`
	LineNo       int                 `json:"line_no,omitempty"`
	Deliveries   int                 `json:"deliveries,omitempty"`
	ClientPart   string              `json:"client_part,omitempty"`
	Price        decimal.NullDecimal `json:"price"`
	Tax          decimal.NullDecimal `json:"tax"`
	Subtotal     decimal.NullDecimal `json:"subtotal"`
	Quantity     int                 `json:"quantity,omitempty"`
	Description  string              `json:"description,omitempty"`
	Type         string              `json:"type,omitempty"`
	RequiredDate string              `json:"required_date,omitempty"`
	Status       Status              `json:"status,omitempty"`
}

// DuplicateKind tells whether a repeated case id points at one order or many.
type DuplicateKind string

const (
	DuplicateSameOrder  DuplicateKind = "SAME_ORDER"
	DuplicateCrossOrder DuplicateKind = "CROSS_ORDER"
)

// DuplicateGroup collects every row sharing a case id.
type DuplicateGroup struct {
	CaseID        string        `json:"case_id"`
	Description   string        `json:"description"`
	Rows          []RawRow      `json:"rows"`
	Orders        []string      `json:"orders"`
	Prices        []float64     `json:"prices"`
	Kind          DuplicateKind `json:"kind"`
	PriceConflict bool          `json:"price_conflict"`
}

// DocumentResult is the outcome of scanning one invoice document.
type DocumentResult struct {
	Document   string       `json:"document"`
	Invoice    InvoiceID    `json:"invoice"`
	Candidates []Candidate  `json:"candidates"`
	Rejected   map[Kind]int `json:"rejected,omitempty"`
	Valid      bool         `json:"valid"`
	Reason     string       `json:"reason,omitempty"`
	Preview    []string     `json:"preview,omitempty"`
}

// Identifiers returns the accepted values of the given kind.
func (d DocumentResult) Identifiers(kind Kind) []string {
	var out []string
	for _, c := range d.Candidates {
		if c.Kind == kind {
			out = append(out, c.Value)
		}
	}
	return out
}

// DetectionResult aggregates a batch of invoice documents.
type DetectionResult struct {
	RunID     string           `json:"run_id"`
	Documents []DocumentResult `json:"documents"`
	Orders    []string         `json:"orders"`
	Cases     []string         `json:"cases"`
	Index     InvoiceIndex     `json:"index"`
}

func (r DetectionResult) Invalid() []DocumentResult {
	var out []DocumentResult
	for _, d := range r.Documents {
		if !d.Valid {
			out = append(out, d)
		}
	}
	return out
}

// OrderDocument is a purchase order parsed from page text.
type OrderDocument struct {
	Document string   `json:"document"`
	OrderID  string   `json:"order_id"`
	Rows     []RawRow `json:"rows"`
	Valid    bool     `json:"valid"`
	Reason   string   `json:"reason,omitempty"`
}

// ExtractionResult aggregates a batch of purchase orders.
type ExtractionResult struct {
	RunID      string           `json:"run_id"`
	Documents  []OrderDocument  `json:"documents"`
	NewRows    []RawRow         `json:"new_rows"`
	Suppressed []RawRow         `json:"suppressed"`
	Duplicates []DuplicateGroup `json:"duplicates"`
}

// MergeEvent is published after the merge engine writes an expediente.
type MergeEvent struct {
	RunID            string       `json:"run_id,omitempty"`
	NumeroExpediente string       `json:"numeroExpediente"`
	Cliente          string       `json:"cliente"`
	NumeroPedido     string       `json:"numeroPedido,omitempty"`
	Action           UpsertAction `json:"action"`
	Forced           bool         `json:"forced"`
	EstadoGeneral    string       `json:"estadoGeneral"`
	At               time.Time    `json:"at"`
}
