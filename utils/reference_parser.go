package utils

import (
	"strings"

	"github.com/Aashish23092/conciliador/dto"
)

const (
	orderDigits = 10
	caseDigits  = 8

	// DefaultContextWindow is the number of characters inspected on each
	// side of a candidate.
	DefaultContextWindow = 30

	DefaultDescriptionMarker = "DESCRIPCION"
	DefaultTaxMarker         = "IMPUESTOS FEDERALES"
)

// Keywords that must appear near a number outside the description zone.
var (
	OrderKeywords = []string{
		"PEDIDO", "ORDEN", "COMPRA", "SERVICIO", "REFERENCIA", "PED", "OC", "O C",
		"NUM", "NUMERO", "NO", "REALIZADO", "SERVICIO REALIZADO", "MUERTO",
		"ARRASTRE", "GRUA", "FACTURA", "REMISION",
	}
	CaseKeywords = []string{
		"EXPEDIENTE", "ARRASTRE", "GRUA", "EXP", "EXPTE", "SINIESTRO",
		"SERVICIO", "NUM", "NUMERO", "NO",
	}
)

func kindForLength(n int) (dto.Kind, bool) {
	switch n {
	case orderDigits:
		return dto.KindOrder, true
	case caseDigits:
		return dto.KindCase, true
	}
	return "", false
}

type digitRun struct {
	start, end int
}

func digitRuns(line string) []digitRun {
	var runs []digitRun
	for i := 0; i < len(line); {
		if !isDigit(line[i]) {
			i++
			continue
		}
		j := i
		for j < len(line) && isDigit(line[j]) {
			j++
		}
		runs = append(runs, digitRun{start: i, end: j})
		i = j
	}
	return runs
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isSplitSeparator(b byte) bool {
	switch b {
	case ' ', '\t', '\v', '\f', '.', '-', '_':
		return true
	}
	return false
}

// DetectCandidates returns every 10- or 8-digit run in the line, followed by
// split candidates of the form "dddd<sep>dddd[dd]" whose digits reassemble
// into 10 or 8 digits.
func DetectCandidates(line string) []dto.Candidate {
	runs := digitRuns(line)
	var out []dto.Candidate

	for _, r := range runs {
		if kind, ok := kindForLength(r.end - r.start); ok {
			v := line[r.start:r.end]
			out = append(out, dto.Candidate{Value: v, Kind: kind, Raw: v, SourceLine: line})
		}
	}

	for i := 0; i+1 < len(runs); i++ {
		head, tail := runs[i], runs[i+1]
		if head.end-head.start != 4 || tail.start != head.end+1 || !isSplitSeparator(line[head.end]) {
			continue
		}
		tailLen := tail.end - tail.start
		if tailLen < 4 || tailLen > 6 {
			continue
		}

		value := line[head.start:head.end] + line[tail.start:tail.end]
		if kind, ok := kindForLength(len(value)); ok {
			out = append(out, dto.Candidate{
				Value:      value,
				Kind:       kind,
				Raw:        line[head.start:tail.end],
				SourceLine: line,
				Split:      true,
			})
		}
		// the tail belongs to this match and cannot start another one
		i++
	}

	return out
}

// ContextValidator decides whether a candidate found outside a description
// zone is an identifier, using keywords next to it.
type ContextValidator struct {
	Window        int
	OrderKeywords []string
	CaseKeywords  []string
}

func NewContextValidator(window int) *ContextValidator {
	if window <= 0 {
		window = DefaultContextWindow
	}
	return &ContextValidator{
		Window:        window,
		OrderKeywords: OrderKeywords,
		CaseKeywords:  CaseKeywords,
	}
}

// Validate reports whether a class keyword appears within the window before
// or after the first occurrence of the candidate in the normalized line.
func (v *ContextValidator) Validate(c dto.Candidate) bool {
	line := NormalizeLine(c.SourceLine)
	needle := strings.ToUpper(strings.TrimSpace(c.Raw))
	if needle == "" {
		needle = c.Value
	}

	pos := strings.Index(line, needle)
	if pos < 0 {
		return false
	}

	before := lastN(strings.TrimSpace(line[:pos]), v.Window)
	after := firstN(strings.TrimSpace(line[pos+len(needle):]), v.Window)

	keywords := v.CaseKeywords
	if c.Kind == dto.KindOrder {
		keywords = v.OrderKeywords
	}
	for _, kw := range keywords {
		if strings.Contains(before, kw) || strings.Contains(after, kw) {
			return true
		}
	}
	return false
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ZoneScanner walks the lines of a page and classifies every candidate.
type ZoneScanner struct {
	validator         *ContextValidator
	descriptionMarker string
	taxMarker         string
}

func NewZoneScanner(validator *ContextValidator, descriptionMarker, taxMarker string) *ZoneScanner {
	if descriptionMarker == "" {
		descriptionMarker = DefaultDescriptionMarker
	}
	if taxMarker == "" {
		taxMarker = DefaultTaxMarker
	}
	return &ZoneScanner{
		validator:         validator,
		descriptionMarker: NormalizeLine(descriptionMarker),
		taxMarker:         NormalizeLine(taxMarker),
	}
}

// PageScan is the classification of the candidates of one page.
type PageScan struct {
	Accepted []dto.Candidate
	Rejected []dto.Candidate
}

// ScanPage classifies the candidates of every line of a page. A line holding
// the description marker opens the zone and belongs to it; the next line
// holding the tax marker closes it and is validated by keywords. Inside the
// zone every candidate is accepted.
func (s *ZoneScanner) ScanPage(page string) PageScan {
	var scan PageScan
	inZone := false

	for _, line := range SplitLines(page) {
		normalized := NormalizeLine(line)
		if strings.Contains(normalized, s.descriptionMarker) {
			inZone = true
		} else if inZone && strings.Contains(normalized, s.taxMarker) {
			inZone = false
		}

		for _, c := range DetectCandidates(line) {
			c.InZone = inZone
			if inZone || s.validator.Validate(c) {
				scan.Accepted = append(scan.Accepted, c)
			} else {
				scan.Rejected = append(scan.Rejected, c)
			}
		}
	}
	return scan
}

// DedupeCandidates keeps the first candidate of each (kind, value).
func DedupeCandidates(in []dto.Candidate) []dto.Candidate {
	seen := make(map[string]bool, len(in))
	out := make([]dto.Candidate, 0, len(in))
	for _, c := range in {
		k := string(c.Kind) + ":" + c.Value
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
