package utils

import (
	"regexp"

	"github.com/Aashish23092/conciliador/dto"
)

var (
	seriesRegex = regexp.MustCompile(`SERIE:\s*([A-Za-z])`)
	folioRegex  = regexp.MustCompile(`FOLIO:\s*(\d+)`)
)

// ParseInvoiceID extracts series and folio from the first page of an
// invoice. Both must be present.
func ParseInvoiceID(firstPage string) (dto.InvoiceID, bool) {
	series := seriesRegex.FindStringSubmatch(firstPage)
	folio := folioRegex.FindStringSubmatch(firstPage)
	if len(series) < 2 || len(folio) < 2 {
		return dto.InvoiceID{}, false
	}
	return dto.InvoiceID{Series: series[1], Folio: folio[1]}, true
}
