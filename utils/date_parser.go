package utils

import (
	"regexp"
	"strings"

	"github.com/Aashish23092/conciliador/dto"
)

var spanishMonths = map[string]string{
	"ene": "01", "feb": "02", "mar": "03", "abr": "04",
	"may": "05", "jun": "06", "jul": "07", "ago": "08",
	"sept": "09", "oct": "10", "nov": "11", "dic": "12",
}

var normalizedDateRegex = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// Lines around which a purchase order prints the required date.
var requiredDateMarkers = []string{"Fecha para la que se", "Cant.", "(Unidad)", "requiere"}

func monthNumber(token string) (string, bool) {
	m, ok := spanishMonths[strings.Trim(strings.ToLower(token), ".,")]
	return m, ok
}

func digitsOf(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// dateAt parses tokens[i-1] tokens[i] tokens[i+1] as day, month, year.
func dateAt(tokens []string, i int) (string, bool) {
	month, ok := monthNumber(tokens[i])
	if !ok || i == 0 || i+1 >= len(tokens) {
		return "", false
	}
	day := digitsOf(tokens[i-1])
	year := digitsOf(tokens[i+1])
	if day == "" || len(day) > 2 || len(year) != 4 {
		return "", false
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return day + "/" + month + "/" + year, true
}

// ParseSpanishDate converts "8 oct 2024" into "08/10/2024". Text already in
// DD/MM/YYYY form is returned as is; anything else yields dto.NoDate.
func ParseSpanishDate(s string) string {
	s = strings.TrimSpace(s)
	if normalizedDateRegex.MatchString(s) {
		return s
	}
	tokens := strings.Fields(s)
	for i := range tokens {
		if d, ok := dateAt(tokens, i); ok {
			return d
		}
	}
	return dto.NoDate
}

// FindRequiredDate looks for the delivery date of a purchase order on the
// line holding one of the date markers and the two lines after it.
func FindRequiredDate(lines []string) string {
	for i, line := range lines {
		if !containsAny(line, requiredDateMarkers) {
			continue
		}
		for j := i; j < len(lines) && j < i+3; j++ {
			tokens := strings.Fields(lines[j])
			for k := range tokens {
				if d, ok := dateAt(tokens, k); ok {
					return d
				}
			}
		}
	}
	return dto.NoDate
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
