package calls

import (
	"strconv"
	"strings"
)

// NormalizePhone canonicalizes a raw phone value to a digit string.
//
// Non-digits are stripped and a leading US country code is dropped from 11-digit
// numbers. Any other non-empty digit string is returned as-is. "" means unrecoverable.
// Matching is plain string equality on this form; no E.164 validation happens.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	// Spreadsheets sometimes hand numeric cells over in scientific notation.
	if strings.ContainsAny(raw, "eE") {
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f > 0 {
			raw = strconv.FormatFloat(f, 'f', 0, 64)
		}
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
