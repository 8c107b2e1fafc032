package payment

import "strings"

// NormalizeMSISDN strips spacing and punctuation from a payer phone number,
// keeping digits only (no leading "+"). Providers that want the plus sign or
// a bare national number derive it from this form.
func NormalizeMSISDN(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MSISDNWithPlus returns the international form with a leading "+".
func MSISDNWithPlus(phone string) string {
	normalized := NormalizeMSISDN(phone)
	if normalized == "" {
		return ""
	}
	return "+" + normalized
}
