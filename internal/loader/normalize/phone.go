package normalize

import "strings"

const (
	minPhoneDigits = 9
	countryCode    = "61"
)

// Phone приводит австралийский номер к виду +61XXXXXXXXX.
// Возвращает "", false если в номере меньше 9 цифр.
func Phone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < minPhoneDigits {
		return "", false
	}

	digits = strings.TrimPrefix(digits, countryCode)
	digits = strings.TrimPrefix(digits, "0")

	return "+" + countryCode + digits, true
}
