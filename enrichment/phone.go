package enrichment

import "strings"

// PhoneVariants returns the spellings under which a number may be stored:
// the raw input, the bare national digits (last ten), the country-code
// prefixed digits and E.164. The raw value comes first; duplicates are
// removed.
func PhoneVariants(raw, countryCode string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if countryCode == "" {
		countryCode = "1"
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	out := []string{raw}
	add := func(v string) {
		for _, existing := range out {
			if existing == v {
				return
			}
		}
		out = append(out, v)
	}

	if d != "" {
		add(d)
	}
	if len(d) >= 10 {
		national := d[len(d)-10:]
		add(national)
		add(countryCode + national)
		add("+" + countryCode + national)
	}
	return out
}
