package mapper

import (
	"strings"

	"gotourism_loader/internal/atdw"
	"gotourism_loader/internal/core/models"
	"gotourism_loader/internal/loader/normalize"
)

// contactCodes are matched as substrings of attributeIdCommunication,
// e.g. CAEMENQUIR, CAPHNUMBUA, CAWEBADDR, CABOOKURL.
var contactCodes = []struct {
	fragments []string
	kind      string
}{
	{[]string{"EMEN"}, models.ContactEmail},
	{[]string{"PHNUM", "PHONE"}, models.ContactPhone},
	{[]string{"WEBADDR", "WEBSITE"}, models.ContactWebsite},
	{[]string{"BOOKURL", "BOOKING"}, models.ContactBooking},
}

// classifyContact picks a kind from the type code and falls back to the
// shape of the value. Every non-empty value gets exactly one kind.
func classifyContact(typeCode, value string) string {
	code := strings.ToUpper(typeCode)
	for _, c := range contactCodes {
		for _, f := range c.fragments {
			if strings.Contains(code, f) {
				return c.kind
			}
		}
	}

	switch {
	case strings.Contains(value, "@"):
		return models.ContactEmail
	case strings.HasPrefix(strings.ToLower(value), "http"):
		return models.ContactWebsite
	default:
		return models.ContactPhone
	}
}

func mapContacts(comms []atdw.Communication) []models.Contact {
	out := make([]models.Contact, 0, len(comms))
	for _, c := range comms {
		value := c.Detail.Trim()
		if value == "" {
			continue
		}
		kind := classifyContact(c.Type.Trim(), value)

		switch kind {
		case models.ContactPhone:
			if n, ok := normalize.Phone(value); ok {
				value = n
			}
		case models.ContactEmail:
			if n, ok := normalize.Email(value); ok {
				value = n
			}
		}
		out = append(out, models.Contact{Kind: kind, Value: value})
	}
	return out
}
