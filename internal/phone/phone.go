package phone

import (
	"strings"

	"whatsapp-console/internal/models"
)

// Normalize strips every non-digit character from a phone number.
func Normalize(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// E164 converts a free-form number to E.164. Numbers without a country code
// are assumed to be US/Canada (+1) when exactly 10 digits long.
func E164(number string) string {
	digits := Normalize(number)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(number, "+") {
		return "+" + digits
	}
	if len(digits) == 10 {
		return "+1" + digits
	}
	return "+" + digits
}

// lastN returns the last n characters of s, or s itself when shorter.
func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// matchRank classifies how a stored number matches an incoming wire-format
// number. Lower ranks are stronger matches; -1 means no match.
func matchRank(incoming, stored string) int {
	if stored == "" || incoming == "" {
		return -1
	}
	switch {
	case stored == incoming:
		return 0
	case lastN(stored, 10) == lastN(incoming, 10):
		return 1
	case strings.HasSuffix(incoming, stored):
		return 2
	}
	return -1
}

// MatchContact finds the stored contact matching an incoming wire-format
// sender number. Both sides are compared digits-only. Exact equality beats a
// last-10-digits match, which beats the incoming number merely ending with
// the stored one; within a rank the lowest contact ID wins. Returns nil when
// nothing matches.
func MatchContact(incoming string, contacts []models.Contact) *models.Contact {
	normalizedIncoming := Normalize(incoming)
	if normalizedIncoming == "" {
		return nil
	}

	best := -1
	var matched *models.Contact
	for i := range contacts {
		c := &contacts[i]
		rank := matchRank(normalizedIncoming, Normalize(c.PhoneNumber))
		if rank < 0 {
			continue
		}
		if best < 0 || rank < best || (rank == best && c.ID < matched.ID) {
			best = rank
			matched = c
		}
	}
	return matched
}
