package restriction

import (
	"time"

	"parkspot-api/models"
)

// PermitCode is the canonical code reported for permit-only zones.
const PermitCode = "PP"

// ActiveRule picks the governing rule among a zone's sign plates at now.
// Permit plates are maximally restrictive and short-circuit with (nil, "PP").
// Otherwise the active rule with the smallest parseable minutes wins; plates
// whose minutes cannot be parsed are skipped but do not block other
// candidates. Both returns are nil when nothing qualifies.
func ActiveRule(rules []models.SignPlateRule, now time.Time) (allowed *int, code *string) {
	var bestMinutes *int
	var bestCode *string

	for i := range rules {
		rule := rules[i]
		if !Active(rule.Days, rule.Start, rule.Finish, now) {
			continue
		}

		minutes, ok, kind := ParseCode(rule.Display)
		if kind == KindPermit {
			pp := PermitCode
			return nil, &pp
		}
		if !ok {
			continue
		}

		if bestMinutes == nil || minutes < *bestMinutes {
			m := minutes
			c := rule.Display
			bestMinutes = &m
			bestCode = &c
		}
	}
	return bestMinutes, bestCode
}
