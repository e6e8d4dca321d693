package usagewatch

import (
	"fmt"
	"strings"
)

// Summary renders the snapshot as a single plain-text line, used for the
// daily notification and the status examples.
func (s *UsageSnapshot) Summary() string {
	parts := []string{
		fmt.Sprintf("%d/%d fast requests left", s.RemainingRequests, s.TotalRequests),
	}

	if s.SpendCents != nil {
		spend := fmt.Sprintf("$%.2f spent", float64(*s.SpendCents)/100)
		if s.HardLimitDollars != nil {
			spend += fmt.Sprintf(" (limit $%.2f)", *s.HardLimitDollars)
		}
		parts = append(parts, spend)
	}

	if s.Reset != nil {
		switch days := s.Reset.DisplayDaysRemaining(); days {
		case 0:
			parts = append(parts, "resets today")
		case 1:
			parts = append(parts, "resets tomorrow")
		default:
			parts = append(parts, fmt.Sprintf("resets in %d days", days))
		}
	}

	return strings.Join(parts, ", ")
}
