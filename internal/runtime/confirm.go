package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/tripflow/pkg/domain"
)

var (
	confirmYes = []string{"yes", "y", "yeah", "yep", "sure", "ok", "okay", "confirm", "true", "1"}
	confirmNo  = []string{"no", "n", "nope", "nah", "false", "0"}
)

// ParseConfirmation interprets a yes/no answer.
// The second value is false when the answer is neither.
func ParseConfirmation(input string) (answer bool, ok bool) {
	clean := strings.ToLower(strings.TrimSpace(input))
	clean = strings.TrimRight(clean, ".!? ")
	for _, w := range confirmYes {
		if clean == w {
			return true, true
		}
	}
	for _, w := range confirmNo {
		if clean == w {
			return false, true
		}
	}
	return false, false
}

// Summary renders the confirmation text for a booking.
func Summary(b domain.BookingSession) string {
	var sb strings.Builder
	sb.WriteString("Please confirm your trip details :\n")
	fmt.Fprintf(&sb, "- You will be travelling from : **%s**\n", b.Origin)
	fmt.Fprintf(&sb, "- to : **%s**\n", b.Destination)
	fmt.Fprintf(&sb, "- Your idea is to departure on : **%s**\n", b.StartDate)
	fmt.Fprintf(&sb, "- and return on : **%s**\n", b.EndDate)
	fmt.Fprintf(&sb, "- Your budget is : **%s**\n", b.Budget)
	return sb.String()
}
