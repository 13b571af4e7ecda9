package cooldown

import (
	"fmt"
	"strings"
	"time"
)

// Placeholder is the token replaced by the remaining time in denial messages.
const Placeholder = "{time}"

// DefaultMessage is used when neither the config nor the request sets a template.
const DefaultMessage = "Not so fast. Try again in " + Placeholder + "."

// FormatRemaining renders d as "1d 2h 3m 4s", dropping leading zero units.
// Seconds are always present. Partial seconds round up so a fresh 5s window
// reads "5s" rather than "4s".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64((d + time.Second - 1) / time.Second)

	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	var b strings.Builder
	started := false
	for _, part := range []struct {
		n    int64
		unit string
	}{{days, "d"}, {hours, "h"}, {minutes, "m"}} {
		if part.n == 0 && !started {
			continue
		}
		started = true
		fmt.Fprintf(&b, "%d%s ", part.n, part.unit)
	}
	fmt.Fprintf(&b, "%ds", seconds)
	return b.String()
}

// Render substitutes remaining into the first placeholder of template.
func Render(template string, remaining time.Duration) string {
	return strings.Replace(template, Placeholder, FormatRemaining(remaining), 1)
}
