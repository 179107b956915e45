package chatclient

import (
	"fmt"
	"time"
)

// FormatAge renders how long before now t was, the way the chat UI labels
// messages. Anything a week or older gets an absolute M/D/YYYY HH:MM in
// now's location.
func FormatAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 7*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	}
	local := t.In(now.Location())
	return fmt.Sprintf("%d/%d/%d %02d:%02d", int(local.Month()), local.Day(), local.Year(), local.Hour(), local.Minute())
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
