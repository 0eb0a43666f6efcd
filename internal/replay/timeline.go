package replay

import (
	"fmt"
	"strings"
	"time"

	"github.com/securewatch/traceguard/internal/domain"
)

// FormatTimeline renders a trace's events one per line for the operator,
// oldest first, with a trimmed error summary where present.
func FormatTimeline(events []domain.Event) string {
	var b strings.Builder
	for _, ev := range events {
		errSummary := ""
		if ev.Err != nil {
			msg, ok := ev.Err.String("message")
			if !ok {
				msg = fmt.Sprintf("%v", map[string]any(ev.Err))
			}
			if len(msg) > 80 {
				msg = msg[:80]
			}
			errSummary = "  ERR=" + msg
		}

		fmt.Fprintf(&b, "  %s  [%-5s]  %-30s  %s%s\n",
			ev.CreatedAt.Format(time.RFC3339),
			orUnknown(ev.Status),
			orUnknown(ev.EventType),
			orUnknown(ev.Source),
			errSummary,
		)
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
