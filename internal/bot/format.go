package bot

import (
	"fmt"
	"strings"

	"github.com/alenapavlenkko/expireassist/internal/matcher"
	"github.com/alenapavlenkko/expireassist/internal/service"
)

// Telegram rejects messages longer than this.
const maxMessageLen = 4096

func expiryLabel(days *int) string {
	switch {
	case days == nil:
		return "no expiry date"
	case *days < -1:
		return fmt.Sprintf("expired %d days ago", -*days)
	case *days == -1:
		return "expired yesterday"
	case *days == 0:
		return "expires today"
	case *days == 1:
		return "expires tomorrow"
	default:
		return fmt.Sprintf("expires in %d days", *days)
	}
}

func entryLine(e service.InventoryEntry) string {
	line := fmt.Sprintf("• %s x%d", e.Name, e.Quantity)
	if e.Unit != "" {
		line += " " + e.Unit
	}
	line += ", " + expiryLabel(e.DaysUntilExpiry)
	if e.BinName != "" {
		line += " (" + e.BinName + ")"
	}
	return line
}

func formatPantry(entries []service.InventoryEntry) string {
	if len(entries) == 0 {
		return "📭 The pantry is empty. Use /add to put something in."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🥫 Pantry: %d items\n\n", len(entries))
	for _, e := range entries {
		sb.WriteString(entryLine(e))
		sb.WriteByte('\n')
	}
	return truncate(sb.String())
}

func formatExpiring(entries []service.InventoryEntry, days int) string {
	if len(entries) == 0 {
		return fmt.Sprintf("✅ Nothing expires within %d days.", days)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "⏰ Use soon (next %d days):\n\n", days)
	for _, e := range entries {
		sb.WriteString(entryLine(e))
		sb.WriteByte('\n')
	}
	return truncate(sb.String())
}

func formatRanked(results []matcher.Result) string {
	if len(results) == 0 {
		return "🤷 No meal uses what you have right now."
	}
	var sb strings.Builder
	sb.WriteString("🍳 Meal ideas from your pantry:\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s %d%% (%d/%d)\n", i+1, r.Name, int(r.Score*100+0.5), r.MatchedItems, r.TotalItems)
		if len(r.MissingItemNames) > 0 {
			fmt.Fprintf(&sb, "   missing: %s\n", strings.Join(r.MissingItemNames, ", "))
		}
	}
	return truncate(sb.String())
}

func formatBrowse(listings []matcher.Listing) string {
	if len(listings) == 0 {
		return "📭 No meals in the catalog yet."
	}
	var sb strings.Builder
	sb.WriteString("📖 Your pantry is empty, here is everything we know how to cook:\n\n")
	for _, l := range listings {
		fmt.Fprintf(&sb, "• %s: %s\n", l.Name, strings.Join(l.ItemNames, ", "))
	}
	return truncate(sb.String())
}

func formatCatalog(names []string) string {
	if len(names) == 0 {
		return "📭 The catalog is empty."
	}
	return truncate(fmt.Sprintf("📦 Catalog (%d):\n\n%s", len(names), strings.Join(names, ", ")))
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := strings.LastIndexByte(s[:maxMessageLen-4], '\n')
	if cut <= 0 {
		cut = maxMessageLen - 4
	}
	return s[:cut] + "\n..."
}
