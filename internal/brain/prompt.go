package brain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mnemo-hq/mnemo/internal/core"
)

// BuildPrompt renders the snapshot as the markdown block injected into
// the agent's system prompt. Sections with nothing to say are omitted,
// and every map is walked in sorted key order so the same Brain always
// renders the same text.
func (b *Brain) BuildPrompt(now time.Time) string {
	var sb strings.Builder

	if len(b.Identity) > 0 {
		sb.WriteString("## Who You Are\n\n")
		for _, key := range sortedKeys(b.Identity) {
			fmt.Fprintf(&sb, "- **%s**: %s\n", key, b.Identity[key])
		}
		sb.WriteString("\n")
	}

	if len(b.User) > 0 {
		sb.WriteString("## About Your Human\n\n")
		for _, key := range sortedKeys(b.User) {
			fmt.Fprintf(&sb, "- **%s**: %s\n", key, b.User[key])
		}
		sb.WriteString("\n")
	}

	if len(b.Behaviors) > 0 {
		sb.WriteString("## How You Behave\n\n")
		for _, category := range behaviorCategories(b.Behaviors) {
			fmt.Fprintf(&sb, "### %s\n\n", category)
			for _, bh := range b.Behaviors {
				if bh.Category == category {
					fmt.Fprintf(&sb, "- %s\n", bh.Text)
				}
			}
			sb.WriteString("\n")
		}
	}

	if len(b.Preferences) > 0 {
		sb.WriteString("## Preferences\n\n")
		for _, p := range b.Preferences {
			fmt.Fprintf(&sb, "- [%s] %s\n", p.Category, p.Text)
		}
		sb.WriteString("\n")
	}

	if len(b.Learnings) > 0 {
		sb.WriteString("## Things You Have Learned\n\n")
		for _, l := range b.Learnings {
			if l.Source != "" {
				fmt.Fprintf(&sb, "- %s (%s)\n", l.Text, l.Source)
			} else {
				fmt.Fprintf(&sb, "- %s\n", l.Text)
			}
		}
		sb.WriteString("\n")
	}

	if pending := b.PendingTasks(); len(pending) > 0 {
		sb.WriteString("## Open Tasks\n\n")
		for _, t := range pending {
			fmt.Fprintf(&sb, "- [%s] %s", t.Priority, t.Description)
			if t.Due != nil {
				fmt.Fprintf(&sb, " (due %s)", t.Due.Format("2006-01-02"))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if due := b.DueReminders(now); len(due) > 0 {
		sb.WriteString("## Due Reminders\n\n")
		for _, r := range due {
			fmt.Fprintf(&sb, "- %s (since %s)\n", r.Description, r.FireAt.Format("2006-01-02 15:04"))
		}
		sb.WriteString("\n")
	}

	if len(b.Contexts) > 0 {
		sb.WriteString("## Project Context\n\n")
		for _, c := range b.Contexts {
			fmt.Fprintf(&sb, "### %s (%s)\n\n%s\n\n", c.Project, c.Path, c.Content)
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// sortedKeys returns a map's keys in lexical order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// behaviorCategories returns the distinct categories in first-seen order.
func behaviorCategories(behaviors []*core.Behavior) []string {
	seen := make(map[string]bool)
	var categories []string
	for _, b := range behaviors {
		if !seen[b.Category] {
			seen[b.Category] = true
			categories = append(categories, b.Category)
		}
	}
	return categories
}
