package embedding

import "strings"

// Separator joins the fields that make up an entity's source text.
const Separator = " | "

// JoinText joins non-empty trimmed parts with Separator.
func JoinText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, Separator)
}

// JoinList renders a list field as a comma separated value.
func JoinList(items []string) string {
	kept := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			kept = append(kept, it)
		}
	}
	return strings.Join(kept, ", ")
}
