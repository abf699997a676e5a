package commands

import (
	"strings"
)

// indentation is the indentation of examples in help text.
const indentation = `  `

// longDesc trims a command's long description and strips the source indentation of each line.
func longDesc(s string) string {
	return normalize(s, "")
}

// examples trims a command's examples and indents every line.
func examples(s string) string {
	return normalize(s, indentation)
}

func normalize(s, indent string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	lines := make([]string, 0, strings.Count(s, "\n")+1)
	for line := range strings.SplitSeq(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, indent+trimmed)
	}

	return strings.Join(lines, "\n")
}
