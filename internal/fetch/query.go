package fetch

import (
	"fmt"
	"strings"
)

// Query selects pages by modification window, space, label and ancestor.
type Query struct {
	SinceHours int
	SpaceKeys  []string
	Labels     []string
	AncestorID string
}

// CQL renders the query as a Confluence Query Language expression.
func (q Query) CQL() string {
	terms := []string{"type=page"}
	if q.SinceHours > 0 {
		terms = append(terms, fmt.Sprintf(`lastmodified > now("-%dh")`, q.SinceHours))
	}
	if t := orTerm("space", q.SpaceKeys); t != "" {
		terms = append(terms, t)
	}
	if t := orTerm("label", q.Labels); t != "" {
		terms = append(terms, t)
	}
	if id := strings.TrimSpace(q.AncestorID); id != "" {
		if isDigits(id) {
			terms = append(terms, "ancestor="+id)
		} else {
			terms = append(terms, "ancestor="+quote(id))
		}
	}
	return strings.Join(terms, " and ")
}

func orTerm(field string, values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts = append(parts, field+"="+quote(v))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

var cqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(v string) string {
	return `"` + cqlEscaper.Replace(v) + `"`
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
