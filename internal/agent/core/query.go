package core

import "strings"

const maxQueries = 3

var queryBoosterPhrases = []string{
	"course program workshop bootcamp",
	"certificate curriculum syllabus",
}

// BuildQueries derives up to three distinct search queries from the user
// query and preferences. It returns nil when the query is blank.
func BuildQueries(query string, prefs *Prefs) []string {
	base := strings.TrimSpace(query)
	if base == "" {
		return nil
	}
	boosters := prefBoosters(prefs)

	candidates := make([]string, 0, 1+len(queryBoosterPhrases))
	candidates = append(candidates, joinNonEmpty(append([]string{base}, boosters...)))
	for _, phrase := range queryBoosterPhrases {
		parts := append([]string{base, phrase}, boosters...)
		candidates = append(candidates, joinNonEmpty(parts))
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, maxQueries)
	for _, q := range candidates {
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
		if len(out) == maxQueries {
			break
		}
	}
	return out
}

// prefBoosters returns format, goal, budget, city in that order, skipping
// blanks; hyphens in format and budget become spaces.
func prefBoosters(p *Prefs) []string {
	if p == nil {
		return nil
	}
	var out []string
	if v := strings.TrimSpace(p.Format); v != "" {
		out = append(out, strings.ReplaceAll(v, "-", " "))
	}
	if v := strings.TrimSpace(p.Goal); v != "" {
		out = append(out, v)
	}
	if v := strings.TrimSpace(p.Budget); v != "" {
		out = append(out, strings.ReplaceAll(v, "-", " "))
	}
	if v := strings.TrimSpace(p.City); v != "" {
		out = append(out, v)
	}
	return out
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
