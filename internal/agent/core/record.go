package core

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultTokenLimit bounds page text handed to the record parser, at
// roughly four characters per token.
const (
	DefaultTokenLimit = 1800
	charsPerToken     = 4
	truncationMarker  = "\n...\n"
)

// costPattern matches "$?<number with optional thousands separators>(USD|$)?".
var costPattern = regexp.MustCompile(`(?i)(\$)?\s?((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?)\s?(USD|\$)?`)

// ParseCostUSD parses the number of the first costPattern match in text;
// nil means no amount was found.
func ParseCostUSD(text string) *float64 {
	m := costPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// NormalizeFormat maps common synonyms onto the accepted formats; anything
// else becomes "Not specified".
func NormalizeFormat(raw string) string {
	f := strings.ToLower(strings.TrimSpace(raw))
	switch f {
	case "online", "remote", "virtual", "zoom", "live online", "self-paced", "self paced":
		return "online"
	case "in-person", "in person", "on-campus", "on campus", "onsite", "on-site":
		return "in-person"
	case "hybrid", "blended":
		return "hybrid"
	}
	return NotSpecified
}

// NormalizeRecord applies the cost and citation invariants to rec: cost_usd
// is only kept when cost_text names an amount, and both source_link and
// citation become pageURL. Blank text fields fall back to "Not specified".
func NormalizeRecord(rec ProgramRecord, pageURL string) ProgramRecord {
	out := rec
	out.ProgramName = strings.TrimSpace(rec.ProgramName)
	out.Provider = strings.TrimSpace(rec.Provider)
	out.Duration = orNotSpecified(rec.Duration)
	out.Prerequisites = orNotSpecified(rec.Prerequisites)
	out.Location = orNotSpecified(rec.Location)
	out.WhoThisIsFor = orNotSpecified(rec.WhoThisIsFor)
	out.Format = NormalizeFormat(rec.Format)

	topics := make([]string, 0, len(rec.TopicsCovered))
	for _, t := range rec.TopicsCovered {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	out.TopicsCovered = topics

	costText := strings.TrimSpace(rec.CostText)
	if costText == "" || strings.EqualFold(costText, NotSpecified) {
		out.CostText = NotSpecified
		out.CostUSD = nil
	} else {
		out.CostText = costText
		out.CostUSD = ParseCostUSD(costText)
	}

	out.SourceLink = pageURL
	out.Citation = pageURL
	return out
}

func orNotSpecified(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return NotSpecified
	}
	return s
}

// TruncateContent keeps content within tokenLimit*4 characters by joining
// the first 70% and the trailing remainder of the budget with a marker.
// Content within budget is returned unchanged.
func TruncateContent(content string, tokenLimit int) string {
	budget := positiveOr(tokenLimit, DefaultTokenLimit) * charsPerToken
	runes := []rune(content)
	if len(runes) <= budget {
		return content
	}
	head := budget * 7 / 10
	tail := budget - head
	return string(runes[:head]) + truncationMarker + string(runes[len(runes)-tail:])
}
