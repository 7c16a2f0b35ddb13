package core

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/learnpath/internal/helpers"
	"github.com/mohammad-safakhou/learnpath/internal/logger"
)

const (
	DefaultMaxPerBucket      = 5
	DefaultLowTotalThreshold = 3

	daysPerWeek   = 7.0
	weeksPerMonth = 4.345
	weeksPerYear  = 52.0

	shortTermMaxWeeks  = 4.0
	mediumTermMaxWeeks = 24.0
)

var durationPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*[- ]?\s*(day|week|month|year)s?\b`)

var (
	longTermKeywords = []string{
		"degree", "university", "college", "bachelor", "master", "mba",
		"phd", "msc", "bsc", "semester", "year",
	}
	shortTermKeywords = []string{
		"workshop", "intro", "crash", "bootcamp prep", "fundamentals", "basics",
		"webinar", "seminar", "one-day", "one day", "weekend", "short course", "intensive",
	}
)

// Organizer buckets extracted programs into learning horizons.
type Organizer struct {
	MaxPerBucket      int
	LowTotalThreshold int
	Logger            logger.Logger
}

func (o *Organizer) Name() Stage { return StageOrganize }

func (o *Organizer) Run(_ context.Context, st State) (Update, error) {
	results, warnings := o.Organize(st.ExtractedPrograms)
	loggerOrNop(o.Logger).Info("organizer finished",
		logger.Int("short_term", len(results.ShortTerm)),
		logger.Int("medium_term", len(results.MediumTerm)),
		logger.Int("long_term", len(results.LongTerm)),
		logger.Int("warnings", len(warnings)),
	)
	return Update{Results: &results, Warnings: warnings}, nil
}

// Organize is the pure bucketing step. The same input always yields the
// same buckets in the same order.
func (o *Organizer) Organize(programs []ProgramRecord) (Buckets, []string) {
	results := EmptyBuckets()
	if len(programs) == 0 {
		return results, []string{stageWarning(StageOrganize, "No programs were available to categorize.")}
	}
	capacity := positiveOr(o.MaxPerBucket, DefaultMaxPerBucket)
	lowTotal := positiveOr(o.LowTotalThreshold, DefaultLowTotalThreshold)

	seen := make(map[string]struct{}, len(programs))
	var duplicates, fallbacks, capDropped int
	for _, p := range programs {
		if results.full(capacity) {
			break
		}
		key := helpers.LinkKey(p.SourceLink)
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}

		bucket, usedFallback := Classify(p)
		if usedFallback {
			fallbacks++
		}
		if len(results.Get(bucket)) >= capacity {
			capDropped++
			continue
		}
		results.add(bucket, p)
	}

	var warnings []string
	if duplicates > 0 {
		warnings = append(warnings, stageWarning(StageOrganize, fmt.Sprintf("Removed %d duplicate program(s).", duplicates)))
	}
	if fallbacks > 0 {
		warnings = append(warnings, stageWarning(StageOrganize, fmt.Sprintf("%d program(s) bucketed by keyword heuristic because duration was missing or unclear.", fallbacks)))
	}
	if capDropped > 0 {
		warnings = append(warnings, stageWarning(StageOrganize, fmt.Sprintf("%d program(s) dropped because their bucket reached the limit of %d.", capDropped, capacity)))
	}
	var empty []string
	for _, b := range AllBuckets {
		if len(results.Get(b)) == 0 {
			empty = append(empty, string(b))
		}
	}
	if len(empty) > 0 {
		warnings = append(warnings, stageWarning(StageOrganize, "Empty bucket(s): "+strings.Join(empty, ", ")+"."))
	}
	if total := results.Total(); total < lowTotal {
		warnings = append(warnings, stageWarning(StageOrganize, fmt.Sprintf("Only %d program(s) found in total; results may be limited.", total)))
	}
	return results, warnings
}

func (b Buckets) full(capacity int) bool {
	return len(b.ShortTerm) >= capacity && len(b.MediumTerm) >= capacity && len(b.LongTerm) >= capacity
}

// Classify picks the bucket for p. The second result reports whether the
// keyword fallback was used because no duration could be parsed.
func Classify(p ProgramRecord) (Bucket, bool) {
	if weeks, ok := DurationWeeks(p.Duration); ok {
		switch {
		case weeks <= shortTermMaxWeeks:
			return ShortTerm, false
		case weeks <= mediumTermMaxWeeks:
			return MediumTerm, false
		default:
			return LongTerm, false
		}
	}
	return classifyByKeywords(p.Provider + " " + p.ProgramName), true
}

// DurationWeeks parses the first magnitude+unit found in text and converts
// it to weeks.
func DurationWeeks(text string) (float64, bool) {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "day":
		return n / daysPerWeek, true
	case "week":
		return n, true
	case "month":
		return n * weeksPerMonth, true
	case "year":
		return n * weeksPerYear, true
	}
	return 0, false
}

func classifyByKeywords(text string) Bucket {
	text = strings.ToLower(text)
	for _, kw := range longTermKeywords {
		if strings.Contains(text, kw) {
			return LongTerm
		}
	}
	for _, kw := range shortTermKeywords {
		if strings.Contains(text, kw) {
			return ShortTerm
		}
	}
	return MediumTerm
}
