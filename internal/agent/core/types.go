package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoSearchProvider = errors.New("search provider not configured")
	ErrNoExtractor      = errors.New("content extractor not configured")
	ErrNoRecordParser   = errors.New("record parser not configured")
)

// NotSpecified is the sentinel for missing or unclear record fields.
const NotSpecified = "Not specified"

// Accepted preference values.
var (
	Formats = []string{"online", "in-person", "hybrid"}
	Goals   = []string{"hobby", "career", "skill improvement"}
	Budgets = []string{"free", "low-cost", "paid"}
)

// Prefs are optional user preferences used to boost search queries.
type Prefs struct {
	Format string `json:"format,omitempty"`
	Goal   string `json:"goal,omitempty"`
	Budget string `json:"budget,omitempty"`
	City   string `json:"city,omitempty"`
}

// Input is the immutable user request fed to the pipeline.
type Input struct {
	Query string `json:"query"`
	Prefs *Prefs `json:"prefs,omitempty"`
}

// Normalize trims the query and preference values. Empty preference values
// are cleared; a Prefs with nothing left becomes nil.
func (in Input) Normalize() Input {
	out := Input{Query: strings.TrimSpace(in.Query)}
	if in.Prefs == nil {
		return out
	}
	p := Prefs{
		Format: strings.TrimSpace(in.Prefs.Format),
		Goal:   strings.TrimSpace(in.Prefs.Goal),
		Budget: strings.TrimSpace(in.Prefs.Budget),
		City:   strings.TrimSpace(in.Prefs.City),
	}
	if p != (Prefs{}) {
		out.Prefs = &p
	}
	return out
}

// Validate checks the query is non-empty and preference values are known.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Query) == "" {
		return fmt.Errorf("%w: query must not be empty", ErrInvalidInput)
	}
	if in.Prefs == nil {
		return nil
	}
	if err := oneOf("format", in.Prefs.Format, Formats); err != nil {
		return err
	}
	if err := oneOf("goal", in.Prefs.Goal, Goals); err != nil {
		return err
	}
	return oneOf("budget", in.Prefs.Budget, Budgets)
}

func oneOf(field, v string, allowed []string) error {
	if v == "" {
		return nil
	}
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%w: prefs.%s must be one of %s", ErrInvalidInput, field, strings.Join(allowed, ", "))
}

// Lead is a candidate page surfaced by search.
type Lead struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Source  string `json:"source,omitempty"`
}

// ProgramRecord is one normalised learning program extracted from a page.
type ProgramRecord struct {
	ProgramName   string   `json:"program_name"`
	Provider      string   `json:"provider"`
	TopicsCovered []string `json:"topics_covered"`
	Format        string   `json:"format"`
	Duration      string   `json:"duration"`
	CostUSD       *float64 `json:"cost_usd"`
	CostText      string   `json:"cost_text"`
	Prerequisites string   `json:"prerequisites"`
	Location      string   `json:"location"`
	WhoThisIsFor  string   `json:"who_this_is_for"`
	SourceLink    string   `json:"source_link"`
	Citation      string   `json:"citation"`
}

// Bucket names one of the three recommendation horizons.
type Bucket string

const (
	ShortTerm  Bucket = "short_term"
	MediumTerm Bucket = "medium_term"
	LongTerm   Bucket = "long_term"
)

// AllBuckets lists buckets in display order.
var AllBuckets = []Bucket{ShortTerm, MediumTerm, LongTerm}

// Buckets holds the categorised results.
type Buckets struct {
	ShortTerm  []ProgramRecord `json:"short_term"`
	MediumTerm []ProgramRecord `json:"medium_term"`
	LongTerm   []ProgramRecord `json:"long_term"`
}

// EmptyBuckets returns buckets with non-nil empty lists so they encode as [].
func EmptyBuckets() Buckets {
	return Buckets{ShortTerm: []ProgramRecord{}, MediumTerm: []ProgramRecord{}, LongTerm: []ProgramRecord{}}
}

// Get returns the records in the named bucket.
func (b Buckets) Get(name Bucket) []ProgramRecord {
	switch name {
	case ShortTerm:
		return b.ShortTerm
	case MediumTerm:
		return b.MediumTerm
	case LongTerm:
		return b.LongTerm
	}
	return nil
}

func (b *Buckets) add(name Bucket, rec ProgramRecord) {
	switch name {
	case ShortTerm:
		b.ShortTerm = append(b.ShortTerm, rec)
	case MediumTerm:
		b.MediumTerm = append(b.MediumTerm, rec)
	case LongTerm:
		b.LongTerm = append(b.LongTerm, rec)
	}
}

// Counts returns the size of each bucket keyed by name.
func (b Buckets) Counts() map[Bucket]int {
	return map[Bucket]int{
		ShortTerm:  len(b.ShortTerm),
		MediumTerm: len(b.MediumTerm),
		LongTerm:   len(b.LongTerm),
	}
}

// Total is the combined size of all buckets.
func (b Buckets) Total() int {
	return len(b.ShortTerm) + len(b.MediumTerm) + len(b.LongTerm)
}

func (b Buckets) clone() Buckets {
	return Buckets{
		ShortTerm:  cloneSlice(b.ShortTerm),
		MediumTerm: cloneSlice(b.MediumTerm),
		LongTerm:   cloneSlice(b.LongTerm),
	}
}

// Stage identifies a pipeline step.
type Stage string

const (
	StageScout    Stage = "scout"
	StageExtract  Stage = "extract"
	StageOrganize Stage = "organize"
)

// DisplayName is the human label used to prefix warnings.
func (s Stage) DisplayName() string {
	switch s {
	case StageScout:
		return "Adaptive Scout"
	case StageExtract:
		return "Extraction Specialist"
	case StageOrganize:
		return "Path Organizer"
	}
	return string(s)
}

// RunCounts are running totals taken from the merged snapshot.
type RunCounts struct {
	RawLeads          int `json:"raw_leads"`
	ExtractedPrograms int `json:"extracted_programs"`
}

// RunSummary is the counts summary carried by an audit record.
type RunSummary struct {
	Counts       RunCounts      `json:"counts"`
	SelectedURLs []string       `json:"selected_urls,omitempty"`
	BucketCounts map[Bucket]int `json:"bucket_counts,omitempty"`
}

// AuditRecord describes one stage execution.
type AuditRecord struct {
	RequestID string     `json:"request_id"`
	AgentName Stage      `json:"agent_name"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
	Summary   RunSummary `json:"output_summary"`
	Warnings  []string   `json:"warnings"`
	Error     *string    `json:"error"`
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
