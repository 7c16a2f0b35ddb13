package service

import (
	"time"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
)

// Program is the outward shape of a program record. The free-text cost is
// exposed as cost; the parsed amount stays internal.
type Program struct {
	ProgramName   string   `json:"program_name"`
	Provider      string   `json:"provider"`
	TopicsCovered []string `json:"topics_covered"`
	Format        string   `json:"format"`
	Duration      string   `json:"duration"`
	Cost          string   `json:"cost"`
	Prerequisites string   `json:"prerequisites"`
	Location      string   `json:"location"`
	WhoThisIsFor  string   `json:"who_this_is_for"`
	SourceLink    string   `json:"source_link"`
	Citation      string   `json:"citation"`
}

type Results struct {
	ShortTerm  []Program `json:"short_term"`
	MediumTerm []Program `json:"medium_term"`
	LongTerm   []Program `json:"long_term"`
}

// Get returns the programs of the named bucket.
func (r Results) Get(b core.Bucket) []Program {
	switch b {
	case core.ShortTerm:
		return r.ShortTerm
	case core.MediumTerm:
		return r.MediumTerm
	case core.LongTerm:
		return r.LongTerm
	}
	return nil
}

type Response struct {
	RequestID string   `json:"request_id"`
	Results   Results  `json:"results"`
	Warnings  []string `json:"warnings"`
}

// Status is the stored view of a request.
type Status struct {
	RequestID   string      `json:"request_id"`
	Status      string      `json:"status"`
	Query       string      `json:"query"`
	Prefs       *core.Prefs `json:"prefs,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Results     *Results    `json:"results"`
	Warnings    []string    `json:"warnings"`
	Error       *string     `json:"error"`
	ResultError *string     `json:"result_error,omitempty"`
}

func ToProgram(r core.ProgramRecord) Program {
	topics := r.TopicsCovered
	if topics == nil {
		topics = []string{}
	}
	return Program{
		ProgramName:   r.ProgramName,
		Provider:      r.Provider,
		TopicsCovered: topics,
		Format:        r.Format,
		Duration:      r.Duration,
		Cost:          r.CostText,
		Prerequisites: r.Prerequisites,
		Location:      r.Location,
		WhoThisIsFor:  r.WhoThisIsFor,
		SourceLink:    r.SourceLink,
		Citation:      r.Citation,
	}
}

func ToResults(b core.Buckets) Results {
	conv := func(in []core.ProgramRecord) []Program {
		out := make([]Program, 0, len(in))
		for _, r := range in {
			out = append(out, ToProgram(r))
		}
		return out
	}
	return Results{
		ShortTerm:  conv(b.ShortTerm),
		MediumTerm: conv(b.MediumTerm),
		LongTerm:   conv(b.LongTerm),
	}
}
