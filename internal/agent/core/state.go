package core

// Field names a mergeable State field.
type Field string

const (
	FieldRawLeads          Field = "raw_leads"
	FieldExtractedPrograms Field = "extracted_programs"
	FieldResults           Field = "results"
	FieldWarnings          Field = "warnings"
)

// MergeStrategy says how a stage update combines with the snapshot.
type MergeStrategy int

const (
	// Overwrite replaces the snapshot value outright.
	Overwrite MergeStrategy = iota
	// Append concatenates the update onto the snapshot value.
	Append
)

func (m MergeStrategy) String() string {
	if m == Append {
		return "append"
	}
	return "overwrite"
}

// fieldStrategies is the per-field merge table. Fields missing here overwrite.
var fieldStrategies = map[Field]MergeStrategy{
	FieldRawLeads:          Append,
	FieldExtractedPrograms: Append,
	FieldWarnings:          Append,
	FieldResults:           Overwrite,
}

// StrategyFor returns the merge strategy registered for f.
func StrategyFor(f Field) MergeStrategy {
	if s, ok := fieldStrategies[f]; ok {
		return s
	}
	return Overwrite
}

// State is the pipeline snapshot threaded through the stages.
type State struct {
	RequestID         string          `json:"request_id"`
	Input             Input           `json:"input"`
	RawLeads          []Lead          `json:"raw_leads"`
	ExtractedPrograms []ProgramRecord `json:"extracted_programs"`
	Results           Buckets         `json:"results"`
	Warnings          []string        `json:"warnings"`
}

// NewState creates the initial snapshot with empty collections.
func NewState(requestID string, in Input) State {
	return State{
		RequestID:         requestID,
		Input:             in,
		RawLeads:          []Lead{},
		ExtractedPrograms: []ProgramRecord{},
		Results:           EmptyBuckets(),
		Warnings:          []string{},
	}
}

// Update is the partial output of one stage. Nil fields are absent and
// leave the snapshot untouched.
type Update struct {
	RawLeads          []Lead
	ExtractedPrograms []ProgramRecord
	Results           *Buckets
	Warnings          []string
}

// Fields lists the fields present in u, in a stable order.
func (u Update) Fields() []Field {
	var out []Field
	if u.RawLeads != nil {
		out = append(out, FieldRawLeads)
	}
	if u.ExtractedPrograms != nil {
		out = append(out, FieldExtractedPrograms)
	}
	if u.Results != nil {
		out = append(out, FieldResults)
	}
	if u.Warnings != nil {
		out = append(out, FieldWarnings)
	}
	return out
}

// Merge returns a new snapshot with u applied field by field according to
// the merge table. s is not modified.
func (s State) Merge(u Update) State {
	out := s.clone()
	for _, f := range u.Fields() {
		switch StrategyFor(f) {
		case Append:
			out.appendField(f, u)
		default:
			out.overwriteField(f, u)
		}
	}
	return out
}

func (s *State) appendField(f Field, u Update) {
	switch f {
	case FieldRawLeads:
		s.RawLeads = append(s.RawLeads, u.RawLeads...)
	case FieldExtractedPrograms:
		s.ExtractedPrograms = append(s.ExtractedPrograms, u.ExtractedPrograms...)
	case FieldWarnings:
		s.Warnings = append(s.Warnings, u.Warnings...)
	case FieldResults:
		s.Results.ShortTerm = append(s.Results.ShortTerm, u.Results.ShortTerm...)
		s.Results.MediumTerm = append(s.Results.MediumTerm, u.Results.MediumTerm...)
		s.Results.LongTerm = append(s.Results.LongTerm, u.Results.LongTerm...)
	}
}

func (s *State) overwriteField(f Field, u Update) {
	switch f {
	case FieldRawLeads:
		s.RawLeads = cloneSlice(u.RawLeads)
	case FieldExtractedPrograms:
		s.ExtractedPrograms = cloneSlice(u.ExtractedPrograms)
	case FieldWarnings:
		s.Warnings = cloneSlice(u.Warnings)
	case FieldResults:
		s.Results = u.Results.clone()
	}
}

func (s State) clone() State {
	out := s
	if s.Input.Prefs != nil {
		p := *s.Input.Prefs
		out.Input.Prefs = &p
	}
	out.RawLeads = cloneSlice(s.RawLeads)
	out.ExtractedPrograms = cloneSlice(s.ExtractedPrograms)
	out.Results = s.Results.clone()
	out.Warnings = cloneSlice(s.Warnings)
	return out
}
