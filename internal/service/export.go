package service

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/mohammad-safakhou/learnpath/internal/agent/core"
)

var csvHeader = []string{
	"bucket", "program_name", "provider", "topics_covered", "format", "duration",
	"cost", "prerequisites", "location", "who_this_is_for", "source_link", "citation",
}

// WriteCSV writes every program with its bucket, in bucket display order.
func WriteCSV(w io.Writer, r Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range core.AllBuckets {
		for _, p := range r.Get(b) {
			row := []string{
				string(b), p.ProgramName, p.Provider, strings.Join(p.TopicsCovered, "; "), p.Format, p.Duration,
				p.Cost, p.Prerequisites, p.Location, p.WhoThisIsFor, p.SourceLink, p.Citation,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
