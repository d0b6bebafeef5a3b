// Package header computes the summary stored alongside each base snapshot.
package header

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/casework/deltatree"
)

// Calculator fills Header.Fields from configured template paths such as
// [intake personal fullName]. Several matches are joined with ", ".
type Calculator struct {
	paths  map[string][]string
	logger *slog.Logger
}

// NewCalculator creates a calculator for the given header name to template path map.
func NewCalculator(paths map[string][]string, logger *slog.Logger) *Calculator {
	return &Calculator{paths: paths, logger: logger}
}

// Recalculate returns a copy of snapshot with a fresh header. The input is
// not modified.
func (c *Calculator) Recalculate(userID string, snapshot *deltatree.SaveFile) *deltatree.SaveFile {
	out := snapshot.Clone()
	out.Header = deltatree.Header{
		DocumentCount: len(snapshot.Documents),
		UpdatedAt:     snapshot.SaveFileTimestamp,
	}

	for _, name := range slices.Sorted(maps.Keys(c.paths)) {
		fields := deltatree.ResolveFieldsByTemplatePath(snapshot, c.paths[name])
		if len(fields) == 0 {
			continue
		}
		values := make([]string, 0, len(fields))
		for _, f := range fields {
			if f.Value != "" {
				values = append(values, f.Value)
			}
		}
		if len(values) == 0 {
			continue
		}
		if out.Header.Fields == nil {
			out.Header.Fields = make(map[string]string, len(c.paths))
		}
		out.Header.Fields[name] = strings.Join(values, ", ")
	}

	c.logger.Debug("header recalculated",
		"user", userID,
		"participant", snapshot.ParticipantID,
		"documents", out.Header.DocumentCount,
		"fields", len(out.Header.Fields))
	return out
}
