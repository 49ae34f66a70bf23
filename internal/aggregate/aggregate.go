// Package aggregate merges per-file ParseResults into one combined
// ParsedLog, preserving error file-path provenance.
package aggregate

import (
	"sort"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// MergeParsedLogs combines any number of ParsedLogs into one, with
// entries re-sorted chronologically across the whole set. Returns nil
// if logs is empty.
func MergeParsedLogs(logs []*signal.ParsedLog) *signal.ParsedLog {
	var nonNil []*signal.ParsedLog
	for _, l := range logs {
		if l != nil {
			nonNil = append(nonNil, l)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}

	var entries []signal.LogEntry
	for _, l := range nonNil {
		entries = append(entries, l.Entries...)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })

	return signal.NewParsedLog(entries)
}

// FileResult pairs a file path with the ParseResult obtained parsing it,
// used to keep merge order stable and deterministic.
type FileResult struct {
	FilePath string
	Result   *signal.ParseResult
}

// MergeParseResults merges per-file ParseResults keyed (ordered) by file
// path, ensuring every error carries its originating file's path and
// synthesizing a line-0 error for files that failed without reporting
// any.
func MergeParseResults(results []FileResult) *signal.ParseResult {
	var logs []*signal.ParsedLog
	var errs []signal.ParseError

	for _, fr := range results {
		res := fr.Result
		if res == nil {
			errs = append(errs, signal.ParseError{Reason: "Parsing failed with no additional details", FilePath: fr.FilePath})
			continue
		}
		if res.Data != nil {
			logs = append(logs, res.Data)
		}
		for _, e := range res.Errors {
			if e.FilePath == "" {
				e.FilePath = fr.FilePath
			}
			errs = append(errs, e)
		}
		if !res.Success() && len(res.Errors) == 0 {
			errs = append(errs, signal.ParseError{Reason: "Parsing failed with no additional details", FilePath: fr.FilePath})
		}
	}

	merged := MergeParsedLogs(logs)
	return &signal.ParseResult{Data: merged, Errors: errs}
}
