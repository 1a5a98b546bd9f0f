package dsl

import (
	"sort"
	"strings"

	"github.com/yourorg/strategy-sync/internal/model"
)

// Merge splices comments back into rendered text. Comments are grouped by
// their target line and inserted immediately before it; comments whose line
// exceeds the rendered length are appended at the end rather than dropped.
func Merge(rendered string, comments []model.Comment) string {
	if len(comments) == 0 {
		return rendered
	}
	trailingNewline := strings.HasSuffix(rendered, "\n")
	lines := strings.Split(strings.TrimSuffix(rendered, "\n"), "\n")

	sorted := append([]model.Comment(nil), comments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Column < sorted[j].Column
	})

	byLine := map[int][]model.Comment{}
	var overflow []model.Comment
	for _, c := range sorted {
		if c.Line > len(lines) {
			overflow = append(overflow, c)
			continue
		}
		byLine[c.Line] = append(byLine[c.Line], c)
	}

	var out []string
	for i, line := range lines {
		for _, c := range byLine[i+1] {
			out = append(out, renderComment(c))
		}
		out = append(out, line)
	}
	for _, c := range overflow {
		out = append(out, renderComment(c))
	}

	merged := strings.Join(out, "\n")
	if trailingNewline {
		merged += "\n"
	}
	return merged
}

func renderComment(c model.Comment) string {
	indent := c.Column - 1
	if indent < 0 {
		indent = 0
	}
	if c.Text == "" {
		return strings.Repeat(" ", indent) + string(CommentMarker)
	}
	return strings.Repeat(" ", indent) + string(CommentMarker) + " " + c.Text
}

// PreservationReport is the outcome of comparing comment text sets across a
// transform. Used as a test oracle, not a runtime gate: a user's edit may
// legitimately remove the line a comment was attached to.
type PreservationReport struct {
	Ok      bool
	Missing []string
	Added   []string
}

// ValidatePreservation compares the comment texts of two documents,
// ignoring order and position.
func ValidatePreservation(before, after string) PreservationReport {
	beforeSet := commentTextCounts(before)
	afterSet := commentTextCounts(after)

	report := PreservationReport{Ok: true}
	for text, n := range beforeSet {
		if afterSet[text] < n {
			report.Missing = append(report.Missing, text)
			report.Ok = false
		}
	}
	for text, n := range afterSet {
		if beforeSet[text] < n {
			report.Added = append(report.Added, text)
			report.Ok = false
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Added)
	return report
}

func commentTextCounts(text string) map[string]int {
	counts := map[string]int{}
	for _, c := range ExtractComments(text) {
		counts[c.Text]++
	}
	return counts
}
