package main

import (
	"fmt"
	"io"
	"strings"

	"ai-debate-graph-service/internal/models"
)

// printDebate renders a debate the way an analyst reads it: transcript
// summary, then each argument, then the relations between them.
func printDebate(w io.Writer, d *models.DebateDetail) {
	fmt.Fprintf(w, "Debate %d: %s\n", d.Debate.ID, d.Debate.Title)
	if d.Debate.Description != "" {
		fmt.Fprintln(w, d.Debate.Description)
	}
	fmt.Fprintln(w, "---")

	if t := d.Transcript; t != nil {
		fmt.Fprintln(w, "Transcript Summary:")
		fmt.Fprintf(w, "Total duration: %.1f seconds\n", t.AudioDuration)
		fmt.Fprintf(w, "Number of speakers: %d\n", countSpeakers(t.Utterances))
		fmt.Fprintln(w, "---")
	}

	// Arguments are numbered by position, as the relations refer to them.
	position := make(map[int64]int, len(d.Arguments))
	speaker := make(map[int64]string, len(d.Arguments))

	fmt.Fprintln(w, "Analyzed Arguments:")
	for i, a := range d.Arguments {
		position[a.ID] = i + 1
		speaker[a.ID] = a.Speaker

		fmt.Fprintf(w, "[%d] Speaker %s: %s\n", i+1, a.Speaker, a.ShortName)
		fmt.Fprintf(w, "Argument: %s\n", a.Text)
		fmt.Fprintf(w, "Scheme: %s\n", a.Scheme)
		premises := make([]string, len(a.Premises))
		for j, p := range a.Premises {
			premises[j] = p.Text
		}
		fmt.Fprintf(w, "Premises: %s\n", strings.Join(premises, ", "))
		fmt.Fprintf(w, "Conclusion: %s\n", a.Conclusion)
		fmt.Fprintln(w, "Critical Questions:")
		for _, q := range a.CriticalQuestions {
			fmt.Fprintf(w, "- %s\n", q.Text)
		}
		fmt.Fprintln(w, "---")
	}

	fmt.Fprintln(w, "Argument Relations:")
	if len(d.Relations) == 0 {
		fmt.Fprintln(w, "(none)")
	}
	for _, r := range d.Relations {
		fmt.Fprintf(w, "Argument %d (%s) %ss Argument %d (%s) [%s, %.2f]\n",
			position[r.SourceID], speaker[r.SourceID],
			r.Type,
			position[r.TargetID], speaker[r.TargetID],
			r.Criterion, r.Confidence)
	}
}

func countSpeakers(utterances []models.Utterance) int {
	seen := make(map[string]bool)
	for _, u := range utterances {
		seen[u.Speaker] = true
	}
	return len(seen)
}
