// Package report classifies every word of an alignment document and totals
// the results.
package report

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/japaniel/glosser/pkg/model"
	"github.com/japaniel/glosser/pkg/overlay"
)

// WordSummary is the derived state of one word.
type WordSummary struct {
	Word   string
	Status model.Status
	Gloss  string
}

// LineSummary is the derived state of one alignment line.
type LineSummary struct {
	Index  int
	Words  []WordSummary
	Counts map[model.Status]int
}

// Summary totals a whole document.
type Summary struct {
	Lines  []LineSummary
	Totals map[model.Status]int
	Words  int
}

// Summarize classifies every word on at most workers goroutines. The workers
// read a private clone of the patch store, so the caller may keep editing
// while a report runs; the report reflects the store as of the call. Each
// line's result lands in its own slot, so Lines keeps document order.
func Summarize(ctx context.Context, e *overlay.Engine, doc *model.AlignmentDocument, workers int) (*Summary, error) {
	out := &Summary{Totals: make(map[model.Status]int)}
	if doc == nil || len(doc.Alignments) == 0 {
		return out, nil
	}
	if workers < 1 {
		workers = 1
	}

	snapshot := overlay.New(e.Glossary, e.Rules, e.Store.Clone())
	out.Lines = make([]LineSummary, len(doc.Alignments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range doc.Alignments {
		idx := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("line %d: %w", idx, err)
			}
			out.Lines[idx] = summarizeLine(snapshot, idx, doc.Alignments[idx])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, line := range out.Lines {
		for status, n := range line.Counts {
			out.Totals[status] += n
		}
		out.Words += len(line.Words)
	}
	return out, nil
}

func summarizeLine(e *overlay.Engine, idx int, line model.AlignmentLine) LineSummary {
	ls := LineSummary{
		Index:  idx,
		Words:  make([]WordSummary, 0, len(line.Words)),
		Counts: make(map[model.Status]int),
	}
	for _, w := range line.Words {
		status := e.Classify(idx, w)
		ls.Words = append(ls.Words, WordSummary{
			Word:   w.Word,
			Status: status,
			Gloss:  e.AggregateGloss(idx, w),
		})
		ls.Counts[status]++
	}
	return ls
}
