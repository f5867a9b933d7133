// Package align attributes recognized words to diarized speakers. It is a
// pure function: no network, disk, or clock access, and it never mutates its
// inputs.
package align

import (
	"sort"
	"time"
)

// Word is one recognized token with a global (job-relative) time range.
type Word struct {
	Word  string
	Start float64
	End   float64
}

// Turn is one diarization turn: a speaker label over a time range.
type Turn struct {
	Speaker string
	Start   float64
	End     float64
}

// Segment is a run of consecutive words attributed to the same speaker.
type Segment struct {
	Speaker string
	Start   float64
	End     float64
	Text    string
}

// Options tunes the fallback and merge behavior of Align.
type Options struct {
	// GapMergeThreshold joins consecutive same-speaker runs separated by a
	// gap no larger than this. Zero means the default of 2s.
	GapMergeThreshold time.Duration
	// TieBreakWindow bounds the zero-overlap nearest-boundary fallback.
	// Zero means the default of 2s.
	TieBreakWindow time.Duration
}

const (
	defaultGapMergeThreshold = 2 * time.Second
	defaultTieBreakWindow    = 2 * time.Second
	unknownSpeaker           = "UNKNOWN"
)

func (o Options) gapMergeThreshold() float64 {
	if o.GapMergeThreshold <= 0 {
		return defaultGapMergeThreshold.Seconds()
	}
	return o.GapMergeThreshold.Seconds()
}

func (o Options) tieBreakWindow() float64 {
	if o.TieBreakWindow <= 0 {
		return defaultTieBreakWindow.Seconds()
	}
	return o.TieBreakWindow.Seconds()
}

// Align assigns each word a speaker and collapses the result into runs.
//
// Per word: argmax of temporal overlap with any turn, ties broken by the
// first turn in start-sorted order; zero overlap falls back to the nearest
// turn boundary within the tie-break window; failing that, inherits the
// previous word's speaker; the first word with no match gets UNKNOWN.
// Runs are then optionally merged across gaps no larger than the gap-merge
// threshold. The second return value counts words resolved via the
// zero-overlap fallback path (nearest-boundary or inherited), for callers
// that want to track how often direct overlap wasn't enough.
func Align(words []Word, turns []Turn, opts Options) ([]Segment, int) {
	if len(words) == 0 {
		return nil, 0
	}

	sortedTurns := make([]Turn, len(turns))
	copy(sortedTurns, turns)
	sort.SliceStable(sortedTurns, func(i, j int) bool {
		return sortedTurns[i].Start < sortedTurns[j].Start
	})

	tieBreakWindow := opts.tieBreakWindow()

	speakers := make([]string, len(words))
	prevSpeaker := ""
	fallbacks := 0
	for i, w := range words {
		speaker, ok := bestOverlapSpeaker(w, sortedTurns)
		if !ok {
			fallbacks++
			speaker, ok = nearestBoundarySpeaker(w, sortedTurns, tieBreakWindow)
		}
		if !ok {
			if prevSpeaker != "" {
				speaker = prevSpeaker
			} else {
				speaker = unknownSpeaker
			}
		}
		speakers[i] = speaker
		prevSpeaker = speaker
	}

	runs := collapseRuns(words, speakers)
	return mergeGaps(runs, opts.gapMergeThreshold()), fallbacks
}

func bestOverlapSpeaker(w Word, turns []Turn) (string, bool) {
	best := -1.0
	bestIdx := -1
	for i, t := range turns {
		ov := overlap(w.Start, w.End, t.Start, t.End)
		if ov > best {
			best = ov
			bestIdx = i
		}
	}
	if bestIdx == -1 || best <= 0 {
		return "", false
	}
	return turns[bestIdx].Speaker, true
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

func nearestBoundarySpeaker(w Word, turns []Turn, window float64) (string, bool) {
	mid := (w.Start + w.End) / 2
	bestDist := window
	bestIdx := -1
	for i, t := range turns {
		d := boundaryDistance(mid, t.Start, t.End)
		if d <= bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return "", false
	}
	return turns[bestIdx].Speaker, true
}

func boundaryDistance(point, start, end float64) float64 {
	if point < start {
		return start - point
	}
	if point > end {
		return point - end
	}
	return 0
}

func collapseRuns(words []Word, speakers []string) []Segment {
	runs := make([]Segment, 0, len(words))
	for i, w := range words {
		if i > 0 && speakers[i] == runs[len(runs)-1].Speaker {
			last := &runs[len(runs)-1]
			last.End = w.End
			last.Text += " " + w.Word
			continue
		}
		runs = append(runs, Segment{
			Speaker: speakers[i],
			Start:   w.Start,
			End:     w.End,
			Text:    w.Word,
		})
	}
	return runs
}

func mergeGaps(runs []Segment, threshold float64) []Segment {
	if len(runs) == 0 {
		return runs
	}
	merged := make([]Segment, 0, len(runs))
	merged = append(merged, runs[0])
	for _, r := range runs[1:] {
		last := &merged[len(merged)-1]
		if r.Speaker == last.Speaker && r.Start-last.End <= threshold {
			last.End = r.End
			last.Text += " " + r.Text
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
