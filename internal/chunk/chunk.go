// Package chunk implements the Chunker (C2): splitting extracted text into
// overlapping, densely-indexed chunks, preferring paragraph then sentence
// boundaries before falling back to a hard split. The sliding-window
// mechanics generalize document-chunker/main.go's createSlidingWindowChunks,
// replacing its single ad hoc "last period" heuristic with the full
// paragraph -> sentence -> hard-split preference order spec.md §4.2 requires.
package chunk

import (
	"strings"
)

// Options configures the chunker; Size and Overlap are already clamped by
// model.Options.Clamp before reaching here.
type Options struct {
	Size    int // target window, in runes
	Overlap int
}

// DefaultOptions matches spec.md §4.2's defaults.
var DefaultOptions = Options{Size: 1200, Overlap: 200}

// Draft is one chunk before it is wrapped into a model.Chunk by the
// orchestrator (which owns session_id/chunk_id/timestamps).
type Draft struct {
	Index int
	Text  string
}

// Chunk splits text into an ordered, dense sequence of Drafts.
//
// It never returns an empty-text input as a chunk: callers are expected to
// have already rejected empty extraction per spec.md's "empty content"
// failure mode (testable property 11); Chunk itself just handles the
// boundary math for non-empty text.
func Chunk(text string, opts Options) []Draft {
	if opts.Size <= 0 {
		opts.Size = DefaultOptions.Size
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		opts.Overlap = DefaultOptions.Overlap
		if opts.Overlap >= opts.Size {
			opts.Overlap = 0
		}
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var drafts []Draft
	stride := opts.Size - opts.Overlap
	if stride <= 0 {
		stride = opts.Size
	}

	for start := 0; start < n; {
		end := start + opts.Size
		if end >= n {
			end = n
		} else {
			end = preferredBoundary(runes, start, end)
		}
		if end <= start {
			end = start + 1
		}
		drafts = append(drafts, Draft{Index: len(drafts), Text: string(runes[start:end])})
		if end >= n {
			break
		}
		next := end - opts.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return drafts
}

// preferredBoundary looks for the best place to end a chunk window that
// starts at `start` and whose hard limit is `limit` (exclusive), in this
// order: last paragraph break, then last sentence end, then the hard limit
// itself. It never returns something <= start+1/2 of the window, to avoid
// degenerate near-empty chunks when a boundary occurs very early.
func preferredBoundary(runes []rune, start, limit int) int {
	window := runes[start:limit]
	minAcceptable := len(window) / 2

	if idx := lastIndex(window, []rune("\n\n")); idx > minAcceptable {
		return start + idx + 2
	}
	if idx := lastSentenceEnd(window); idx > minAcceptable {
		return start + idx
	}
	return limit
}

// lastSentenceEnd finds the end of the last ". "/"! "/"? " (or end-of-line)
// within window, returning an index just past the punctuation.
func lastSentenceEnd(window []rune) int {
	best := -1
	s := string(window)
	for _, term := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if idx := strings.LastIndex(s, term); idx > best {
			best = idx + 1 // keep the punctuation, drop the trailing space/newline
		}
	}
	if best < 0 {
		return -1
	}
	return len([]rune(s[:best]))
}

func lastIndex(window []rune, sep []rune) int {
	s := string(window)
	idx := strings.LastIndex(s, string(sep))
	if idx < 0 {
		return -1
	}
	return len([]rune(s[:idx]))
}
