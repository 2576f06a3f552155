// CLAUDE:SUMMARY Range planner: dense ID range minus resume watermark and already-persisted IDs.
// Package plan produces the sequence of signal IDs a run will visit.
package plan

import "fmt"

// Options adjusts how the requested [start,end] range is narrowed.
type Options struct {
	// Resume moves the effective start past the progress watermark.
	Resume    bool
	Watermark int64

	// SkipExisting removes IDs already present in the record store.
	// Existing is the batched ID set queried from the store.
	SkipExisting bool
	Existing     map[int64]struct{}
}

// IDs returns the strictly ascending, duplicate-free sequence of signal IDs
// for a run. An empty result is a valid terminal outcome, not an error.
func IDs(start, end int64, opts Options) ([]int64, error) {
	if start < 1 {
		return nil, fmt.Errorf("plan: start must be positive, got %d", start)
	}
	if end < start {
		return nil, fmt.Errorf("plan: end %d precedes start %d", end, start)
	}

	effective := start
	if opts.Resume && opts.Watermark+1 > effective {
		effective = opts.Watermark + 1
	}
	if effective > end {
		return []int64{}, nil
	}

	ids := make([]int64, 0, end-effective+1)
	for id := effective; id <= end; id++ {
		if opts.SkipExisting {
			if _, ok := opts.Existing[id]; ok {
				continue
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
