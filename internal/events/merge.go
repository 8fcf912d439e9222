package events

import "sort"

// Merge combines snapshots from multiple emitters into one stable timeline.
//
// Ordering: primarily by Timestamp ascending; ties are broken by Emitter
// name, then by each event's original insertion sequence within its
// emitter. This makes the merged order independent of which recorder's
// Snapshot happened to be read first.
func Merge(snapshots ...[]Event) []Event {
	total := 0
	for _, s := range snapshots {
		total += len(s)
	}
	out := make([]Event, 0, total)
	for _, s := range snapshots {
		out = append(out, s...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.emitter != b.emitter {
			return a.emitter < b.emitter
		}
		return a.seq < b.seq
	})
	return out
}
