package reconcile

import (
	"github.com/gchickering21/downballot/internal/dataset"
)

// Merge unions snapshot rows with freshly fetched rows, dropping rows whose
// content fields are fully identical. Only byte-identical rows collapse:
// two fetches of the same date may legitimately differ when the source
// published corrections, and both versions are kept.
//
// Snapshot rows win ties, and first-occurrence order is preserved, so
// Merge(s, Merge(s, f)) == Merge(s, f).
func Merge(snapshot, fetched dataset.Rows) dataset.Rows {
	out := make(dataset.Rows, 0, len(snapshot)+len(fetched))
	seen := make(map[string]struct{}, len(snapshot)+len(fetched))

	for _, rows := range []dataset.Rows{snapshot, fetched} {
		for i := range rows {
			key := rows[i].Hash()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, rows[i])
		}
	}

	return out
}
