package domain

import (
	"slices"
)

// IDSet is a set of alert ids.
type IDSet map[string]struct{}

// IDsOf collects the ids of alerts.
func IDsOf(alerts []AlertRecord) IDSet {
	set := make(IDSet, len(alerts))
	for _, a := range alerts {
		set[a.ID] = struct{}{}
	}
	return set
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// MergeAlerts returns the union of stored and fresh alerts with at most one
// record per id. The first occurrence wins; content for a given id is
// reproducible, so which duplicate survives does not matter.
func MergeAlerts(stored, fresh []AlertRecord) []AlertRecord {
	seen := make(IDSet, len(stored)+len(fresh))
	out := make([]AlertRecord, 0, len(stored)+len(fresh))
	for _, list := range [][]AlertRecord{stored, fresh} {
		for _, a := range list {
			if seen.Has(a.ID) {
				continue
			}
			seen[a.ID] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// SortNewestFirst orders alerts by descending timestamp in place. Alerts with
// equal timestamps keep their relative order.
func SortNewestFirst(alerts []AlertRecord) {
	slices.SortStableFunc(alerts, func(a, b AlertRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

// CandidateAlerts extracts the alert records from evaluated candidates.
func CandidateAlerts(cands []Candidate) []AlertRecord {
	out := make([]AlertRecord, len(cands))
	for i, c := range cands {
		out[i] = c.Alert
	}
	return out
}
