package labels

import (
	"sync"

	"go.uber.org/zap"
)

// Resolver looks up the label of a reading's timestamp. One resolver is
// scoped to one run: each missing date is reported once.
type Resolver struct {
	index  *Index
	logger *zap.Logger

	mu      sync.Mutex
	missing map[string]struct{}
}

// NewResolver creates a resolver over a fully built index
func NewResolver(index *Index, logger *zap.Logger) *Resolver {
	return &Resolver{
		index:   index,
		logger:  logger,
		missing: make(map[string]struct{}),
	}
}

// DateKey returns the date key of ts in the index's zone
func (r *Resolver) DateKey(ts int64) string {
	return DateKey(ts, r.index.loc)
}

// Resolve returns the label of the first event equal to ts, or of the first
// event after ts that is not the date's first event. Events are scanned in
// insertion order, which is not necessarily sorted, so the scan stays linear.
func (r *Resolver) Resolve(ts int64) (string, bool) {
	date := r.DateKey(ts)
	d := r.index.Date(date)
	if d == nil {
		r.reportMissing(date)
		return "", false
	}

	for i, t := range d.Timestamps {
		if t == ts || (t > ts && i > 0) {
			return d.Labels[i], true
		}
	}
	return "", false
}

// MissingDates returns the dates that had no merged output during this run
func (r *Resolver) MissingDates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	dates := make([]string, 0, len(r.missing))
	for d := range r.missing {
		dates = append(dates, d)
	}
	return dates
}

func (r *Resolver) reportMissing(date string) {
	r.mu.Lock()
	_, seen := r.missing[date]
	if !seen {
		r.missing[date] = struct{}{}
	}
	r.mu.Unlock()

	if !seen {
		r.logger.Warn("merged output for date not found", zap.String("date", date))
	}
}
