// Package rotation picks the bounded set of records shown each cycle and
// moves records through PUBLISHED and ARCHIVED.
package rotation

import (
	"sort"
	"time"

	"github.com/deusflow/signalfeed/internal/content"
)

// Policy says which records of a pool are eligible.
type Policy struct {
	// Lookback bounds how old (by PublishedAt) an eligible record may be.
	Lookback time.Duration
	// Cooldown excludes records selected less than this long ago.
	Cooldown time.Duration
	// NeverReuse excludes every record that was ever selected.
	NeverReuse bool
	// Verticals is the round-robin order of the diversity pass. Empty means
	// the canonical enumeration.
	Verticals []content.Vertical
}

func (p Policy) eligible(r *content.Record, now time.Time) bool {
	if p.Lookback > 0 && r.PublishedAt.Before(now.Add(-p.Lookback)) {
		return false
	}
	if p.NeverReuse {
		return r.LastSelectedAt == nil
	}
	return !r.SelectedWithin(p.Cooldown, now)
}

// SelectForPublication returns up to count eligible records. The first pass
// takes the newest record of each vertical in enumeration order; the second
// fills the remaining slots newest first regardless of vertical.
func SelectForPublication(pool []content.Record, count int, p Policy, now time.Time) []content.Record {
	if count <= 0 {
		return nil
	}

	candidates := make([]content.Record, 0, len(pool))
	for i := range pool {
		if p.eligible(&pool[i], now) {
			candidates = append(candidates, pool[i])
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})

	verticals := p.Verticals
	if len(verticals) == 0 {
		verticals = content.Verticals()
	}

	taken := make([]bool, len(candidates))
	selected := make([]content.Record, 0, min(count, len(candidates)))

	for _, v := range verticals {
		if len(selected) == count {
			return selected
		}
		for i := range candidates {
			if !taken[i] && candidates[i].Vertical == v {
				taken[i] = true
				selected = append(selected, candidates[i])
				break
			}
		}
	}

	for i := range candidates {
		if len(selected) == count {
			break
		}
		if !taken[i] {
			taken[i] = true
			selected = append(selected, candidates[i])
		}
	}
	return selected
}
