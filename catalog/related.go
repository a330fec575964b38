package catalog

import "slices"

// DefaultRelatedLimit is the number of related items returned when no limit is given.
const DefaultRelatedLimit = 6

// Related ranks candidates by the number of tags they share with seed,
// breaking ties by popularity. The seed itself and candidates sharing no
// tag are left out.
func Related[T Record](seed T, candidates []T, limit int) []T {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	seedTags := tagSet(seed.TagList())
	if len(seedTags) == 0 {
		return []T{}
	}

	type scored struct {
		item  T
		score int
	}
	var ranked []scored
	for _, c := range candidates {
		if c.RecordID() == seed.RecordID() {
			continue
		}
		score := 0
		for t := range tagSet(c.TagList()) {
			if _, ok := seedTags[t]; ok {
				score++
			}
		}
		if score == 0 {
			continue
		}
		ranked = append(ranked, scored{item: c, score: score})
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return b.item.Popularity() - a.item.Popularity()
	})

	out := make([]T, 0, min(limit, len(ranked)))
	for i := 0; i < len(ranked) && i < limit; i++ {
		out = append(out, ranked[i].item)
	}
	return out
}
