package radar

import (
	"sort"

	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/models"
)

// SelfLists are the current user's lists.
type SelfLists struct {
	UserID string
	Want   []models.TradeListEntry
	Have   []models.TradeListEntry
}

// Candidate is a counterpart with their lists and last-known location.
type Candidate struct {
	Profile models.Profile
	Want    []models.TradeListEntry
	Have    []models.TradeListEntry
}

// ComputeMatches pairs the current user's lists against every candidate.
//
// A candidate whose have list covers part of the want list becomes a
// TheyHaveWhatIWant match; failing that, one whose want list covers part of
// the have list becomes IHaveWhatTheyWant; failing that, a candidate with any
// earlier session becomes a History match with no cards. Everyone else is
// left out. The result is ordered by matched card count (desc), distance
// (asc, unknown last) and counterpart id, and is identical for identical input.
func ComputeMatches(self SelfLists, candidates []Candidate, sessions []models.SessionSummary, selfLocation *geo.Coordinate) []models.Match {
	latest := latestSessions(sessions)
	seen := make(map[string]struct{}, len(candidates))
	matches := make([]models.Match, 0, len(candidates))

	for _, c := range candidates {
		id := c.Profile.UserID
		if id == "" || id == self.UserID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		m := models.Match{
			ID: models.PairKey(self.UserID, id),
			Counterpart: models.Counterpart{
				UserID:      id,
				DisplayName: c.Profile.DisplayName,
				AvatarURL:   c.Profile.AvatarURL,
			},
			Status: models.StatusActive,
		}
		prior, hasPrior := latest[id]

		// A match with cards is a new negotiation unless one is still running;
		// only History reports the status of the recorded session.
		if cards := intersect(c.Have, self.Want); len(cards) > 0 {
			m.Type, m.MatchedCards = models.TheyHaveWhatIWant, cards
		} else if cards := intersect(self.Have, c.Want); len(cards) > 0 {
			m.Type, m.MatchedCards = models.IHaveWhatTheyWant, cards
		} else if hasPrior {
			m.Type, m.MatchedCards = models.History, []models.TradeListEntry{}
			m.Status = prior.Status
		} else {
			continue
		}

		if d, ok := geo.Distance(selfLocation, c.Profile.Location); ok {
			m.DistanceMeters = &d
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return less(matches[i], matches[j])
	})
	return matches
}

func less(a, b models.Match) bool {
	if len(a.MatchedCards) != len(b.MatchedCards) {
		return len(a.MatchedCards) > len(b.MatchedCards)
	}
	switch {
	case a.DistanceMeters != nil && b.DistanceMeters == nil:
		return true
	case a.DistanceMeters == nil && b.DistanceMeters != nil:
		return false
	case a.DistanceMeters != nil && *a.DistanceMeters != *b.DistanceMeters:
		return *a.DistanceMeters < *b.DistanceMeters
	}
	return a.Counterpart.UserID < b.Counterpart.UserID
}

// intersect returns the entries of offered whose card id appears in wanted,
// once per id, ordered by id.
func intersect(offered, wanted []models.TradeListEntry) []models.TradeListEntry {
	if len(offered) == 0 || len(wanted) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		want[w.CardTemplateID] = struct{}{}
	}

	var out []models.TradeListEntry
	for _, o := range offered {
		if _, ok := want[o.CardTemplateID]; !ok {
			continue
		}
		delete(want, o.CardTemplateID)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CardTemplateID < out[j].CardTemplateID
	})
	return out
}

// latestSessions keeps the most recent session per counterpart.
func latestSessions(sessions []models.SessionSummary) map[string]models.SessionSummary {
	latest := make(map[string]models.SessionSummary, len(sessions))
	for _, s := range sessions {
		cur, ok := latest[s.CounterpartID]
		if !ok || s.StartedAt.After(cur.StartedAt) || (s.StartedAt.Equal(cur.StartedAt) && s.ID > cur.ID) {
			latest[s.CounterpartID] = s
		}
	}
	return latest
}
