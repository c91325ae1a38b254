package concepts

import (
	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// sourcePair is one (sourceId, source, unique) entry of a concept. Pairs are
// stored as the parallel arrays sourceIds, sources and uniqueSourceIds.
type sourcePair struct {
	ID     string
	Source string
	Unique bool
}

func sourcePairs(p graph.Properties) []sourcePair {
	ids := p.Strings(domain.PropSourceIDs)
	srcs := p.Strings(domain.PropSources)
	uniq := p.Bools(domain.PropUniqueSourceIDs)
	out := make([]sourcePair, 0, len(ids))
	for i, id := range ids {
		sp := sourcePair{ID: id}
		if i < len(srcs) {
			sp.Source = srcs[i]
		}
		if i < len(uniq) {
			sp.Unique = uniq[i]
		}
		out = append(out, sp)
	}
	return out
}

func sourcePairProps(pairs []sourcePair) graph.Properties {
	ids := make([]string, len(pairs))
	srcs := make([]string, len(pairs))
	uniq := make([]bool, len(pairs))
	for i, sp := range pairs {
		ids[i], srcs[i], uniq[i] = sp.ID, sp.Source, sp.Unique
	}
	return graph.Properties{
		domain.PropSourceIDs:       ids,
		domain.PropSources:         srcs,
		domain.PropUniqueSourceIDs: uniq,
	}
}

// nodeCoordinates lists every coordinate set a stored node answers to.
func nodeCoordinates(p graph.Properties) []domain.Coordinates {
	origID := p.String(domain.PropOriginalID)
	origSrc := p.String(domain.PropOriginalSource)
	pairs := sourcePairs(p)
	if len(pairs) == 0 {
		if origID == "" {
			return nil
		}
		return []domain.Coordinates{{OriginalID: origID, OriginalSource: origSrc}}
	}
	out := make([]domain.Coordinates, 0, len(pairs))
	for _, sp := range pairs {
		out = append(out, domain.Coordinates{
			SourceID:       sp.ID,
			Source:         sp.Source,
			UniqueSourceID: sp.Unique,
			OriginalID:     origID,
			OriginalSource: origSrc,
		})
	}
	return out
}

// coordinateProps are the properties a freshly created node gets for c.
func coordinateProps(c domain.Coordinates) graph.Properties {
	props := graph.Properties{}
	if c.HasSourceCoordinates() {
		for k, v := range sourcePairProps([]sourcePair{{ID: c.SourceID, Source: c.Source, Unique: c.UniqueSourceID}}) {
			props[k] = v
		}
	}
	if c.HasOriginalCoordinates() {
		props[domain.PropOriginalID] = c.OriginalID
		props[domain.PropOriginalSource] = c.OriginalSource
	}
	return props
}
