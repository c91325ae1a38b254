package concepts

import (
	"sort"
	"strings"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// reservedProps cannot be set through additional properties.
var reservedProps = map[string]bool{
	domain.PropID:               true,
	domain.PropPrefName:         true,
	domain.PropSynonyms:         true,
	domain.PropDescriptions:     true,
	domain.PropWritingVariants:  true,
	domain.PropAcronyms:         true,
	domain.PropSourceIDs:        true,
	domain.PropSources:          true,
	domain.PropUniqueSourceIDs:  true,
	domain.PropOriginalID:       true,
	domain.PropOriginalSource:   true,
	domain.PropFacets:           true,
	domain.PropChildrenInFacets: true,
	domain.PropGeneralLabels:    true,
	domain.PropCopyProperties:   true,
	domain.PropMappingType:      true,
}

// unionStrings appends the items of add missing from base, keeping order.
func unionStrings(base []string, add ...string) []string {
	seen := make(map[string]bool, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, s := range append(append([]string(nil), base...), add...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// dedupeFold removes case-insensitive duplicates keeping the first casing
// and sorts the result.
func dedupeFold(items []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out
}

func containsFold(items []string, s string) bool {
	for _, it := range items {
		if strings.EqualFold(it, s) {
			return true
		}
	}
	return false
}

// setUnion stores the union of current[key] and add when it adds anything.
func setUnion(props graph.Properties, current graph.Properties, key string, add ...string) {
	if len(add) == 0 {
		return
	}
	base := current.Strings(key)
	merged := unionStrings(base, add...)
	if len(merged) != len(base) {
		props[key] = merged
	}
}

func equalFold(a, b string) bool { return strings.EqualFold(a, b) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
