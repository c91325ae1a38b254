package concepts

import "strings"

// Node labels.
const (
	LabelConcept             = "CONCEPT"
	LabelHollow              = "HOLLOW"
	LabelAggregate           = "AGGREGATE"
	LabelConceptEntity       = "CONCEPT_ENTITY"
	LabelFacet               = "FACET"
	LabelNoFacet             = "NO_FACET"
	LabelFacetGroup          = "FACET_GROUP"
	LabelIDManager           = "ID_MANAGER"
	LabelWritingVariants     = "WRITING_VARIANTS"
	LabelAcronyms            = "ACRONYMS"
	LabelAggregateEqualNames = "AGGREGATE_EQUAL_NAMES"
)

// Property keys shared by concept, aggregate and facet nodes.
const (
	PropID               = "id"
	PropPrefName         = "preferredName"
	PropSynonyms         = "synonyms"
	PropDescriptions     = "descriptions"
	PropWritingVariants  = "writingVariants"
	PropAcronyms         = "acronyms"
	PropSourceIDs        = "sourceIds"
	PropSources          = "sources"
	PropUniqueSourceIDs  = "uniqueSourceIds"
	PropOriginalID       = "originalId"
	PropOriginalSource   = "originalSource"
	PropFacets           = "facets"
	PropChildrenInFacets = "childrenInFacets"
	PropGeneralLabels    = "generalLabels"
	PropCopyProperties   = "copyProperties"
	PropMappingType      = "mappingType"
	PropVariants         = "variants"
	PropVariantCounts    = "counts"

	PropFacetName       = "name"
	PropFacetShortName  = "shortName"
	PropFacetCustomID   = "customId"
	PropFacetSourceType = "sourceType"
	PropFacetLabels     = "labels"
	PropFacetGroupName  = "name"
	PropNoFacetOf       = "noFacetOf"

	// DivergentSuffix is appended to a property name to hold the minority
	// values of a majority-voted aggregate property.
	DivergentSuffix = "_divergent"
)

// ID prefixes for externally visible ids.
const (
	IDPrefixConcept    = "tid"
	IDPrefixAggregate  = "atid"
	IDPrefixFacet      = "fid"
	IDPrefixFacetGroup = "fgid"
)

// MappingTypeLoom marks mappings produced by the LOOM ontology matcher.
const MappingTypeLoom = "LOOM"

// ConceptKind is the "real" state of a coordinate-addressable node.
type ConceptKind int

const (
	KindUnknown ConceptKind = iota
	KindHollow
	KindConcept
	KindAggregate
)

func (k ConceptKind) String() string {
	switch k {
	case KindHollow:
		return "hollow"
	case KindConcept:
		return "concept"
	case KindAggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// Label returns the node label that carries this kind.
func (k ConceptKind) Label() string {
	switch k {
	case KindHollow:
		return LabelHollow
	case KindConcept:
		return LabelConcept
	case KindAggregate:
		return LabelAggregate
	default:
		return ""
	}
}

// KindOf derives the kind from a node's labels. Aggregates win over CONCEPT
// because an aggregate may be additionally tagged CONCEPT to join the taxonomy.
func KindOf(labels []string) ConceptKind {
	var concept, hollow bool
	for _, l := range labels {
		switch l {
		case LabelAggregate:
			return KindAggregate
		case LabelConcept:
			concept = true
		case LabelHollow:
			hollow = true
		}
	}
	switch {
	case hollow:
		return KindHollow
	case concept:
		return KindConcept
	default:
		return KindUnknown
	}
}

// EdgeKind enumerates the relationship types the engine knows about.
// Facet scoped broader-than edges are generated at runtime; see FacetBroaderThan.
type EdgeKind string

const (
	EdgeHasElement     EdgeKind = "HAS_ELEMENT"
	EdgeHasRootConcept EdgeKind = "HAS_ROOT_CONCEPT"
	EdgeIsBroaderThan  EdgeKind = "IS_BROADER_THAN"
	EdgeIsMappedTo     EdgeKind = "IS_MAPPED_TO"
	EdgeHasVariants    EdgeKind = "HAS_VARIANTS"
	EdgeHasAcronyms    EdgeKind = "HAS_ACRONYMS"
	EdgeHasFacet       EdgeKind = "HAS_FACET"
	EdgeHasNoFacet     EdgeKind = "HAS_NO_FACET"
)

func (k EdgeKind) String() string { return string(k) }

// FacetBroaderThan returns the facet scoped variant IS_BROADER_THAN_<facetID>.
func FacetBroaderThan(facetID string) EdgeKind {
	return EdgeKind(string(EdgeIsBroaderThan) + "_" + strings.TrimSpace(facetID))
}

// IsFacetBroaderThan reports whether k is a facet scoped broader-than type.
func IsFacetBroaderThan(k EdgeKind) bool {
	return strings.HasPrefix(string(k), string(EdgeIsBroaderThan)+"_")
}
