package concepts

// InsertionResult summarizes one insertion batch.
type InsertionResult struct {
	CreatedConcepts      int    `json:"createdConcepts"`
	CreatedRelationships int    `json:"createdRelationships"`
	FacetID              string `json:"facetId,omitempty"`
	ElapsedMS            int64  `json:"elapsedMs"`
	OmittedConcepts      int    `json:"omittedConcepts,omitempty"`
}

// AggregateBuildResult summarizes one aggregate maintenance pass.
type AggregateBuildResult struct {
	Aggregates int   `json:"aggregates"`
	Singletons int   `json:"singletons"`
	ElapsedMS  int64 `json:"elapsedMs"`
}

// MappingBuildOptions configure build_aggregates_by_mapping.
type MappingBuildOptions struct {
	AllowedMappingTypes []string `json:"allowedMappingTypes"`
	ConceptLabel        string   `json:"conceptLabel,omitempty"`
	ResultLabel         string   `json:"resultLabel"`
}

// ConceptView is the read model returned by lookups.
type ConceptView struct {
	NodeID         string         `json:"nodeId"`
	ID             string         `json:"id,omitempty"`
	Kind           string         `json:"kind"`
	Labels         []string       `json:"labels"`
	PrefName       string         `json:"prefName,omitempty"`
	Synonyms       []string       `json:"synonyms,omitempty"`
	SourceIDs      []string       `json:"sourceIds,omitempty"`
	Sources        []string       `json:"sources,omitempty"`
	OriginalID     string         `json:"originalId,omitempty"`
	OriginalSource string         `json:"originalSource,omitempty"`
	Facets         []string       `json:"facets,omitempty"`
	Properties     map[string]any `json:"properties,omitempty"`
}
