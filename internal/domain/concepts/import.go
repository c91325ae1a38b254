package concepts

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be used as a label or relationship type.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ImportConcepts is one insertion batch.
type ImportConcepts struct {
	Facet         *ImportFacet    `json:"facet,omitempty"`
	Concepts      []ImportConcept `json:"concepts"`
	ImportOptions *ImportOptions  `json:"importOptions,omitempty"`
}

// ImportFacet describes the facet a batch belongs to. When ID is set the facet
// must already exist; otherwise it is looked up by name and created if absent.
type ImportFacet struct {
	ID         string            `json:"id,omitempty"`
	Name       string            `json:"name,omitempty"`
	ShortName  string            `json:"shortName,omitempty"`
	CustomID   string            `json:"customId,omitempty"`
	SourceType string            `json:"sourceType,omitempty"`
	Labels     []string          `json:"labels,omitempty"`
	Group      *ImportFacetGroup `json:"facetGroup,omitempty"`
}

type ImportFacetGroup struct {
	Name     string `json:"name"`
	Position int    `json:"position,omitempty"`
}

// ImportConcept is the typed boundary representation of one concept.
type ImportConcept struct {
	Coordinates          Coordinates          `json:"coordinates"`
	PrefName             string               `json:"prefName,omitempty"`
	Synonyms             []string             `json:"synonyms,omitempty"`
	Descriptions         []string             `json:"descriptions,omitempty"`
	WritingVariants      []string             `json:"writingVariants,omitempty"`
	Acronyms             []string             `json:"acronyms,omitempty"`
	GeneralLabels        []string             `json:"generalLabels,omitempty"`
	ParentCoordinates    []Coordinates        `json:"parentCoordinates,omitempty"`
	Relationships        []ImportRelationship `json:"relationships,omitempty"`
	AdditionalProperties map[string]any       `json:"additionalProperties,omitempty"`

	Aggregate                   bool          `json:"aggregate,omitempty"`
	AggregateIncludeInHierarchy bool          `json:"aggregateIncludeInHierarchy,omitempty"`
	ElementCoordinates          []Coordinates `json:"elementCoordinates,omitempty"`
	CopyProperties              []string      `json:"copyProperties,omitempty"`
}

// ImportRelationship is an explicitly declared typed edge from the concept to
// the concept at TargetCoordinates.
type ImportRelationship struct {
	Type              string         `json:"type"`
	TargetCoordinates Coordinates    `json:"targetCoordinates"`
	Properties        map[string]any `json:"properties,omitempty"`
}

// NoFacetCommand routes concepts matching ParentCriteria to the facet's
// no-facet variant instead of making them roots of the facet proper.
type NoFacetCommand struct {
	ParentCriteria []string `json:"parentCriteria,omitempty"`
}

const NoFacetCriterionNoParent = "NO_PARENT"

// AppliesToRootConcepts reports whether parentless concepts are redirected.
func (c *NoFacetCommand) AppliesToRootConcepts() bool {
	if c == nil {
		return false
	}
	for _, crit := range c.ParentCriteria {
		if strings.EqualFold(strings.TrimSpace(crit), NoFacetCriterionNoParent) {
			return true
		}
	}
	return false
}

// MatchesParent reports whether a parent with sourceID is listed as a
// criterion; such children hang off the no-facet node instead of that parent.
func (c *NoFacetCommand) MatchesParent(sourceID string) bool {
	if c == nil || sourceID == "" {
		return false
	}
	for _, crit := range c.ParentCriteria {
		if strings.TrimSpace(crit) == sourceID {
			return true
		}
	}
	return false
}

// ImportOptions tune one insertion batch.
type ImportOptions struct {
	// Merge only updates concepts that already exist; nothing new is created.
	Merge                           bool            `json:"merge,omitempty"`
	DoNotCreateHollowParents        bool            `json:"doNotCreateHollowParents,omitempty"`
	CreateHollowAggregateElements   bool            `json:"createHollowAggregateElements,omitempty"`
	CreateHollowRelationshipTargets bool            `json:"createHollowRelationshipTargets,omitempty"`
	CutParents                      []string        `json:"cutParents,omitempty"`
	NoFacetCmd                      *NoFacetCommand `json:"noFacetCmd,omitempty"`
}

// IsCutParent reports whether the parent source id is listed in CutParents.
func (o ImportOptions) IsCutParent(sourceID string) bool {
	for _, id := range o.CutParents {
		if id == sourceID {
			return true
		}
	}
	return false
}

// Normalize trims every coordinate and string list in place.
func (in *ImportConcepts) Normalize() {
	for i := range in.Concepts {
		c := &in.Concepts[i]
		c.Coordinates = c.Coordinates.Normalize()
		c.PrefName = strings.TrimSpace(c.PrefName)
		for j := range c.ParentCoordinates {
			c.ParentCoordinates[j] = c.ParentCoordinates[j].Normalize()
		}
		for j := range c.ElementCoordinates {
			c.ElementCoordinates[j] = c.ElementCoordinates[j].Normalize()
		}
		for j := range c.Relationships {
			c.Relationships[j].Type = strings.TrimSpace(c.Relationships[j].Type)
			c.Relationships[j].TargetCoordinates = c.Relationships[j].TargetCoordinates.Normalize()
		}
	}
}

// Validate checks the batch once at the boundary so the engine can rely on
// well-formed coordinates and identifiers.
func (in *ImportConcepts) Validate() error {
	if in == nil {
		return ValidationError("empty import")
	}
	if in.Facet != nil && in.Facet.ID == "" && strings.TrimSpace(in.Facet.Name) == "" {
		return ValidationError("facet requires either an id or a name")
	}
	if in.Facet != nil {
		for _, l := range in.Facet.Labels {
			if !ValidIdentifier(l) {
				return ValidationError(fmt.Sprintf("invalid facet label %q", l))
			}
		}
	}
	for i := range in.Concepts {
		if err := in.Concepts[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *ImportConcept) Validate() error {
	if err := c.Coordinates.Validate(); err != nil {
		return err
	}
	for _, p := range c.ParentCoordinates {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, l := range c.GeneralLabels {
		if !ValidIdentifier(l) {
			return ValidationError(fmt.Sprintf("invalid general label %q", l), c.Coordinates)
		}
	}
	for _, r := range c.Relationships {
		if !ValidIdentifier(r.Type) {
			return ValidationError(fmt.Sprintf("invalid relationship type %q", r.Type), c.Coordinates)
		}
		if err := r.TargetCoordinates.Validate(); err != nil {
			return err
		}
	}
	if c.Aggregate {
		if len(c.ElementCoordinates) == 0 {
			return ValidationError("aggregate without element coordinates", c.Coordinates)
		}
		for _, e := range c.ElementCoordinates {
			if err := e.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// IDMapping is a symmetric similarity between the concepts carrying the
// source ids ID1 and ID2.
type IDMapping struct {
	ID1         string `json:"id1"`
	ID2         string `json:"id2"`
	MappingType string `json:"mappingType"`
}

func (m IDMapping) Validate() error {
	if strings.TrimSpace(m.ID1) == "" || strings.TrimSpace(m.ID2) == "" {
		return ValidationError("mapping requires both ids")
	}
	if strings.TrimSpace(m.MappingType) == "" {
		return ValidationError(fmt.Sprintf("mapping %s-%s has no mapping type", m.ID1, m.ID2))
	}
	return nil
}

// VariantType selects the variant aggregation node a ConceptVariants entry feeds.
type VariantType string

const (
	VariantWriting VariantType = "writingVariants"
	VariantAcronym VariantType = "acronyms"
)

// ConceptVariants adds occurrence counts of surface forms to the concept
// with external id ConceptID.
type ConceptVariants struct {
	ConceptID string         `json:"conceptId"`
	Type      VariantType    `json:"type"`
	Counts    map[string]int `json:"counts"`
}

func (v ConceptVariants) Validate() error {
	if strings.TrimSpace(v.ConceptID) == "" {
		return ValidationError("variants without concept id")
	}
	switch v.Type {
	case VariantWriting, VariantAcronym:
	default:
		return ValidationError(fmt.Sprintf("unknown variant type %q", v.Type))
	}
	return nil
}
