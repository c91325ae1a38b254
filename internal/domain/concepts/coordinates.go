package concepts

import (
	"fmt"
	"strings"
)

// Coordinates identify a concept across imports. Empty strings mean "absent".
type Coordinates struct {
	SourceID       string `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`
	Source         string `json:"source,omitempty" yaml:"source,omitempty"`
	OriginalID     string `json:"originalId,omitempty" yaml:"originalId,omitempty"`
	OriginalSource string `json:"originalSource,omitempty" yaml:"originalSource,omitempty"`
	UniqueSourceID bool   `json:"uniqueSourceId,omitempty" yaml:"uniqueSourceId,omitempty"`
}

// HasSourceCoordinates reports whether both source id and source are given.
func (c Coordinates) HasSourceCoordinates() bool {
	return c.SourceID != "" && c.Source != ""
}

// HasOriginalCoordinates reports whether both original id and original source are given.
func (c Coordinates) HasOriginalCoordinates() bool {
	return c.OriginalID != "" && c.OriginalSource != ""
}

// Resolvable reports whether lookup can work with these coordinates at all.
func (c Coordinates) Resolvable() bool {
	return c.HasSourceCoordinates() || c.HasOriginalCoordinates()
}

// Validate enforces the both-or-neither rule for original coordinates and
// requires at least one complete coordinate pair.
func (c Coordinates) Validate() error {
	if (c.OriginalID == "") != (c.OriginalSource == "") {
		return ValidationError("original id and original source must be given together", c)
	}
	if !c.Resolvable() {
		return ValidationError("neither (sourceId, source) nor (originalId, originalSource) is fully specified", c)
	}
	return nil
}

// Normalize trims whitespace from every component.
func (c Coordinates) Normalize() Coordinates {
	c.SourceID = strings.TrimSpace(c.SourceID)
	c.Source = strings.TrimSpace(c.Source)
	c.OriginalID = strings.TrimSpace(c.OriginalID)
	c.OriginalSource = strings.TrimSpace(c.OriginalSource)
	return c
}

// SourceIDsMatch applies the source id matching rule: equal ids and either
// equal sources or both sides declaring the id globally unique.
func SourceIDsMatch(idA, sourceA string, uniqueA bool, idB, sourceB string, uniqueB bool) bool {
	if idA == "" || idA != idB {
		return false
	}
	return sourceA == sourceB || (uniqueA && uniqueB)
}

// ContradictsOriginal reports whether both sides carry original coordinates
// that differ.
func (c Coordinates) ContradictsOriginal(o Coordinates) bool {
	if !c.HasOriginalCoordinates() || !o.HasOriginalCoordinates() {
		return false
	}
	return c.OriginalID != o.OriginalID || c.OriginalSource != o.OriginalSource
}

// Matches reports whether c and o denote the same concept. The relation is symmetric.
func (c Coordinates) Matches(o Coordinates) bool {
	if c.HasOriginalCoordinates() && o.HasOriginalCoordinates() {
		return c.OriginalID == o.OriginalID && c.OriginalSource == o.OriginalSource
	}
	if c.HasSourceCoordinates() && o.HasSourceCoordinates() {
		return SourceIDsMatch(c.SourceID, c.Source, c.UniqueSourceID, o.SourceID, o.Source, o.UniqueSourceID)
	}
	return false
}

func (c Coordinates) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s|%s", c.SourceID, c.Source)
	if c.UniqueSourceID {
		b.WriteString("|unique")
	}
	if c.OriginalID != "" || c.OriginalSource != "" {
		fmt.Fprintf(&b, "; original %s|%s", c.OriginalID, c.OriginalSource)
	}
	b.WriteString("]")
	return b.String()
}
