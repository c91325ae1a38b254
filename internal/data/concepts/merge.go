package concepts

import (
	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// mergeUniqueClash folds every other concept carrying sourceID into survivor
// after survivor declared sourceID globally unique. Edges of the obsolete
// nodes are copied with an existence scan, their properties merged, and the
// nodes deleted.
func (ins *inserter) mergeUniqueClash(survivor graph.NodeID, sourceID string) error {
	survivor = ins.report.Resolve(survivor)
	ins.report.MarkExisting(survivor)

	others, err := ins.tx.FindNodesContaining(ins.ctx, domain.LabelConceptEntity, domain.PropSourceIDs, sourceID)
	if err != nil {
		return err
	}
	for _, o := range others {
		if o.ID == survivor {
			continue
		}
		if domain.KindOf(o.Labels) == domain.KindAggregate {
			ins.log.Warn("unique id shared with an aggregate, not merging",
				"source_id", sourceID, "aggregate", o.Props.String(domain.PropID))
			continue
		}
		if err := ins.mergeInto(survivor, o, sourceID); err != nil {
			return err
		}
	}
	return nil
}

// strandedSourceHolder reports whether a concept other than survivor still
// carries c's source id and source as a non-unique pair. That happens when
// the unique match resolved to a concept first seen under another source.
func (ins *inserter) strandedSourceHolder(survivor graph.NodeID, c domain.Coordinates) (bool, error) {
	survivor = ins.report.Resolve(survivor)
	others, err := ins.tx.FindNodesContaining(ins.ctx, domain.LabelConceptEntity, domain.PropSourceIDs, c.SourceID)
	if err != nil {
		return false, err
	}
	for _, o := range others {
		if o.ID == survivor || domain.KindOf(o.Labels) == domain.KindAggregate {
			continue
		}
		for _, sp := range sourcePairs(o.Props) {
			if sp.ID == c.SourceID && sp.Source == c.Source && !sp.Unique {
				return true, nil
			}
		}
	}
	return false, nil
}

func (ins *inserter) mergeInto(survivor graph.NodeID, obsolete *graph.Node, sourceID string) error {
	edges, err := ins.tx.Edges(ins.ctx, obsolete.ID, graph.Both)
	if err != nil {
		return err
	}
	placeholder := obsolete.HasLabel(domain.LabelHollow)
	for _, e := range edges {
		if placeholder && e.To == obsolete.ID && e.Type == ins.rootRel {
			continue
		}
		from, to := e.From, e.To
		if from == obsolete.ID {
			from = survivor
		}
		if to == obsolete.ID {
			to = survivor
		}
		if from == to {
			continue
		}
		if _, err := ins.ensureRelationship(from, to, e.Type, e.Props, true); err != nil {
			return err
		}
	}

	sn, err := ins.tx.Node(ins.ctx, survivor)
	if err != nil {
		return err
	}
	if sn == nil {
		return domain.InvariantError("merge survivor is missing").WithIDs(string(survivor))
	}
	props := graph.Properties{}
	cur, old := sn.Props, obsolete.Props

	synonyms := cur.Strings(domain.PropSynonyms)
	name := cur.String(domain.PropPrefName)
	if oldName := old.String(domain.PropPrefName); oldName != "" {
		switch {
		case name == "":
			props[domain.PropPrefName] = oldName
		case !containsFold(synonyms, oldName) && !equalFold(name, oldName):
			synonyms = append(synonyms, oldName)
		}
	}
	for _, s := range old.Strings(domain.PropSynonyms) {
		if !containsFold(synonyms, s) && !equalFold(name, s) {
			synonyms = append(synonyms, s)
		}
	}
	if len(synonyms) != len(cur.Strings(domain.PropSynonyms)) {
		props[domain.PropSynonyms] = synonyms
	}
	for _, key := range []string{
		domain.PropDescriptions, domain.PropWritingVariants, domain.PropAcronyms,
		domain.PropFacets, domain.PropChildrenInFacets, domain.PropGeneralLabels,
	} {
		setUnion(props, cur, key, old.Strings(key)...)
	}
	if cur.String(domain.PropOriginalID) == "" && old.String(domain.PropOriginalID) != "" {
		props[domain.PropOriginalID] = old.String(domain.PropOriginalID)
		props[domain.PropOriginalSource] = old.String(domain.PropOriginalSource)
	}

	pairs := sourcePairs(cur)
	for _, op := range sourcePairs(old) {
		dup := false
		for _, sp := range pairs {
			if sp.ID == op.ID && sp.Source == op.Source {
				dup = true
				break
			}
		}
		if !dup {
			pairs = append(pairs, op)
		}
	}
	for i := range pairs {
		if pairs[i].ID == sourceID {
			pairs[i].Unique = true
		}
	}
	for k, v := range sourcePairProps(pairs) {
		props[k] = v
	}
	for k, v := range old {
		if !reservedProps[k] && !cur.Has(k) {
			props[k] = v
		}
	}
	if err := ins.tx.SetProperties(ins.ctx, survivor, props); err != nil {
		return err
	}
	if labels := old.Strings(domain.PropGeneralLabels); len(labels) > 0 {
		if err := ins.tx.AddLabels(ins.ctx, survivor, labels...); err != nil {
			return err
		}
	}

	for _, e := range edges {
		ins.report.forgetRelationship(e.From, e.To, e.Type)
	}
	if err := graph.DetachDelete(ins.ctx, ins.tx, obsolete.ID); err != nil {
		return err
	}
	ins.report.recordMerge(obsolete.ID, survivor)
	ins.log.Info("merged concepts sharing a unique source id",
		"source_id", sourceID,
		"survivor", sn.Props.String(domain.PropID),
		"obsolete", old.String(domain.PropID),
	)
	return nil
}
