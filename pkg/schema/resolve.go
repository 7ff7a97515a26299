package schema

import "fmt"

// ExtractAssociations scans a model's attributes in declaration order and
// returns one Association per relational attribute. Non-relational
// attributes produce no entries. This phase runs independently per model;
// the returned associations carry no Nature yet.
func ExtractAssociations(m *Model) []Association {
	var assocs []Association
	for _, attr := range m.Attributes {
		if !attr.Def.Relational() {
			continue
		}

		assoc := Association{
			Alias: attr.Name,
			Via:   attr.Def.Via,
		}
		if attr.Def.Model != "" {
			assoc.Type = AssociationModel
			assoc.Model = attr.Def.Model
		} else {
			assoc.Type = AssociationCollection
			assoc.Collection = attr.Def.Collection
		}
		assocs = append(assocs, assoc)
	}
	return assocs
}

// ClassifyAssociations assigns a Nature to every association of every model.
//
// It must run only after every model has Associations attached (via
// ExtractAssociations), because classification looks up inverse attributes
// across model boundaries. The pass mutates only each association's Nature
// and Dominant fields.
//
// Rules:
//   - singular reference, no via: manyToOne, upgraded to oneToOne when the
//     target holds a reciprocal singular reference back at this model
//   - collection reference, no via: manyToMany shorthand, dominant side
//   - via naming a singular inverse: oneToMany on the collection side,
//     manyToOne on the singular side
//   - via naming a collection inverse: manyToMany, via-mediated
//
// A via with no matching attribute on the target, or a reference to a model
// that is not registered, leaves the Nature unset and yields a Diagnostic.
func ClassifyAssociations(models map[string]*Model) []Diagnostic {
	var diags []Diagnostic

	for _, m := range models {
		for i := range m.Associations {
			assoc := &m.Associations[i]

			target, ok := models[assoc.Target()]
			if !ok {
				diags = append(diags, Diagnostic{
					Model:  m.Name,
					Alias:  assoc.Alias,
					Reason: fmt.Sprintf("references unknown model %q", assoc.Target()),
				})
				continue
			}

			if assoc.Via == "" {
				classifyByCardinality(m, assoc, target)
				continue
			}

			inverse := findAssociation(target, assoc.Via)
			if inverse == nil {
				diags = append(diags, Diagnostic{
					Model:  m.Name,
					Alias:  assoc.Alias,
					Reason: fmt.Sprintf("via %q does not match any attribute on model %q", assoc.Via, target.Name),
				})
				continue
			}

			if inverse.Singular() {
				// One side owns the foreign key: the collection side is
				// the "one", each referenced record the "many".
				if assoc.Singular() {
					assoc.Nature = NatureManyToOne
				} else {
					assoc.Nature = NatureOneToMany
				}
			} else {
				assoc.Nature = NatureManyToMany
			}
		}
	}

	return diags
}

// classifyByCardinality handles associations with no via.
func classifyByCardinality(m *Model, assoc *Association, target *Model) {
	if !assoc.Singular() {
		// Through-table-less many-to-many shorthand; this side owns it.
		assoc.Nature = NatureManyToMany
		assoc.Dominant = true
		return
	}

	// A plain singular reference is many-to-one unless the target carries
	// a reciprocal singular reference back at this model.
	if inverse := findInverse(target, m.Name, assoc); inverse != nil && inverse.Singular() {
		assoc.Nature = NatureOneToOne
		return
	}
	assoc.Nature = NatureManyToOne
}

// findAssociation returns the target's association with the given alias.
func findAssociation(target *Model, alias string) *Association {
	for i := range target.Associations {
		if target.Associations[i].Alias == alias {
			return &target.Associations[i]
		}
	}
	return nil
}

// findInverse returns an association on target that points back at
// modelName, skipping self (a self-referencing attribute is not its own
// inverse). A singular reciprocal wins over a collection one regardless
// of declaration order, since the singular side decides one-to-one.
func findInverse(target *Model, modelName string, self *Association) *Association {
	var fallback *Association
	for i := range target.Associations {
		candidate := &target.Associations[i]
		if candidate == self || candidate.Target() != modelName {
			continue
		}
		if candidate.Singular() {
			return candidate
		}
		if fallback == nil {
			fallback = candidate
		}
	}
	return fallback
}
