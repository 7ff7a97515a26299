package schema

import (
	"testing"
)

// modelSet attaches extracted associations to every model and indexes them
// by name, mirroring what the lifecycle does before classification.
func modelSet(models ...*Model) map[string]*Model {
	set := make(map[string]*Model, len(models))
	for _, m := range models {
		m.Associations = ExtractAssociations(m)
		set[m.Name] = m
	}
	return set
}

func association(t *testing.T, m *Model, alias string) *Association {
	t.Helper()
	for i := range m.Associations {
		if m.Associations[i].Alias == alias {
			return &m.Associations[i]
		}
	}
	t.Fatalf("model %q has no association %q", m.Name, alias)
	return nil
}

func TestExtractAssociations(t *testing.T) {
	t.Run("preserves declaration order and skips scalars", func(t *testing.T) {
		m := &Model{
			Name: "order",
			Attributes: []Attribute{
				{Name: "total", Def: AttributeDef{Type: "number"}},
				{Name: "customer", Def: AttributeDef{Model: "customer"}},
				{Name: "placedAt", Def: AttributeDef{Type: "datetime"}},
				{Name: "items", Def: AttributeDef{Collection: "item", Via: "order"}},
			},
		}

		assocs := ExtractAssociations(m)
		if len(assocs) != 2 {
			t.Fatalf("expected 2 associations, got %d", len(assocs))
		}
		if assocs[0].Alias != "customer" || assocs[1].Alias != "items" {
			t.Errorf("expected alias order [customer items], got [%s %s]",
				assocs[0].Alias, assocs[1].Alias)
		}
	})

	t.Run("copies through type and via", func(t *testing.T) {
		m := &Model{
			Name: "pet",
			Attributes: []Attribute{
				{Name: "owner", Def: AttributeDef{Model: "user"}},
				{Name: "toys", Def: AttributeDef{Collection: "toy", Via: "pet"}},
			},
		}

		assocs := ExtractAssociations(m)
		if assocs[0].Type != AssociationModel || assocs[0].Model != "user" {
			t.Errorf("expected singular reference to user, got %+v", assocs[0])
		}
		if assocs[1].Type != AssociationCollection || assocs[1].Collection != "toy" || assocs[1].Via != "pet" {
			t.Errorf("expected plural reference to toy via pet, got %+v", assocs[1])
		}
	})

	t.Run("no relational attributes yields no associations", func(t *testing.T) {
		m := &Model{
			Name: "config",
			Attributes: []Attribute{
				{Name: "key", Def: AttributeDef{Type: "string"}},
				{Name: "value", Def: AttributeDef{Type: "json"}},
			},
		}
		if got := ExtractAssociations(m); got != nil {
			t.Errorf("expected nil associations, got %v", got)
		}
	})
}

func TestClassifyOneToManyPair(t *testing.T) {
	// User.pets is a collection via "owner"; Pet.owner points back at user.
	user := &Model{
		Name: "user",
		Attributes: []Attribute{
			{Name: "name", Def: AttributeDef{Type: "string"}},
			{Name: "pets", Def: AttributeDef{Collection: "pet", Via: "owner"}},
		},
	}
	pet := &Model{
		Name: "pet",
		Attributes: []Attribute{
			{Name: "name", Def: AttributeDef{Type: "string"}},
			{Name: "owner", Def: AttributeDef{Model: "user"}},
		},
	}

	diags := ClassifyAssociations(modelSet(user, pet))
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}

	if got := association(t, user, "pets").Nature; got != NatureOneToMany {
		t.Errorf("user.pets: expected oneToMany, got %q", got)
	}
	if got := association(t, pet, "owner").Nature; got != NatureManyToOne {
		t.Errorf("pet.owner: expected manyToOne, got %q", got)
	}
}

func TestClassifyManyToManyViaMediated(t *testing.T) {
	student := &Model{
		Name: "student",
		Attributes: []Attribute{
			{Name: "courses", Def: AttributeDef{Collection: "course", Via: "students"}},
		},
	}
	course := &Model{
		Name: "course",
		Attributes: []Attribute{
			{Name: "students", Def: AttributeDef{Collection: "student", Via: "courses"}},
		},
	}

	diags := ClassifyAssociations(modelSet(student, course))
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}

	for _, tc := range []struct {
		model *Model
		alias string
	}{
		{student, "courses"},
		{course, "students"},
	} {
		assoc := association(t, tc.model, tc.alias)
		if assoc.Nature != NatureManyToMany {
			t.Errorf("%s.%s: expected manyToMany, got %q", tc.model.Name, tc.alias, assoc.Nature)
		}
		if assoc.Dominant {
			t.Errorf("%s.%s: via-mediated side must not be dominant", tc.model.Name, tc.alias)
		}
	}
}

func TestClassifyCollectionShorthand(t *testing.T) {
	// A collection with no via is a through-table-less many-to-many and
	// this side owns it.
	post := &Model{
		Name: "post",
		Attributes: []Attribute{
			{Name: "tags", Def: AttributeDef{Collection: "tag"}},
		},
	}
	tag := &Model{Name: "tag", Attributes: []Attribute{
		{Name: "label", Def: AttributeDef{Type: "string"}},
	}}

	diags := ClassifyAssociations(modelSet(post, tag))
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}

	assoc := association(t, post, "tags")
	if assoc.Nature != NatureManyToMany || !assoc.Dominant {
		t.Errorf("expected dominant manyToMany, got nature=%q dominant=%v", assoc.Nature, assoc.Dominant)
	}
}

func TestClassifySingularDefaults(t *testing.T) {
	t.Run("no reciprocal reference defaults to manyToOne", func(t *testing.T) {
		comment := &Model{
			Name: "comment",
			Attributes: []Attribute{
				{Name: "author", Def: AttributeDef{Model: "user"}},
			},
		}
		user := &Model{Name: "user", Attributes: []Attribute{
			{Name: "name", Def: AttributeDef{Type: "string"}},
		}}

		ClassifyAssociations(modelSet(comment, user))
		if got := association(t, comment, "author").Nature; got != NatureManyToOne {
			t.Errorf("expected manyToOne default, got %q", got)
		}
	})

	t.Run("reciprocal singular reference upgrades to oneToOne", func(t *testing.T) {
		profile := &Model{
			Name: "profile",
			Attributes: []Attribute{
				{Name: "user", Def: AttributeDef{Model: "user"}},
			},
		}
		user := &Model{
			Name: "user",
			Attributes: []Attribute{
				{Name: "profile", Def: AttributeDef{Model: "profile"}},
			},
		}

		ClassifyAssociations(modelSet(profile, user))
		if got := association(t, profile, "user").Nature; got != NatureOneToOne {
			t.Errorf("profile.user: expected oneToOne, got %q", got)
		}
		if got := association(t, user, "profile").Nature; got != NatureOneToOne {
			t.Errorf("user.profile: expected oneToOne, got %q", got)
		}
	})

	t.Run("singular reciprocal wins over an earlier collection one", func(t *testing.T) {
		profile := &Model{
			Name: "profile",
			Attributes: []Attribute{
				{Name: "user", Def: AttributeDef{Model: "user"}},
			},
		}
		user := &Model{
			Name: "user",
			Attributes: []Attribute{
				{Name: "drafts", Def: AttributeDef{Collection: "profile"}},
				{Name: "profile", Def: AttributeDef{Model: "profile"}},
			},
		}

		ClassifyAssociations(modelSet(profile, user))
		if got := association(t, profile, "user").Nature; got != NatureOneToOne {
			t.Errorf("profile.user: expected oneToOne, got %q", got)
		}
	})

	t.Run("self reference is not its own inverse", func(t *testing.T) {
		node := &Model{
			Name: "node",
			Attributes: []Attribute{
				{Name: "parent", Def: AttributeDef{Model: "node"}},
			},
		}

		ClassifyAssociations(modelSet(node))
		if got := association(t, node, "parent").Nature; got != NatureManyToOne {
			t.Errorf("self reference: expected manyToOne, got %q", got)
		}
	})
}

func TestClassifyDiagnostics(t *testing.T) {
	t.Run("dangling via leaves nature unset", func(t *testing.T) {
		user := &Model{
			Name: "user",
			Attributes: []Attribute{
				{Name: "pets", Def: AttributeDef{Collection: "pet", Via: "keeper"}},
			},
		}
		pet := &Model{
			Name: "pet",
			Attributes: []Attribute{
				{Name: "owner", Def: AttributeDef{Model: "user"}},
			},
		}

		diags := ClassifyAssociations(modelSet(user, pet))
		if len(diags) != 1 {
			t.Fatalf("expected 1 diagnostic, got %d: %v", len(diags), diags)
		}
		if diags[0].Model != "user" || diags[0].Alias != "pets" {
			t.Errorf("diagnostic should name user.pets, got %+v", diags[0])
		}
		if got := association(t, user, "pets").Nature; got != "" {
			t.Errorf("dangling via must leave nature unset, got %q", got)
		}
	})

	t.Run("unknown target model", func(t *testing.T) {
		orphan := &Model{
			Name: "orphan",
			Attributes: []Attribute{
				{Name: "ghost", Def: AttributeDef{Model: "missing"}},
			},
		}

		diags := ClassifyAssociations(modelSet(orphan))
		if len(diags) != 1 {
			t.Fatalf("expected 1 diagnostic, got %d", len(diags))
		}
		if got := association(t, orphan, "ghost").Nature; got != "" {
			t.Errorf("unknown target must leave nature unset, got %q", got)
		}
	})
}
