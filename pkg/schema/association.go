package schema

// AssociationType distinguishes singular from plural references.
type AssociationType string

const (
	// AssociationModel is a singular reference (the attribute carries a
	// foreign key pointing at one record of the target model).
	AssociationModel AssociationType = "model"

	// AssociationCollection is a plural reference.
	AssociationCollection AssociationType = "collection"
)

// Nature is the classified cardinality/direction of an association once
// both sides of the reference are known. The empty string means the
// association has not been classified, or classification was ambiguous.
type Nature string

const (
	NatureOneToOne   Nature = "oneToOne"
	NatureOneToMany  Nature = "oneToMany"
	NatureManyToOne  Nature = "manyToOne"
	NatureManyToMany Nature = "manyToMany"
)

// Association is the derived descriptor of one relational attribute.
//
// Nature stays empty until the global classification pass runs. Dominant
// marks the owning side of a through-less many-to-many shorthand (a
// collection reference with no via). ViaMediated reports whether the
// classification resolved through a named inverse attribute.
type Association struct {
	Alias      string
	Type       AssociationType
	Model      string
	Collection string
	Via        string

	Nature   Nature
	Dominant bool
}

// Target returns the name of the referenced model.
func (a *Association) Target() string {
	if a.Type == AssociationModel {
		return a.Model
	}
	return a.Collection
}

// Singular reports whether the association references exactly one record.
func (a *Association) Singular() bool {
	return a.Type == AssociationModel
}

// ViaMediated reports whether the association names an inverse attribute.
func (a *Association) ViaMediated() bool {
	return a.Via != ""
}

// Diagnostic describes a non-fatal association-resolution defect, such as a
// via reference with no matching attribute on the target model. The
// affected association is left with an unset Nature; the defect limits
// relationship-aware tooling but does not corrupt data, so resolution
// proceeds.
type Diagnostic struct {
	Model  string
	Alias  string
	Reason string
}

func (d Diagnostic) String() string {
	return "model " + d.Model + ", association " + d.Alias + ": " + d.Reason
}
