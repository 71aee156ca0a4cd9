package xrm

// Visitor renders each AttributeValue variant to a T. Encoders construct one
// Visitor apiece and supply only the per-variant rendering functions; the
// dispatch itself lives here so the JSON, Web API, and source-snippet paths
// cannot disagree about which branch a value takes.
//
// A nil arm falls back to Default. Default itself must be non-nil whenever
// any arm is left nil.
type Visitor[T any] struct {
	Null                func() T
	String              func(s string) T
	Int                 func(n int64) T
	Float               func(f float64) T
	Bool                func(b bool) T
	EntityReference     func(ref EntityReference) T
	OptionSet           func(o OptionSetValue) T
	OptionSetCollection func(o OptionSetValueCollection) T
	Money               func(m Money) T
	DateTime            func(d DateTime) T

	// Default handles nil arms and any value outside the sealed set
	// (which cannot be constructed, but keeps Visit total).
	Default func(v AttributeValue) T
}

// Visit dispatches v to the matching visitor arm.
func Visit[T any](v AttributeValue, vis Visitor[T]) T {
	switch val := v.(type) {
	case nil:
		if vis.Null != nil {
			return vis.Null()
		}
	case Null:
		if vis.Null != nil {
			return vis.Null()
		}
	case String:
		if vis.String != nil {
			return vis.String(string(val))
		}
	case Int:
		if vis.Int != nil {
			return vis.Int(int64(val))
		}
	case Float:
		if vis.Float != nil {
			return vis.Float(float64(val))
		}
	case Bool:
		if vis.Bool != nil {
			return vis.Bool(bool(val))
		}
	case EntityReference:
		if vis.EntityReference != nil {
			return vis.EntityReference(val)
		}
	case OptionSetValue:
		if vis.OptionSet != nil {
			return vis.OptionSet(val)
		}
	case OptionSetValueCollection:
		if vis.OptionSetCollection != nil {
			return vis.OptionSetCollection(val)
		}
	case Money:
		if vis.Money != nil {
			return vis.Money(val)
		}
	case DateTime:
		if vis.DateTime != nil {
			return vis.DateTime(val)
		}
	}
	return vis.Default(v)
}
