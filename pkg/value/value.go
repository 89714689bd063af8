package value

import (
	"fmt"

	"tsengine/pkg/tserrors"
)

// Value is an owning instance of a TypeMeta. Composite kinds (Bundle,
// ListFixed, ListDyn) store their children as []any of Value payloads; Set
// and Map kinds store a *KeySet plus parallel value storage and are
// constructed by pkg/tsvalue, which owns the slot-observer wiring.
type Value struct {
	Meta *TypeMeta
	Data any
}

// NewValue constructs the zero value for a TypeMeta.
func NewValue(meta *TypeMeta) Value {
	return Value{Meta: meta, Data: meta.Ops.New()}
}

// View returns a non-owning View over this Value's current data.
func (v Value) View() View { return View{Meta: v.Meta, Data: v.Data} }

// Set overwrites the Value's data in place (copying via the TypeMeta's Copy
// op so the caller's original is not aliased).
func (v *Value) Set(data any) { v.Data = v.Meta.Ops.Copy(data) }

// View is a non-owning (data, type) pair. It never allocates on navigation:
// Field/Index return Views referencing the same backing []any slice as the
// parent.
type View struct {
	Meta *TypeMeta
	Data any
}

// As asserts the View holds a scalar of Go type T.
func As[T any](v View) (T, error) {
	var zero T
	if v.Meta == nil || v.Meta.Kind != KindScalar {
		return zero, fmt.Errorf("%w: %s is not a scalar", tserrors.ErrTypeMismatch, metaName(v.Meta))
	}
	t, ok := v.Data.(T)
	if !ok {
		return zero, fmt.Errorf("%w: cannot assert %s as requested type", tserrors.ErrTypeMismatch, metaName(v.Meta))
	}
	return t, nil
}

// Field navigates a Bundle/Tuple View by field name.
func (v View) Field(name string) (View, error) {
	if v.Meta == nil || (v.Meta.Kind != KindBundle && v.Meta.Kind != KindTuple) {
		return View{}, fmt.Errorf("%w: %s is not a bundle", tserrors.ErrTypeMismatch, metaName(v.Meta))
	}
	idx := v.Meta.FieldIndex(name)
	if idx < 0 {
		return View{}, fmt.Errorf("%w: no field %q on %s", tserrors.ErrBindingError, name, metaName(v.Meta))
	}
	return v.FieldAt(idx)
}

// FieldAt navigates a Bundle/Tuple View by positional field index.
func (v View) FieldAt(idx int) (View, error) {
	children, ok := v.Data.([]any)
	if !ok || idx < 0 || idx >= len(children) {
		return View{}, fmt.Errorf("%w: field index %d on %s", tserrors.ErrIndexOutOfRange, idx, metaName(v.Meta))
	}
	return View{Meta: v.Meta.Fields[idx].Type, Data: children[idx]}, nil
}

// Index navigates a List View by element index.
func (v View) Index(i int) (View, error) {
	if v.Meta == nil || (v.Meta.Kind != KindListFixed && v.Meta.Kind != KindListDyn) {
		return View{}, fmt.Errorf("%w: %s is not a list", tserrors.ErrTypeMismatch, metaName(v.Meta))
	}
	elems, _ := v.Data.([]any)
	if i < 0 || i >= len(elems) {
		return View{}, fmt.Errorf("%w: list index %d (len %d)", tserrors.ErrIndexOutOfRange, i, len(elems))
	}
	return View{Meta: v.Meta.Elem, Data: elems[i]}, nil
}

// Len returns the number of elements/fields in a composite View.
func (v View) Len() int {
	switch v.Meta.Kind {
	case KindBundle, KindTuple, KindListFixed, KindListDyn:
		children, _ := v.Data.([]any)
		return len(children)
	default:
		return 0
	}
}

func metaName(m *TypeMeta) string {
	if m == nil {
		return "<nil>"
	}
	return m.Name
}
