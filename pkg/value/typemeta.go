package value

import "fmt"

// FieldMeta describes one field of a Bundle or Tuple type.
type FieldMeta struct {
	Name string
	Type *TypeMeta
}

// Ops is the per-TypeMeta vtable: construct/copy/equals/less/hash
// and the HostCodec marshalling pair. Composite ops recurse over child
// types; scalar ops are supplied by the caller when building a TypeMeta
// with NewScalarType.
type Ops struct {
	New      func() any
	Copy     func(any) any
	Equal    func(a, b any) bool
	Less     func(a, b any) bool
	Hash     func(any) uint64
	ToHost   func(any) any
	FromHost func(host any) (any, error)
}

// TypeMeta is the runtime type descriptor for the value layer. It plays the
// role of the C++ TypeMeta: a vtable plus shape metadata, looked up once per
// distinct type and shared (pointer-equal) thereafter.
type TypeMeta struct {
	Name   string
	Kind   Kind
	Flags  Flags
	Elem   *TypeMeta // element type: List/Set/Map value, CyclicBuffer, Queue
	Key    *TypeMeta // key type: Map only
	Fields []FieldMeta
	// N is the fixed arity for KindListFixed (0 for dynamic/other kinds).
	N   int
	Ops Ops
}

func (t *TypeMeta) String() string { return fmt.Sprintf("%s(%s)", t.Name, t.Kind) }

// FieldIndex returns the positional index of a named field, or -1.
func (t *TypeMeta) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// NewScalarType builds a TypeMeta for a scalar (leaf) value. zero constructs
// the zero value, equal/hash/less implement the comparison contract. hash and
// less may be nil when the type is not used as a set/map key.
func NewScalarType(name string, zero func() any, equal func(a, b any) bool, hash func(any) uint64, less func(a, b any) bool) *TypeMeta {
	flags := Flags(FlagTriviallyCopyable)
	if hash != nil {
		flags |= FlagHashable
	}
	wantType := fmt.Sprintf("%T", zero())
	return &TypeMeta{
		Name:  name,
		Kind:  KindScalar,
		Flags: flags,
		Ops: Ops{
			New:   zero,
			Copy:  func(v any) any { return v },
			Equal: equal,
			Hash:  hash,
			Less:  less,
			// A scalar's host representation is itself: Go's native int64,
			// float64, string, bool are already the host-interop form.
			ToHost: func(v any) any { return v },
			FromHost: func(host any) (any, error) {
				if got := fmt.Sprintf("%T", host); got != wantType {
					return nil, fmt.Errorf("value: %s FromHost: expected %s, got %s", name, wantType, got)
				}
				return host, nil
			},
		},
	}
}

// NewBundleType builds a TypeMeta describing a fixed named-field record
// (TSB's underlying value schema).
func NewBundleType(name string, fields []FieldMeta) *TypeMeta {
	t := &TypeMeta{Name: name, Kind: KindBundle, Fields: fields}
	t.Ops = Ops{
		New: func() any {
			vals := make([]any, len(fields))
			for i, f := range fields {
				vals[i] = f.Type.Ops.New()
			}
			return vals
		},
		Copy: func(v any) any {
			src := v.([]any)
			out := make([]any, len(src))
			for i, f := range fields {
				out[i] = f.Type.Ops.Copy(src[i])
			}
			return out
		},
		Equal: func(a, b any) bool {
			av, bv := a.([]any), b.([]any)
			for i, f := range fields {
				if !f.Type.Ops.Equal(av[i], bv[i]) {
					return false
				}
			}
			return true
		},
		ToHost: func(v any) any {
			src := v.([]any)
			out := make(map[string]any, len(fields))
			for i, f := range fields {
				if f.Type.Ops.ToHost != nil {
					out[f.Name] = f.Type.Ops.ToHost(src[i])
				} else {
					out[f.Name] = src[i]
				}
			}
			return out
		},
		FromHost: func(host any) (any, error) {
			m, ok := host.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("value: bundle %s FromHost: expected map[string]any, got %T", name, host)
			}
			out := make([]any, len(fields))
			for i, f := range fields {
				hv, present := m[f.Name]
				if !present {
					return nil, fmt.Errorf("value: bundle %s FromHost: missing field %q", name, f.Name)
				}
				if f.Type.Ops.FromHost != nil {
					fv, err := f.Type.Ops.FromHost(hv)
					if err != nil {
						return nil, fmt.Errorf("value: bundle %s field %q: %w", name, f.Name, err)
					}
					out[i] = fv
				} else {
					out[i] = hv
				}
			}
			return out, nil
		},
	}
	return t
}

// NewListType builds a TypeMeta for a fixed-arity (n > 0) or dynamic (n == 0)
// homogeneous list of elem.
func NewListType(elem *TypeMeta, n int) *TypeMeta {
	kind := KindListDyn
	if n > 0 {
		kind = KindListFixed
	}
	t := &TypeMeta{Name: "list<" + elem.Name + ">", Kind: kind, Elem: elem, N: n}
	t.Ops = Ops{
		New: func() any {
			if n > 0 {
				out := make([]any, n)
				for i := range out {
					out[i] = elem.Ops.New()
				}
				return out
			}
			return []any{}
		},
		Copy: func(v any) any {
			src := v.([]any)
			out := make([]any, len(src))
			for i, e := range src {
				out[i] = elem.Ops.Copy(e)
			}
			return out
		},
		Equal: func(a, b any) bool {
			av, bv := a.([]any), b.([]any)
			if len(av) != len(bv) {
				return false
			}
			for i := range av {
				if !elem.Ops.Equal(av[i], bv[i]) {
					return false
				}
			}
			return true
		},
	}
	return t
}

// NewSetType builds a TypeMeta for a TSS[elem]-shaped set of elem.
func NewSetType(elem *TypeMeta) *TypeMeta {
	return &TypeMeta{Name: "set<" + elem.Name + ">", Kind: KindSet, Elem: elem}
}

// NewMapType builds a TypeMeta for a TSD[key,val]-shaped map.
func NewMapType(key, val *TypeMeta) *TypeMeta {
	return &TypeMeta{Name: "map<" + key.Name + "," + val.Name + ">", Kind: KindMap, Key: key, Elem: val}
}
