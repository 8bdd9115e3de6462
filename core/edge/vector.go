package edge

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// Vector is the generic record container. It wraps a map[string]any, a
// struct (or pointer to one) or another component, and addresses its
// members by name.
//
// Mutation happens on the wrapped value in place; nothing is copied.
type Vector struct {
	inner any
}

// NewVector wraps inner as a generic record.
func NewVector(inner any) *Vector {
	return &Vector{inner: inner}
}

// Inner returns the wrapped value.
func (v *Vector) Inner() any {
	return v.inner
}

// Get reads the member addressed by path. An empty path returns the wrapped
// value itself.
func (v *Vector) Get(path Path) (any, error) {
	path = path.Compact()
	switch len(path) {
	case 0:
		return v.inner, nil
	case 1:
		return getMember(v.inner, path[0])
	}
	return deepGet(v, path)
}

// Set writes value at path. An empty path merges value into the record.
// Setting Absent on a map member deletes it and reports whether it existed.
func (v *Vector) Set(value any, path Path) (any, error) {
	path = path.Compact()
	switch len(path) {
	case 0:
		return nil, v.merge(value)
	case 1:
		return setMember(v.inner, path[0], value)
	}
	return deepSet(v, value, path)
}

// Invoke relays to the wrapped value when it is itself a component, and
// otherwise applies the default get/set dispatch.
func (v *Vector) Invoke(ctx context.Context, intent Intent, data any, opts Options) (any, error) {
	if e, ok := v.inner.(Edge); ok {
		return e.Invoke(ctx, intent, data, opts)
	}
	return Dispatch(v, intent, data)
}

// All yields the members of the record as (name, value) pairs. Map members
// are yielded in key order.
func (v *Vector) All() iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		switch in := v.inner.(type) {
		case map[string]any:
			for _, k := range slices.Sorted(maps.Keys(in)) {
				if !yield(k, in[k]) {
					return
				}
			}
			return
		case interface{ All() iter.Seq2[any, any] }:
			for k, val := range in.All() {
				if !yield(k, val) {
					return
				}
			}
			return
		}

		rv := reflect.Indirect(reflect.ValueOf(v.inner))
		if rv.Kind() != reflect.Struct {
			return
		}
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			if !yield(f.Name, rv.Field(i).Interface()) {
				return
			}
		}
	}
}

func (v *Vector) merge(value any) error {
	switch in := v.inner.(type) {
	case map[string]any:
		if in == nil {
			return fmt.Errorf("%w: nil map", ErrNotContainer)
		}
		src, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: cannot merge %T into a record", ErrNotContainer, value)
		}
		maps.Copy(in, src)
		return nil
	case Setter:
		_, err := in.Set(value, nil)
		return err
	}

	src, ok := value.(map[string]any)
	if !ok || reflect.Indirect(reflect.ValueOf(v.inner)).Kind() != reflect.Struct {
		return fmt.Errorf("%w: cannot merge %T into %T", ErrNotContainer, value, v.inner)
	}
	for _, k := range slices.Sorted(maps.Keys(src)) {
		if _, err := setMember(v.inner, k, src[k]); err != nil {
			return err
		}
	}
	return nil
}

// ToVertex wraps x in the container variant matching its runtime type.
func ToVertex(x any) Vertex {
	switch v := x.(type) {
	case Vertex:
		return v
	case map[any]any:
		return NewMapVector(v, nil)
	case []any:
		return NewArrayVector(v)
	case map[string]any:
		return NewVector(v)
	case Edge, Getter, Setter:
		return NewVector(v)
	case nil:
		return NewScalar(nil)
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Struct:
		return NewVector(x)
	case reflect.Pointer:
		if !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
			return NewVector(x)
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return NewVector(x)
		}
	}
	return NewScalar(x)
}

func deepGet(v Vertex, path Path) (any, error) {
	next, err := v.Get(path[:1])
	if err != nil {
		return nil, err
	}
	return ToVertex(next).Get(path[1:])
}

// deepSet assigns the last key of path on the container addressed by the
// preceding keys. Sequences reached this way are written back to their parent
// when their length changes.
func deepSet(v Vertex, value any, path Path) (any, error) {
	k, rest := path[len(path)-1], path[:len(path)-1]
	last, err := v.Get(rest)
	if err != nil {
		return nil, err
	}

	target := ToVertex(last)
	if _, ok := target.(*Scalar); ok {
		return nil, fmt.Errorf("%w: cannot set %v on %T at %s", ErrNotContainer, k, last, rest)
	}

	before := -1
	if s, ok := last.([]any); ok {
		before = len(s)
	}

	res, err := target.Set(value, Path{k})
	if err != nil {
		return nil, err
	}

	if seq, ok := target.(*ArrayVector); ok && before != len(seq.inner) {
		if _, err := v.Set(seq.inner, rest); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func getMember(inner any, key any) (any, error) {
	switch in := inner.(type) {
	case map[string]any:
		name, ok := keyName(key)
		if !ok {
			return nil, nil
		}
		return in[name], nil
	case Getter:
		return in.Get(Path{key})
	case nil:
		return nil, fmt.Errorf("%w: cannot read %v of nil", ErrNotContainer, key)
	}

	name, ok := keyName(key)
	if !ok {
		return nil, nil
	}
	rv := reflect.Indirect(reflect.ValueOf(inner))
	switch rv.Kind() {
	case reflect.Struct:
		f, ok := structField(rv, name)
		if !ok {
			return nil, nil
		}
		return f.Interface(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, nil
		}
		return mv.Interface(), nil
	}
	return nil, fmt.Errorf("%w: cannot read %v of %T", ErrNotContainer, key, inner)
}

func setMember(inner any, key any, value any) (any, error) {
	name, ok := keyName(key)
	if !ok {
		if s, isSetter := inner.(Setter); isSetter {
			return s.Set(value, Path{key})
		}
		return nil, fmt.Errorf("%w: invalid key %v", ErrNotContainer, key)
	}

	switch in := inner.(type) {
	case map[string]any:
		if in == nil {
			return nil, fmt.Errorf("%w: nil map", ErrNotContainer)
		}
		if IsAbsent(value) {
			_, existed := in[name]
			delete(in, name)
			return existed, nil
		}
		in[name] = value
		return name, nil
	case Setter:
		return in.Set(value, Path{key})
	case nil:
		return nil, fmt.Errorf("%w: cannot set %v on nil", ErrNotContainer, key)
	}

	rv := reflect.ValueOf(inner)
	switch {
	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct:
		f, ok := structField(rv.Elem(), name)
		if !ok || !f.CanSet() {
			return nil, fmt.Errorf("%w: no settable field %q on %T", ErrNotContainer, name, inner)
		}
		if IsAbsent(value) || value == nil {
			f.Set(reflect.Zero(f.Type()))
			return name, nil
		}
		val, ok := fieldValue(reflect.ValueOf(value), f.Type())
		if !ok {
			return nil, fmt.Errorf("%w: cannot assign %T to field %q", ErrNotContainer, value, name)
		}
		f.Set(val)
		return name, nil
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String && !rv.IsNil():
		k := reflect.ValueOf(name).Convert(rv.Type().Key())
		if IsAbsent(value) {
			existed := rv.MapIndex(k).IsValid()
			rv.SetMapIndex(k, reflect.Value{})
			return existed, nil
		}
		val := reflect.ValueOf(value)
		if !val.IsValid() {
			val = reflect.Zero(rv.Type().Elem())
		}
		if !val.Type().AssignableTo(rv.Type().Elem()) {
			return nil, fmt.Errorf("%w: cannot assign %T into %T", ErrNotContainer, value, inner)
		}
		rv.SetMapIndex(k, val)
		return name, nil
	}
	return nil, fmt.Errorf("%w: cannot set %v on %T", ErrNotContainer, key, inner)
}

// fieldValue adapts val to a field of type t. Beyond plain assignment it
// only converts between numbers when no value is lost, and between types
// sharing a string or bool kind.
func fieldValue(val reflect.Value, t reflect.Type) (reflect.Value, bool) {
	if val.Type().AssignableTo(t) {
		return val, true
	}
	from, to := val.Kind(), t.Kind()
	switch {
	case isNumber(from) && isNumber(to):
		if isUnsigned(to) && negative(val) {
			return reflect.Value{}, false
		}
		out := val.Convert(t)
		if !out.Convert(val.Type()).Equal(val) {
			return reflect.Value{}, false
		}
		return out, true
	case from == to && (from == reflect.String || from == reflect.Bool):
		return val.Convert(t), true
	}
	return reflect.Value{}, false
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func negative(v reflect.Value) bool {
	switch {
	case v.CanInt():
		return v.Int() < 0
	case v.CanFloat():
		return v.Float() < 0
	}
	return false
}

// structField finds an exported field by name, json tag or yaml tag.
func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Name == name || tagName(f.Tag.Get("json")) == name || tagName(f.Tag.Get("yaml")) == name {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}
