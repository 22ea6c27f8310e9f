package ecs

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// SchemaMember describes one component slot of an entity view: which
// component backs it, whether that component stores decomposed, and where the
// member's proxy state lives inside the view struct.
type SchemaMember struct {
	Name      string
	Component reflect.Type
	Hot       bool

	// ViewOffset is the member's byte offset inside the view struct.
	ViewOffset uintptr
	// Group is the proxy group struct type for hot members, nil otherwise.
	Group reflect.Type

	proxyOffsets []uintptr
	proxyScalars []reflect.Type
	proxyNames   []string
}

// Schema is the ordered component layout of an entity class, derived from the
// class's view struct. Embedding one view struct inside another extends its
// schema in place; Replace swaps a member without disturbing the order.
type Schema struct {
	members   []SchemaMember
	cursorOff uintptr
	hasBatch  bool
}

// Members returns the schema's component slots in declaration order.
func (s Schema) Members() []SchemaMember {
	return s.members
}

// Member looks up a slot by name.
func (s Schema) Member(name string) (SchemaMember, bool) {
	for _, m := range s.members {
		if m.Name == name {
			return m, true
		}
	}
	return SchemaMember{}, false
}

// Extend appends the members of other, keeping this schema's cursor.
func (s Schema) Extend(other Schema) Schema {
	out := s
	out.members = append(append([]SchemaMember(nil), s.members...), other.members...)
	return out
}

// Replace swaps the named member for a new one, preserving its position.
func (s Schema) Replace(name string, m SchemaMember) (Schema, error) {
	out := s
	out.members = append([]SchemaMember(nil), s.members...)
	for i := range out.members {
		if out.members[i].Name == name {
			out.members[i] = m
			return out, nil
		}
	}
	return s, eris.Errorf("schema has no member %q", name)
}

// SchemaDefiner lets a view struct override its derived schema.
type SchemaDefiner interface {
	DefineSchema(derived Schema) Schema
}

var (
	batchType      = reflect.TypeOf((*Batch)(nil)).Elem()
	soaMarkerType  = reflect.TypeOf((*soaMarker)(nil)).Elem()
	refMarkerType  = reflect.TypeOf((*refMarker)(nil)).Elem()
	fieldProxyType = reflect.TypeOf((*fieldProxyMarker)(nil)).Elem()
)

// SchemaOf derives the schema of view struct V by walking its fields.
// Embedded view structs flatten into the parent in declaration order, so
// struct embedding is the extension mechanism. Exactly one Batch cursor must
// be reachable through the walk.
func SchemaOf[V any]() (Schema, error) {
	vt := reflect.TypeOf((*V)(nil)).Elem()
	if vt.Kind() != reflect.Struct {
		return Schema{}, eris.Errorf("view type %s is not a struct", vt)
	}
	var s Schema
	if err := walkViewStruct(vt, 0, &s); err != nil {
		return Schema{}, err
	}
	if !s.hasBatch {
		return Schema{}, eris.Errorf("view type %s does not embed ecs.Batch", vt)
	}
	if def, ok := any(new(V)).(SchemaDefiner); ok {
		s = def.DefineSchema(s)
	}
	return s, nil
}

func walkViewStruct(vt reflect.Type, base uintptr, s *Schema) error {
	for i := 0; i < vt.NumField(); i++ {
		f := vt.Field(i)
		off := base + f.Offset
		switch {
		case f.Type == batchType:
			if s.hasBatch {
				return eris.Errorf("view type %s embeds ecs.Batch more than once", vt)
			}
			s.hasBatch = true
			s.cursorOff = off + unsafe.Offsetof(Batch{}.cursor)
		case f.Type.Implements(soaMarkerType):
			m, err := hotMember(f, off)
			if err != nil {
				return err
			}
			s.members = append(s.members, m)
		case f.Type.Implements(refMarkerType):
			comp := reflect.Zero(f.Type).Interface().(refMarker).refComponentType()
			s.members = append(s.members, SchemaMember{
				Name:       f.Name,
				Component:  comp,
				Hot:        false,
				ViewOffset: off,
			})
		case f.Anonymous && f.Type.Kind() == reflect.Struct:
			if err := walkViewStruct(f.Type, off, s); err != nil {
				return err
			}
		default:
			return eris.Errorf("view field %s.%s is not a proxy group, Ref, Batch, or embedded view", vt, f.Name)
		}
	}
	return nil
}

func hotMember(f reflect.StructField, off uintptr) (SchemaMember, error) {
	gt := f.Type
	if gt.Kind() != reflect.Struct {
		return SchemaMember{}, eris.Errorf("proxy group %s must be a struct", f.Name)
	}
	comp := reflect.Zero(gt).Interface().(soaMarker).soaComponentType()
	m := SchemaMember{
		Name:       f.Name,
		Component:  comp,
		Hot:        true,
		ViewOffset: off,
		Group:      gt,
	}
	for i := 0; i < gt.NumField(); i++ {
		pf := gt.Field(i)
		if pf.Anonymous && pf.Type.Implements(soaMarkerType) && pf.Type.Size() == 0 {
			continue
		}
		if !pf.Type.Implements(fieldProxyType) {
			return SchemaMember{}, eris.Errorf("proxy group %s field %s is not a field proxy", gt, pf.Name)
		}
		scalar := reflect.Zero(pf.Type).Interface().(fieldProxyMarker).proxyScalarType()
		m.proxyOffsets = append(m.proxyOffsets, pf.Offset)
		m.proxyScalars = append(m.proxyScalars, scalar)
		m.proxyNames = append(m.proxyNames, pf.Name)
	}
	if len(m.proxyOffsets) == 0 {
		return SchemaMember{}, eris.Errorf("proxy group %s declares no field proxies", gt)
	}
	return m, nil
}
