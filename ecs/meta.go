package ecs

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// ComponentTypeID is a 1-based numeric identifier for a component type.
// 0 is reserved for "no component"; the signature bit for id is id-1.
type ComponentTypeID uint32

// ClassID is a numeric identifier for an entity class. It must fit the
// 12-bit class slice of an EntityID.
type ClassID uint16

// MaxEntityClasses caps how many entity classes fit the handle's class bits.
const MaxEntityClasses = 1 << entityClassBits

// FieldMeta describes one scalar field of a decomposed ("hot") component.
type FieldMeta struct {
	Name           string
	Type           reflect.Type
	Size           uintptr
	Align          uintptr
	OffsetInStruct uintptr
}

// ComponentMeta describes one registered component type: its identity, its
// in-memory shape, and, for hot components, the per-field decomposition used
// to build one array per scalar field.
type ComponentMeta struct {
	TypeID ComponentTypeID
	Type   reflect.Type
	Name   string
	Size   uintptr
	Align  uintptr

	// Hot components are stored as one parallel array per scalar field
	// instead of one array of whole structs.
	Hot    bool
	Fields []FieldMeta
}

// FieldArraySlots is how many field-array table slots the component
// occupies: one per field when decomposed, one otherwise.
func (m *ComponentMeta) FieldArraySlots() int {
	if m.Hot {
		return len(m.Fields)
	}
	return 1
}

// MetaRegistry is the static type table: component metadata, entity class
// metadata, and the per-class lifecycle invokers. It is an explicit object
// rather than process-global state so tests and embedders get clean,
// independent instances.
type MetaRegistry struct {
	log zerolog.Logger

	componentsByType map[reflect.Type]*ComponentMeta
	componentsByID   []*ComponentMeta // index = TypeID-1

	classesByType map[reflect.Type]*classMeta
	classesByID   []*classMeta
}

// NewMetaRegistry returns an empty type table.
func NewMetaRegistry() *MetaRegistry {
	return &MetaRegistry{
		log:              zerolog.Nop(),
		componentsByType: make(map[reflect.Type]*ComponentMeta, 16),
		classesByType:    make(map[reflect.Type]*classMeta, 16),
	}
}

// SetLogger installs a logger used for registration diagnostics.
func (m *MetaRegistry) SetLogger(log zerolog.Logger) {
	m.log = log
}

// ComponentCount returns how many component types are registered.
func (m *MetaRegistry) ComponentCount() int {
	return len(m.componentsByID)
}

// ClassCount returns how many entity classes are registered.
func (m *MetaRegistry) ClassCount() int {
	return len(m.classesByID)
}

// Component returns the metadata for a component's Go type, or nil.
func (m *MetaRegistry) Component(t reflect.Type) *ComponentMeta {
	return m.componentsByType[t]
}

// ComponentByID returns the metadata for a component id, or nil.
func (m *MetaRegistry) ComponentByID(id ComponentTypeID) *ComponentMeta {
	if id == 0 || int(id) > len(m.componentsByID) {
		return nil
	}
	return m.componentsByID[id-1]
}

func (m *MetaRegistry) classByType(t reflect.Type) *classMeta {
	return m.classesByType[t]
}

func (m *MetaRegistry) classByID(id ClassID) *classMeta {
	if int(id) >= len(m.classesByID) {
		return nil
	}
	return m.classesByID[id]
}

// ComponentOption configures component registration.
type ComponentOption func(*ComponentMeta)

// Hot marks a component for field decomposition: the archetype stores one
// parallel array per scalar field so batch views can stream each field
// independently.
func Hot() ComponentOption {
	return func(cm *ComponentMeta) {
		cm.Hot = true
	}
}

// RegisterComponent records component type T with the registry and returns
// its id. T must be fixed-size plain data: numeric scalars, bools, and
// arrays/structs thereof. Registering the same type twice returns the
// existing id.
func RegisterComponent[T any](m *MetaRegistry, opts ...ComponentOption) (ComponentTypeID, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if existing, ok := m.componentsByType[t]; ok {
		return existing.TypeID, nil
	}
	if len(m.componentsByID) >= MaxComponentTypes {
		return 0, eris.Errorf("cannot register component %s: component type limit (%d) reached", t.String(), MaxComponentTypes)
	}
	if err := validatePlainData(t); err != nil {
		return 0, eris.Wrapf(err, "component %s is not plain data", t.String())
	}

	cm := &ComponentMeta{
		TypeID: ComponentTypeID(len(m.componentsByID) + 1),
		Type:   t,
		Name:   t.Name(),
		Size:   t.Size(),
		Align:  uintptr(t.Align()),
	}
	for _, opt := range opts {
		opt(cm)
	}

	if cm.Hot {
		fields, err := decomposeFields(t)
		if err != nil {
			return 0, eris.Wrapf(err, "component %s cannot be field-decomposed", t.String())
		}
		cm.Fields = fields
	}

	m.componentsByType[t] = cm
	m.componentsByID = append(m.componentsByID, cm)

	m.log.Debug().
		Str("component", cm.Name).
		Uint32("type_id", uint32(cm.TypeID)).
		Bool("hot", cm.Hot).
		Int("fields", len(cm.Fields)).
		Msg("registered component")

	return cm.TypeID, nil
}

// ComponentID returns the id previously assigned to component type T.
func ComponentID[T any](m *MetaRegistry) (ComponentTypeID, error) {
	cm := m.Component(reflect.TypeOf((*T)(nil)).Elem())
	if cm == nil {
		return 0, eris.Errorf("component type %s not registered", reflect.TypeOf((*T)(nil)).Elem().String())
	}
	return cm.TypeID, nil
}

// decomposeFields flattens a hot component into per-scalar-field metadata.
// Every top-level field must be a scalar so it can become one packed array.
func decomposeFields(t reflect.Type) ([]FieldMeta, error) {
	if t.Kind() != reflect.Struct {
		return nil, eris.Errorf("hot components must be structs, got %s", t.Kind())
	}
	if t.NumField() == 0 {
		return nil, eris.New("hot components need at least one field")
	}
	fields := make([]FieldMeta, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !isScalarKind(f.Type.Kind()) {
			return nil, eris.Errorf("field %s is %s, hot component fields must be scalars", f.Name, f.Type.Kind())
		}
		fields = append(fields, FieldMeta{
			Name:           f.Name,
			Type:           f.Type,
			Size:           f.Type.Size(),
			Align:          uintptr(f.Type.Align()),
			OffsetInStruct: f.Offset,
		})
	}
	return fields, nil
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// validatePlainData rejects any type whose values could reference memory
// outside the chunk. Component data is copied and aliased as raw bytes, so
// pointers, slices, maps, strings, channels, funcs, and interfaces are out.
func validatePlainData(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		return validatePlainData(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := validatePlainData(t.Field(i).Type); err != nil {
				return err
			}
		}
		return nil
	default:
		return eris.Errorf("kind %s is not allowed in component data", t.Kind())
	}
}

// invokeFunc runs one lifecycle hook over a chunk's field arrays: it binds a
// batch view to the table and processes count entities in width-sized groups
// plus one masked tail.
type invokeFunc func(dt float64, table []unsafe.Pointer, count uint32)

// binding maps one proxy field inside a view struct to a field-array table
// slot.
type binding struct {
	viewOffset uintptr
	slot       int
}

// classMeta is the registered description of one entity class: its schema,
// derived signature, compiled proxy bindings, and lifecycle invokers.
type classMeta struct {
	id         ClassID
	viewType   reflect.Type
	name       string
	signature  Signature
	schema     Schema
	components []*ComponentMeta // schema order
	bindings   []binding
	cursorOff  uintptr
	slotCount  int

	prePhys  invokeFunc
	update   invokeFunc
	postPhys invokeFunc
}
