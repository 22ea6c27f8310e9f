package ecs

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// Lifecycle hooks a prefab view can implement. Each hook runs once per
// BatchWidth-sized group of entities (plus a masked tail), with the view's
// proxies already bound to the group's field arrays.
type (
	// Updater runs during the variable-rate update phase.
	Updater interface {
		Update(dt float64)
	}
	// PrePhysicsUpdater runs before each fixed-rate physics step.
	PrePhysicsUpdater interface {
		PrePhysics(dt float64)
	}
	// PostPhysicsUpdater runs after each fixed-rate physics step.
	PostPhysicsUpdater interface {
		PostPhysics(dt float64)
	}
)

// RegisterPrefab records entity class V with the registry and returns its
// class id. V is a view struct: it embeds Batch, declares one proxy group or
// Ref per component, and optionally implements lifecycle hooks on its
// pointer type. Every component V names must already be registered.
// Registering the same view type twice returns the existing id.
func RegisterPrefab[V any](m *MetaRegistry) (ClassID, error) {
	vt := reflect.TypeOf((*V)(nil)).Elem()
	if existing := m.classByType(vt); existing != nil {
		return existing.id, nil
	}
	if len(m.classesByID) >= MaxEntityClasses {
		return 0, eris.Errorf("cannot register prefab %s: entity class limit (%d) reached", vt.String(), MaxEntityClasses)
	}

	schema, err := SchemaOf[V]()
	if err != nil {
		return 0, eris.Wrapf(err, "prefab %s has an invalid view struct", vt.String())
	}

	class := &classMeta{
		id:       ClassID(len(m.classesByID)),
		viewType: vt,
		name:     vt.Name(),
		schema:   schema,
	}

	slot := 0
	for _, member := range schema.Members() {
		cm := m.Component(member.Component)
		if cm == nil {
			return 0, eris.Errorf("prefab %s member %s uses unregistered component %s", vt.String(), member.Name, member.Component.String())
		}
		if class.signature.Has(cm.TypeID) {
			return 0, eris.Errorf("prefab %s names component %s twice", vt.String(), cm.Name)
		}
		if err := checkMemberStorage(member, cm); err != nil {
			return 0, eris.Wrapf(err, "prefab %s member %s", vt.String(), member.Name)
		}

		class.signature.Set(cm.TypeID)
		class.components = append(class.components, cm)
		if member.Hot {
			for _, po := range member.proxyOffsets {
				class.bindings = append(class.bindings, binding{
					viewOffset: member.ViewOffset + po,
					slot:       slot,
				})
				slot++
			}
		} else {
			class.bindings = append(class.bindings, binding{
				viewOffset: member.ViewOffset,
				slot:       slot,
			})
			slot++
		}
	}
	class.cursorOff = schema.cursorOff
	class.slotCount = slot

	if _, ok := any((*V)(nil)).(PrePhysicsUpdater); ok {
		class.prePhys = makeInvoker[V](class, func(v *V) func(float64) {
			return any(v).(PrePhysicsUpdater).PrePhysics
		})
	}
	if _, ok := any((*V)(nil)).(Updater); ok {
		class.update = makeInvoker[V](class, func(v *V) func(float64) {
			return any(v).(Updater).Update
		})
	}
	if _, ok := any((*V)(nil)).(PostPhysicsUpdater); ok {
		class.postPhys = makeInvoker[V](class, func(v *V) func(float64) {
			return any(v).(PostPhysicsUpdater).PostPhysics
		})
	}

	m.classesByType[vt] = class
	m.classesByID = append(m.classesByID, class)

	m.log.Debug().
		Str("prefab", class.name).
		Uint16("class_id", uint16(class.id)).
		Int("components", len(class.components)).
		Int("field_arrays", class.slotCount).
		Bool("update", class.update != nil).
		Bool("pre_physics", class.prePhys != nil).
		Bool("post_physics", class.postPhys != nil).
		Msg("registered prefab")

	return class.id, nil
}

// PrefabID returns the class id previously assigned to view type V.
func PrefabID[V any](m *MetaRegistry) (ClassID, error) {
	class := m.classByType(reflect.TypeOf((*V)(nil)).Elem())
	if class == nil {
		return 0, eris.Errorf("prefab type %s not registered", reflect.TypeOf((*V)(nil)).Elem().String())
	}
	return class.id, nil
}

// checkMemberStorage verifies the view member's access shape against how the
// component was registered: proxy groups need hot components whose fields
// line up one for one, Refs need whole-struct storage.
func checkMemberStorage(member SchemaMember, cm *ComponentMeta) error {
	if member.Hot != cm.Hot {
		if member.Hot {
			return eris.Errorf("uses a proxy group but component %s is not registered Hot", cm.Name)
		}
		return eris.Errorf("uses a Ref but component %s is registered Hot", cm.Name)
	}
	if !member.Hot {
		return nil
	}
	if len(member.proxyOffsets) != len(cm.Fields) {
		return eris.Errorf("declares %d field proxies, component %s has %d fields", len(member.proxyOffsets), cm.Name, len(cm.Fields))
	}
	for i, f := range cm.Fields {
		if member.proxyNames[i] != f.Name {
			return eris.Errorf("proxy %d is named %s, component field is %s", i, member.proxyNames[i], f.Name)
		}
		if member.proxyScalars[i] != f.Type {
			return eris.Errorf("proxy %s is over %s, component field is %s", f.Name, member.proxyScalars[i], f.Type)
		}
	}
	return nil
}

// makeInvoker compiles one lifecycle hook of view type V into an invokeFunc.
// The invoker hydrates a single stack view against a chunk's field-array
// table once, then walks the chunk in BatchWidth-sized groups by moving the
// shared cursor, finishing with a masked tail group when count is not a
// multiple of the width. Lanes past the tail mask are never touched.
func makeInvoker[V any](class *classMeta, method func(*V) func(float64)) invokeFunc {
	bindings := class.bindings
	cursorOff := class.cursorOff
	return func(dt float64, table []unsafe.Pointer, count uint32) {
		var view V
		base := unsafe.Pointer(&view)
		cur := (*batchCursor)(unsafe.Add(base, cursorOff))
		*cur = batchCursor{index: 0, count: -1}
		for _, b := range bindings {
			h := (*proxyHeader)(unsafe.Add(base, b.viewOffset))
			h.base = table[b.slot]
			h.cur = cur
		}
		fn := method(&view)

		full := count / BatchWidth
		for i := uint32(0); i < full; i++ {
			cur.index = i * BatchWidth
			fn(dt)
		}
		if rem := count % BatchWidth; rem != 0 {
			cur.index = full * BatchWidth
			cur.count = int32(rem)
			fn(dt)
		}
	}
}
