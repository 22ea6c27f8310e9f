package ecs

import (
	"reflect"
	"unsafe"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Registry owns the live entity population: the index table that resolves
// handles to storage slots, one archetype per registered entity class, and
// the deferred destruction queue. It is not safe for concurrent use.
type Registry struct {
	meta *MetaRegistry
	log  zerolog.Logger

	// records is indexed by EntityID.Index. A record stays allocated after
	// its entity dies so the generation survives for the next reuse.
	records     []EntityRecord
	freeIndices []uint32
	nextIndex   uint32

	archetypes    *intmap.Map[uint64, *Archetype]
	archetypeList []*Archetype

	pending []EntityID

	tableBuf []unsafe.Pointer
}

// NewRegistry returns an empty registry backed by the given type table.
func NewRegistry(meta *MetaRegistry) *Registry {
	return &Registry{
		meta:       meta,
		log:        zerolog.Nop(),
		records:    make([]EntityRecord, 1, 1024),
		nextIndex:  1, // index 0 belongs to InvalidEntity
		archetypes: intmap.New[uint64, *Archetype](16),
	}
}

// SetLogger installs a logger used for lifecycle diagnostics.
func (r *Registry) SetLogger(log zerolog.Logger) {
	r.log = log
}

// Meta returns the type table the registry was built with.
func (r *Registry) Meta() *MetaRegistry {
	return r.meta
}

// EntityCount returns the number of live entities across all archetypes.
func (r *Registry) EntityCount() uint32 {
	var n uint32
	for _, a := range r.archetypeList {
		n += a.Count()
	}
	return n
}

// ChunkCount returns the number of live chunks across all archetypes.
func (r *Registry) ChunkCount() uint32 {
	var n uint32
	for _, a := range r.archetypeList {
		n += a.ChunkCount()
	}
	return n
}

// Archetypes returns every archetype instantiated so far.
func (r *Registry) Archetypes() []*Archetype {
	return r.archetypeList
}

// Create spawns one entity of class V, owned by the server, and returns its
// handle. V must have been registered as a prefab.
func Create[V any](r *Registry) (EntityID, error) {
	return CreateOwned[V](r, 0)
}

// CreateOwned spawns one entity of class V stamped with the given owner id.
func CreateOwned[V any](r *Registry, owner uint8) (EntityID, error) {
	class := r.meta.classByType(reflect.TypeOf((*V)(nil)).Elem())
	if class == nil {
		return InvalidEntity, eris.Errorf("cannot create entity: prefab type %s not registered", reflect.TypeOf((*V)(nil)).Elem().String())
	}
	return r.create(class, owner)
}

// CreateByClass spawns one entity of a class looked up by id.
func (r *Registry) CreateByClass(classID ClassID, owner uint8) (EntityID, error) {
	class := r.meta.classByID(classID)
	if class == nil {
		return InvalidEntity, eris.Errorf("cannot create entity: class id %d not registered", classID)
	}
	return r.create(class, owner)
}

func (r *Registry) create(class *classMeta, owner uint8) (EntityID, error) {
	index, generation, err := r.allocateIndex()
	if err != nil {
		return InvalidEntity, err
	}
	id := NewEntityID(index, generation, class.id, owner)

	arch := r.archetypeFor(class)
	chunk, chunkIndex, slot := arch.PushEntity(id)
	r.records[index] = EntityRecord{
		arch:       arch,
		chunk:      chunk,
		chunkIndex: chunkIndex,
		slot:       slot,
		generation: generation,
	}
	return id, nil
}

// allocateIndex hands out a fresh index, preferring recycled ones. A
// recycled index comes back with its generation advanced, skipping 0 on
// wrap so stale handles from the previous life never validate.
func (r *Registry) allocateIndex() (uint32, uint16, error) {
	if n := len(r.freeIndices); n > 0 {
		index := r.freeIndices[n-1]
		r.freeIndices = r.freeIndices[:n-1]
		generation := r.records[index].generation + 1
		if generation == 0 {
			generation = 1
		}
		return index, generation, nil
	}
	if r.nextIndex > MaxEntityIndex {
		return 0, 0, eris.Errorf("entity index space exhausted (%d live indices)", MaxEntityIndex)
	}
	index := r.nextIndex
	r.nextIndex++
	for uint32(len(r.records)) <= index {
		r.records = append(r.records, EntityRecord{})
	}
	return index, 1, nil
}

// resolve maps a handle to its record, or nil when the handle is stale or
// was never issued.
func (r *Registry) resolve(id EntityID) *EntityRecord {
	index := id.Index()
	if !id.IsValid() || index >= uint32(len(r.records)) {
		return nil
	}
	rec := &r.records[index]
	if !rec.IsValid() || rec.generation != id.Generation() {
		return nil
	}
	return rec
}

// Alive reports whether the handle still refers to a live entity.
func (r *Registry) Alive(id EntityID) bool {
	return r.resolve(id) != nil
}

// Locate returns the storage location of a live entity. ok is false for
// stale or invalid handles.
func (r *Registry) Locate(id EntityID) (EntityLocation, bool) {
	rec := r.resolve(id)
	if rec == nil {
		return EntityLocation{}, false
	}
	return EntityLocation{
		Archetype:  rec.arch,
		Chunk:      rec.chunk,
		ChunkIndex: rec.chunkIndex,
		Slot:       rec.slot,
	}, true
}

// GetComponent returns a pointer into chunk storage for a whole-struct
// component of the entity, or nil when the handle is stale or the entity's
// class does not carry C as cold data. The pointer is invalidated by any
// create or destroy in the same archetype.
func GetComponent[C any](r *Registry, id EntityID) *C {
	rec := r.resolve(id)
	if rec == nil {
		return nil
	}
	cm := r.meta.Component(reflect.TypeOf((*C)(nil)).Elem())
	if cm == nil || cm.Hot {
		return nil
	}
	slotStart, ok := componentSlot(r.meta.classByID(id.Class()), cm)
	if !ok {
		return nil
	}
	fa := rec.arch.arrays[slotStart]
	return (*C)(rec.chunk.Pointer(fa.offset + uintptr(rec.slot)*fa.size))
}

// GetComponentSoA returns an accessor over a decomposed component of the
// entity. The zero SoAView is returned when the handle is stale or the
// entity's class does not carry C as hot data.
func GetComponentSoA[C any](r *Registry, id EntityID) SoAView[C] {
	rec := r.resolve(id)
	if rec == nil {
		return SoAView[C]{}
	}
	cm := r.meta.Component(reflect.TypeOf((*C)(nil)).Elem())
	if cm == nil || !cm.Hot {
		return SoAView[C]{}
	}
	slotStart, ok := componentSlot(r.meta.classByID(id.Class()), cm)
	if !ok {
		return SoAView[C]{}
	}
	arrays := make([]unsafe.Pointer, len(cm.Fields))
	for i := range cm.Fields {
		arrays[i] = rec.chunk.Pointer(rec.arch.arrays[slotStart+i].offset)
	}
	return SoAView[C]{meta: cm, arrays: arrays, index: uint32(rec.slot)}
}

// HasComponent reports whether the entity is live and its class carries
// component C, in either storage form.
func HasComponent[C any](r *Registry, id EntityID) bool {
	if r.resolve(id) == nil {
		return false
	}
	cm := r.meta.Component(reflect.TypeOf((*C)(nil)).Elem())
	if cm == nil {
		return false
	}
	_, ok := componentSlot(r.meta.classByID(id.Class()), cm)
	return ok
}

// componentSlot finds the first field-array table slot belonging to the
// component within the class's layout.
func componentSlot(class *classMeta, cm *ComponentMeta) (int, bool) {
	if class == nil {
		return 0, false
	}
	slot := 0
	for _, c := range class.components {
		if c == cm {
			return slot, true
		}
		slot += c.FieldArraySlots()
	}
	return 0, false
}

// Destroy queues the entity for destruction at the end of the current
// frame. Queueing a stale handle, or the same handle twice, is harmless.
func (r *Registry) Destroy(id EntityID) {
	r.pending = append(r.pending, id)
}

// PendingDestructions returns how many handles are queued.
func (r *Registry) PendingDestructions() int {
	return len(r.pending)
}

// ProcessDeferredDestructions drains the destruction queue. Each queued
// handle is validated against the current generation; stale ones are
// skipped. Live ones are removed by swapping the archetype's tail entity
// into the vacated slot, so storage stays densely packed, and their index
// is recycled. Returns how many entities were destroyed.
func (r *Registry) ProcessDeferredDestructions() int {
	destroyed := 0
	for _, id := range r.pending {
		rec := r.resolve(id)
		if rec == nil {
			continue
		}
		arch := rec.arch
		global := rec.chunkIndex*arch.EntitiesPerChunk() + uint32(rec.slot)
		moved, at := arch.RemoveEntity(global)
		if moved.IsValid() {
			mr := &r.records[moved.Index()]
			mr.chunk = at.Chunk
			mr.chunkIndex = at.ChunkIndex
			mr.slot = at.Slot
		}
		rec.invalidate()
		r.freeIndices = append(r.freeIndices, id.Index())
		destroyed++
	}
	r.pending = r.pending[:0]
	if destroyed > 0 {
		r.log.Debug().Int("destroyed", destroyed).Msg("processed deferred destructions")
	}
	return destroyed
}

// Query returns the archetypes whose signatures contain every component in
// sig.
func (r *Registry) Query(sig Signature) []*Archetype {
	var out []*Archetype
	for _, a := range r.archetypeList {
		if a.Signature().ContainsAll(sig) {
			out = append(out, a)
		}
	}
	return out
}

// InvokePrePhysics runs the PrePhysics hook of every class that has one.
func (r *Registry) InvokePrePhysics(dt float64) {
	r.invokePhase(dt, func(c *classMeta) invokeFunc { return c.prePhys })
}

// InvokeUpdate runs the Update hook of every class that has one.
func (r *Registry) InvokeUpdate(dt float64) {
	r.invokePhase(dt, func(c *classMeta) invokeFunc { return c.update })
}

// InvokePostPhysics runs the PostPhysics hook of every class that has one.
func (r *Registry) InvokePostPhysics(dt float64) {
	r.invokePhase(dt, func(c *classMeta) invokeFunc { return c.postPhys })
}

func (r *Registry) invokePhase(dt float64, pick func(*classMeta) invokeFunc) {
	for _, arch := range r.archetypeList {
		class := r.meta.classByID(arch.ClassID())
		fn := pick(class)
		if fn == nil || arch.Count() == 0 {
			continue
		}
		if cap(r.tableBuf) < arch.FieldArrayCount() {
			r.tableBuf = make([]unsafe.Pointer, arch.FieldArrayCount())
		}
		table := r.tableBuf[:arch.FieldArrayCount()]
		for ci := uint32(0); ci < arch.ChunkCount(); ci++ {
			arch.BuildFieldArrayTable(ci, table)
			fn(dt, table, arch.ChunkEntityCount(ci))
		}
	}
}

// archetypeFor returns the class's archetype, instantiating it on first
// use. The lookup key hashes the signature and class id together; a key
// collision falls back to an exact scan before a new archetype is made.
func (r *Registry) archetypeFor(class *classMeta) *Archetype {
	key := archetypeKey(class.signature, class.id)
	if a, ok := r.archetypes.Get(key); ok {
		if a.Signature() == class.signature && a.ClassID() == class.id {
			return a
		}
		for _, a := range r.archetypeList {
			if a.Signature() == class.signature && a.ClassID() == class.id {
				return a
			}
		}
	}
	a := newArchetype(class)
	r.archetypes.Put(key, a)
	r.archetypeList = append(r.archetypeList, a)
	r.log.Debug().
		Str("archetype", a.Name()).
		Uint32("entities_per_chunk", a.EntitiesPerChunk()).
		Int("field_arrays", a.FieldArrayCount()).
		Msg("instantiated archetype")
	return a
}

func archetypeKey(sig Signature, classID ClassID) uint64 {
	return sig.Key() ^ (uint64(classID)+1)*0x9E3779B97F4A7C15
}
