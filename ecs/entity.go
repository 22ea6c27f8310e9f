package ecs

// EntityID is a 64-bit generational entity handle. It packs the dense table
// slot, a recycle counter, the originating class, and ownership metadata:
//
//	Index      20 bits  slot in the registry's entity table
//	Generation 16 bits  recycle counter, never 0 for a live handle
//	Class      12 bits  entity class that created the handle
//	Owner       8 bits  reserved for network routing (0 = server)
//	MetaFlags   8 bits  reserved
type EntityID uint64

// InvalidEntity is the reserved null handle. No live entity ever has it.
const InvalidEntity EntityID = 0

const (
	entityIndexBits      = 20
	entityGenerationBits = 16
	entityClassBits      = 12
	entityOwnerBits      = 8

	entityIndexMask      = 1<<entityIndexBits - 1
	entityGenerationMask = 1<<entityGenerationBits - 1
	entityClassMask      = 1<<entityClassBits - 1
	entityOwnerMask      = 1<<entityOwnerBits - 1
	entityMetaMask       = 0xFF

	entityGenerationShift = entityIndexBits
	entityClassShift      = entityGenerationShift + entityGenerationBits
	entityOwnerShift      = entityClassShift + entityClassBits
	entityMetaShift       = entityOwnerShift + entityOwnerBits
)

// MaxEntityIndex is the largest slot an EntityID can address.
const MaxEntityIndex = entityIndexMask

// NewEntityID packs the given parts into a handle. Out-of-range values are
// truncated to their field width.
func NewEntityID(index uint32, generation uint16, class ClassID, owner uint8) EntityID {
	return EntityID(uint64(index)&entityIndexMask |
		uint64(generation)<<entityGenerationShift |
		(uint64(class)&entityClassMask)<<entityClassShift |
		uint64(owner)<<entityOwnerShift)
}

// Index extracts the dense table slot.
func (e EntityID) Index() uint32 {
	return uint32(e & entityIndexMask)
}

// Generation extracts the recycle counter.
func (e EntityID) Generation() uint16 {
	return uint16(e >> entityGenerationShift & entityGenerationMask)
}

// Class extracts the entity class that allocated this handle.
func (e EntityID) Class() ClassID {
	return ClassID(e >> entityClassShift & entityClassMask)
}

// Owner extracts the owning peer (0 = server).
func (e EntityID) Owner() uint8 {
	return uint8(e >> entityOwnerShift & entityOwnerMask)
}

// MetaFlags extracts the reserved flag byte.
func (e EntityID) MetaFlags() uint8 {
	return uint8(e >> entityMetaShift & entityMetaMask)
}

// IsValid reports whether the handle is non-null. It says nothing about
// whether the entity is still alive; use Registry lookups for that.
func (e EntityID) IsValid() bool {
	return e != InvalidEntity
}

// IsServer reports whether the entity is server-owned (owner 0).
func (e EntityID) IsServer() bool {
	return e.Owner() == 0
}

// IsLocal reports whether the entity is owned by the given local client.
func (e EntityID) IsLocal(localClientID uint8) bool {
	return e.Owner() == localClientID
}

// EntityRecord is the reverse-lookup entry for one entity table slot: where
// the entity's data lives and which generation currently occupies the slot.
// A lookup is valid only while the record's generation matches the handle's;
// a mismatch means the handle is stale and must be treated as not-found.
type EntityRecord struct {
	arch       *Archetype
	chunk      *Chunk
	chunkIndex uint32
	slot       uint16
	generation uint16
}

// IsValid reports whether the record currently points at live storage.
func (r *EntityRecord) IsValid() bool {
	return r.arch != nil && r.chunk != nil
}

func (r *EntityRecord) invalidate() {
	r.arch = nil
	r.chunk = nil
	r.chunkIndex = 0
	r.slot = 0
}

// EntityLocation is the public form of an entity's storage address, handed to
// read-only consumers such as snapshot capture.
type EntityLocation struct {
	Archetype  *Archetype
	Chunk      *Chunk
	ChunkIndex uint32
	Slot       uint16
}
