package ecs

import (
	"fmt"
	"unsafe"
)

// fieldArray is one packed array inside a chunk: a whole-struct component
// array, or a single field array of a decomposed component.
type fieldArray struct {
	name   string
	size   uintptr
	align  uintptr
	offset uintptr
}

// Archetype owns the chunked storage for one entity class. Every chunk holds
// the same set of packed arrays at the same offsets, and live entities stay
// densely packed: every chunk is full except possibly the last.
type Archetype struct {
	signature Signature
	classID   ClassID
	name      string

	entitiesPerChunk uint32
	arrays           []fieldArray // field-array table slot order

	total      uint32
	chunks     []*Chunk
	freeChunks []*Chunk

	// entities maps global slot -> handle, for swap-and-pop fixups.
	entities []EntityID
}

// fallbackStride stands in for the per-entity stride when an archetype has
// no per-entity storage at all, so chunk capacity stays derivable.
const fallbackStride = 64

// newArchetype lays out the class's field arrays inside the chunk and
// derives the chunk capacity. Layout failure means the component set can
// never fit a chunk, which is a programming error, so it panics.
func newArchetype(class *classMeta) *Archetype {
	a := &Archetype{
		signature: class.signature,
		classID:   class.id,
		name:      class.name,
	}
	for _, cm := range class.components {
		if cm.Hot {
			for _, f := range cm.Fields {
				a.arrays = append(a.arrays, fieldArray{
					name:  cm.Name + "." + f.Name,
					size:  f.Size,
					align: f.Align,
				})
			}
		} else {
			a.arrays = append(a.arrays, fieldArray{
				name:  cm.Name,
				size:  cm.Size,
				align: cm.Align,
			})
		}
	}
	a.buildLayout()
	return a
}

func (a *Archetype) buildLayout() {
	var stride uintptr
	for _, fa := range a.arrays {
		stride += fa.size
	}
	if stride == 0 {
		a.entitiesPerChunk = uint32((ChunkSize - chunkHeaderReserve) / fallbackStride)
		return
	}

	// Start from the stride-derived capacity and shrink until the aligned
	// arrays fit the usable chunk space.
	epc := uint32((ChunkSize - chunkHeaderReserve) / stride)
	for ; epc > 0; epc-- {
		cur := uintptr(chunkHeaderReserve)
		fits := true
		for i := range a.arrays {
			cur = alignUp(cur, a.arrays[i].align)
			a.arrays[i].offset = cur
			cur += a.arrays[i].size * uintptr(epc)
			if cur > ChunkSize {
				fits = false
				break
			}
		}
		if fits {
			a.entitiesPerChunk = epc
			return
		}
	}
	panic(fmt.Sprintf("archetype %s: component layout (stride %d) cannot fit a %d byte chunk", a.name, stride, ChunkSize))
}

func alignUp(n, align uintptr) uintptr {
	if align == 0 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// Name returns the archetype's class name.
func (a *Archetype) Name() string { return a.name }

// Signature returns the archetype's component signature.
func (a *Archetype) Signature() Signature { return a.signature }

// ClassID returns the entity class this archetype stores.
func (a *Archetype) ClassID() ClassID { return a.classID }

// EntitiesPerChunk returns how many entities one chunk holds.
func (a *Archetype) EntitiesPerChunk() uint32 { return a.entitiesPerChunk }

// Count returns the number of live entities.
func (a *Archetype) Count() uint32 { return a.total }

// ChunkCount returns how many chunks the live entities occupy.
func (a *Archetype) ChunkCount() uint32 {
	return (a.total + a.entitiesPerChunk - 1) / a.entitiesPerChunk
}

// FieldArrayCount returns the width of the archetype's field-array table.
func (a *Archetype) FieldArrayCount() int { return len(a.arrays) }

// EntityAt returns the handle stored at a global slot.
func (a *Archetype) EntityAt(global uint32) EntityID {
	return a.entities[global]
}

func (a *Archetype) locate(global uint32) (chunk *Chunk, chunkIndex uint32, slot uint16) {
	chunkIndex = global / a.entitiesPerChunk
	return a.chunks[chunkIndex], chunkIndex, uint16(global % a.entitiesPerChunk)
}

// PushEntity appends the entity to the tail slot, growing by one chunk when
// the last chunk is full. The new slot's storage is zeroed.
func (a *Archetype) PushEntity(id EntityID) (chunk *Chunk, chunkIndex uint32, slot uint16) {
	global := a.total
	if global/a.entitiesPerChunk == uint32(len(a.chunks)) {
		a.chunks = append(a.chunks, a.takeChunk())
	}
	chunk, chunkIndex, slot = a.locate(global)
	a.zeroSlot(chunk, slot)
	a.entities = append(a.entities, id)
	a.total++
	return chunk, chunkIndex, slot
}

func (a *Archetype) takeChunk() *Chunk {
	if n := len(a.freeChunks); n > 0 {
		c := a.freeChunks[n-1]
		a.freeChunks = a.freeChunks[:n-1]
		return c
	}
	return NewChunk()
}

func (a *Archetype) zeroSlot(c *Chunk, slot uint16) {
	for _, fa := range a.arrays {
		dst := unsafe.Slice((*byte)(c.Pointer(fa.offset+uintptr(slot)*fa.size)), fa.size)
		for i := range dst {
			dst[i] = 0
		}
	}
}

// RemoveEntity deletes the entity at a global slot by moving the tail entity
// into its place and shrinking by one. It returns the handle that moved and
// its new location so the caller can patch that entity's record; moved is
// InvalidEntity when the removed slot was the tail. A chunk emptied by the
// shrink is parked for reuse, not freed.
func (a *Archetype) RemoveEntity(global uint32) (moved EntityID, at EntityLocation) {
	last := a.total - 1
	if global != last {
		dstChunk, _, dstSlot := a.locate(global)
		srcChunk, _, srcSlot := a.locate(last)
		for _, fa := range a.arrays {
			copyBytes(
				dstChunk.Pointer(fa.offset+uintptr(dstSlot)*fa.size),
				srcChunk.Pointer(fa.offset+uintptr(srcSlot)*fa.size),
				fa.size,
			)
		}
		moved = a.entities[last]
		a.entities[global] = moved
		chunk, chunkIndex, slot := a.locate(global)
		at = EntityLocation{Archetype: a, Chunk: chunk, ChunkIndex: chunkIndex, Slot: slot}
	}
	a.entities = a.entities[:last]
	a.total = last

	if needed := int(a.ChunkCount()); needed < len(a.chunks) {
		tail := a.chunks[len(a.chunks)-1]
		a.chunks = a.chunks[:len(a.chunks)-1]
		a.freeChunks = append(a.freeChunks, tail)
	}
	return moved, at
}

// BuildFieldArrayTable fills table with the base pointer of every field
// array in the given chunk, in slot order. table must have FieldArrayCount
// entries.
func (a *Archetype) BuildFieldArrayTable(chunkIndex uint32, table []unsafe.Pointer) {
	c := a.chunks[chunkIndex]
	for i, fa := range a.arrays {
		table[i] = c.Pointer(fa.offset)
	}
}

// ChunkAt returns the chunk at the given index for read-only consumers.
func (a *Archetype) ChunkAt(chunkIndex uint32) *Chunk {
	return a.chunks[chunkIndex]
}

// ChunkEntityCount returns how many live entities the given chunk holds:
// every chunk is full except possibly the last.
func (a *Archetype) ChunkEntityCount(chunkIndex uint32) uint32 {
	start := chunkIndex * a.entitiesPerChunk
	if start >= a.total {
		return 0
	}
	if n := a.total - start; n < a.entitiesPerChunk {
		return n
	}
	return a.entitiesPerChunk
}
