package ecs

import (
	"reflect"
	"unsafe"
)

// TemporalCache keeps a ring of recent frame snapshots for interpolation and
// lag compensation. Each capture copies the live prefix of every field array
// out of chunk storage into flat per-archetype slabs, evicting the oldest
// frame once the ring wraps.
type TemporalCache struct {
	reg    *Registry
	depth  int
	frames []FrameSnapshot
	head   int
	count  int
}

// FrameSnapshot is the captured state of every archetype at one frame.
type FrameSnapshot struct {
	Frame      uint64
	archetypes []archetypeSnapshot
}

type archetypeSnapshot struct {
	arch     *Archetype
	count    uint32
	entities []EntityID
	// arrays holds one tightly packed slab per field array, count elements
	// each, with chunk boundaries compacted away.
	arrays [][]byte
}

// NewTemporalCache returns a cache holding up to depth frames.
func NewTemporalCache(reg *Registry, depth int) *TemporalCache {
	if depth < 1 {
		depth = 1
	}
	return &TemporalCache{
		reg:    reg,
		depth:  depth,
		frames: make([]FrameSnapshot, depth),
	}
}

// Depth returns the ring capacity.
func (tc *TemporalCache) Depth() int { return tc.depth }

// Len returns how many frames are currently held.
func (tc *TemporalCache) Len() int { return tc.count }

// Capture records the current state of every archetype under the given
// frame number, evicting the oldest frame once the ring is full.
func (tc *TemporalCache) Capture(frame uint64) {
	fs := &tc.frames[tc.head]
	fs.Frame = frame
	fs.archetypes = fs.archetypes[:0]

	for _, arch := range tc.reg.Archetypes() {
		n := arch.Count()
		if n == 0 {
			continue
		}
		as := archetypeSnapshot{
			arch:     arch,
			count:    n,
			entities: append([]EntityID(nil), arch.entities...),
			arrays:   make([][]byte, len(arch.arrays)),
		}
		for i, fa := range arch.arrays {
			slab := make([]byte, 0, uintptr(n)*fa.size)
			for ci := uint32(0); ci < arch.ChunkCount(); ci++ {
				live := arch.ChunkEntityCount(ci)
				src := unsafe.Slice((*byte)(arch.chunks[ci].Pointer(fa.offset)), uintptr(live)*fa.size)
				slab = append(slab, src...)
			}
			as.arrays[i] = slab
		}
		fs.archetypes = append(fs.archetypes, as)
	}

	tc.head = (tc.head + 1) % tc.depth
	if tc.count < tc.depth {
		tc.count++
	}
}

// Frame returns the snapshot age frames back, with age 0 being the most
// recent capture. ok is false when the ring holds no frame that old.
func (tc *TemporalCache) Frame(age int) (*FrameSnapshot, bool) {
	if age < 0 || age >= tc.count {
		return nil, false
	}
	idx := (tc.head - 1 - age + 2*tc.depth) % tc.depth
	return &tc.frames[idx], true
}

// EntityCount returns how many entities the snapshot captured.
func (fs *FrameSnapshot) EntityCount() uint32 {
	var n uint32
	for _, as := range fs.archetypes {
		n += as.count
	}
	return n
}

func (fs *FrameSnapshot) find(id EntityID) (*archetypeSnapshot, uint32, bool) {
	for i := range fs.archetypes {
		as := &fs.archetypes[i]
		if as.arch.ClassID() != id.Class() {
			continue
		}
		for j, e := range as.entities {
			if e == id {
				return as, uint32(j), true
			}
		}
	}
	return nil, 0, false
}

// Contains reports whether the snapshot captured the entity.
func (fs *FrameSnapshot) Contains(id EntityID) bool {
	_, _, ok := fs.find(id)
	return ok
}

// SnapshotComponent reads component C of an entity out of a past frame,
// reassembling decomposed components from their captured field slabs. ok is
// false when the frame is not held, the entity was not captured, or its
// class does not carry C.
func SnapshotComponent[C any](tc *TemporalCache, age int, id EntityID) (C, bool) {
	var out C
	fs, ok := tc.Frame(age)
	if !ok {
		return out, false
	}
	as, index, ok := fs.find(id)
	if !ok {
		return out, false
	}
	cm := tc.reg.meta.Component(reflect.TypeOf((*C)(nil)).Elem())
	if cm == nil {
		return out, false
	}
	slot, ok := componentSlot(tc.reg.meta.classByID(id.Class()), cm)
	if !ok {
		return out, false
	}
	dst := unsafe.Pointer(&out)
	if !cm.Hot {
		copy(unsafe.Slice((*byte)(dst), cm.Size), as.arrays[slot][uintptr(index)*cm.Size:])
		return out, true
	}
	for i, f := range cm.Fields {
		copyBytes(
			unsafe.Add(dst, f.OffsetInStruct),
			unsafe.Pointer(&as.arrays[slot+i][uintptr(index)*f.Size]),
			f.Size,
		)
	}
	return out, true
}
