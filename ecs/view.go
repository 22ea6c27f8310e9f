package ecs

import (
	"reflect"
	"unsafe"
)

// BatchWidth is how many entities a batch view touches per lifecycle call.
// Lifecycle hooks are invoked once per BatchWidth-sized group, plus once for
// the masked tail when a chunk's live count is not a multiple of the width.
const BatchWidth = 8

// batchCursor is the shared position of every proxy bound to one view:
// the current base index into the field arrays and the active lane count.
// count < 0 means all lanes are active; a small positive count masks the
// trailing lanes of the final partial group.
type batchCursor struct {
	index uint32
	count int32
}

func (c *batchCursor) activeLanes() int {
	if c.count < 0 {
		return BatchWidth
	}
	return int(c.count)
}

// Batch is the cursor every entity view embeds. Hydration binds all of the
// view's proxies to this cursor, so advancing it moves every field in
// lock-step.
type Batch struct {
	cursor batchCursor
}

// Advance moves the view forward by n lanes. All bound proxies follow.
func (b *Batch) Advance(n uint32) {
	b.cursor.index += n
}

// ActiveLanes reports how many lanes of the current group are live. It is
// BatchWidth for full groups and the remainder for the tail group.
func (b *Batch) ActiveLanes() int {
	return b.cursor.activeLanes()
}

// Lane returns the global entity index of the given lane in this group.
func (b *Batch) Lane(lane int) uint32 {
	return b.cursor.index + uint32(lane)
}

func (b *Batch) reset() {
	b.cursor = batchCursor{index: 0, count: -1}
}

// proxyHeader is the common layout prefix of every proxy type. Hydration
// writes it through precompiled offsets, so it must stay the first (and
// only) state proxies carry.
type proxyHeader struct {
	base unsafe.Pointer
	cur  *batchCursor
}

// Scalar constrains field proxies to the types a decomposed field array can
// hold.
type Scalar interface {
	~bool |
		~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64
}

// FieldProxy is a reusable cursor over one packed field array. Reads and
// writes translate into array accesses at the view's current index; masked
// variants never touch lanes past the active count, so a tail group cannot
// write out of range.
type FieldProxy[T Scalar] struct {
	proxyHeader
}

// Lanes returns the active lanes of the current group as a slice aliasing
// the field array. Mutating it writes straight into chunk memory.
func (p *FieldProxy[T]) Lanes() []T {
	var zero T
	start := (*T)(unsafe.Add(p.base, uintptr(p.cur.index)*unsafe.Sizeof(zero)))
	return unsafe.Slice(start, BatchWidth)[:p.cur.activeLanes()]
}

// Get reads one lane. The lane must be within the active count.
func (p *FieldProxy[T]) Get(lane int) T {
	var zero T
	return *(*T)(unsafe.Add(p.base, uintptr(p.cur.index+uint32(lane))*unsafe.Sizeof(zero)))
}

// Set writes one lane. The lane must be within the active count.
func (p *FieldProxy[T]) Set(lane int, v T) {
	var zero T
	*(*T)(unsafe.Add(p.base, uintptr(p.cur.index+uint32(lane))*unsafe.Sizeof(zero))) = v
}

// Assign stores v into every active lane.
func (p *FieldProxy[T]) Assign(v T) {
	lanes := p.Lanes()
	for i := range lanes {
		lanes[i] = v
	}
}

// Update applies fn to every active lane. This is the general masked
// per-lane operation; prefer the arithmetic helpers when they fit.
func (p *FieldProxy[T]) Update(fn func(T) T) {
	lanes := p.Lanes()
	for i := range lanes {
		lanes[i] = fn(lanes[i])
	}
}

// Number is the Scalar subset supporting arithmetic.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64
}

// NumProxy is a FieldProxy over an arithmetic field, adding compound
// assignment across the active lanes.
type NumProxy[T Number] struct {
	FieldProxy[T]
}

// Add adds v to every active lane.
func (p *NumProxy[T]) Add(v T) {
	lanes := p.Lanes()
	for i := range lanes {
		lanes[i] += v
	}
}

// Sub subtracts v from every active lane.
func (p *NumProxy[T]) Sub(v T) {
	lanes := p.Lanes()
	for i := range lanes {
		lanes[i] -= v
	}
}

// Mul multiplies every active lane by v.
func (p *NumProxy[T]) Mul(v T) {
	lanes := p.Lanes()
	for i := range lanes {
		lanes[i] *= v
	}
}

// Div divides every active lane by v.
func (p *NumProxy[T]) Div(v T) {
	lanes := p.Lanes()
	for i := range lanes {
		lanes[i] /= v
	}
}

// Ref is a cursor over a whole-struct component array, for components stored
// without field decomposition. At follows the view's cursor like FieldProxy
// does; callers iterating lanes by hand must bound themselves by
// ActiveLanes.
type Ref[C any] struct {
	proxyHeader
}

// Get returns the component of the group's first lane.
func (r *Ref[C]) Get() *C {
	return r.At(0)
}

// At returns the component of the given lane in the current group.
func (r *Ref[C]) At(lane int) *C {
	var zero C
	return (*C)(unsafe.Add(r.base, uintptr(r.cur.index+uint32(lane))*unsafe.Sizeof(zero)))
}

// SoA is the marker a decomposed proxy group embeds to name its component.
// The group's remaining fields must be FieldProxy/NumProxy fields matching
// C's fields one for one, in declaration order.
type SoA[C any] struct{}

func (SoA[C]) soaComponentType() reflect.Type {
	return reflect.TypeOf((*C)(nil)).Elem()
}

type soaMarker interface {
	soaComponentType() reflect.Type
}

func (Ref[C]) refComponentType() reflect.Type {
	return reflect.TypeOf((*C)(nil)).Elem()
}

type refMarker interface {
	refComponentType() reflect.Type
}

func (FieldProxy[T]) proxyScalarType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

type fieldProxyMarker interface {
	proxyScalarType() reflect.Type
}

// SoAView is a per-entity accessor over a decomposed component's field
// arrays, produced by Registry lookups. It gathers a component value out of
// the parallel arrays and scatters one back.
type SoAView[C any] struct {
	meta   *ComponentMeta
	arrays []unsafe.Pointer
	index  uint32
}

// IsValid reports whether the view is bound to live storage.
func (v SoAView[C]) IsValid() bool {
	return v.arrays != nil
}

// Gather assembles the component value from its field arrays.
func (v SoAView[C]) Gather() C {
	var out C
	dst := unsafe.Pointer(&out)
	for i, f := range v.meta.Fields {
		copyBytes(
			unsafe.Add(dst, f.OffsetInStruct),
			unsafe.Add(v.arrays[i], uintptr(v.index)*f.Size),
			f.Size,
		)
	}
	return out
}

// Scatter writes the component value back into its field arrays.
func (v SoAView[C]) Scatter(c C) {
	src := unsafe.Pointer(&c)
	for i, f := range v.meta.Fields {
		copyBytes(
			unsafe.Add(v.arrays[i], uintptr(v.index)*f.Size),
			unsafe.Add(src, f.OffsetInStruct),
			f.Size,
		)
	}
}

func copyBytes(dst, src unsafe.Pointer, n uintptr) {
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}
