package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/strata/ecs"
)

func TestBatchedUpdateMatchesScalarReference(t *testing.T) {
	r := newTestRegistry(t)

	// 21 entities: two full groups of 8 and a masked tail of 5.
	const n = 21
	const dt = 0.25
	ids := make([]ecs.EntityID, 0, n)
	wantX := make([]float32, n)
	wantY := make([]float32, n)
	for i := 0; i < n; i++ {
		id, err := ecs.Create[Mover](r)
		require.NoError(t, err)
		tf := ecs.GetComponentSoA[Transform](r, id)
		tf.Scatter(Transform{PosX: float32(i), PosY: float32(-i)})
		vel := ecs.GetComponentSoA[Velocity](r, id)
		vel.Scatter(Velocity{DX: float32(i % 5), DY: 2})
		wantX[i] = float32(i) + float32(i%5)*dt
		wantY[i] = float32(-i) + 2*dt
		ids = append(ids, id)
	}

	r.InvokeUpdate(dt)

	for i, id := range ids {
		got := ecs.GetComponentSoA[Transform](r, id).Gather()
		assert.InDelta(t, wantX[i], got.PosX, 1e-6, "entity %d", i)
		assert.InDelta(t, wantY[i], got.PosY, 1e-6, "entity %d", i)
		assert.Zero(t, got.PosZ)
	}
}

func TestTailGroupMasksInactiveLanes(t *testing.T) {
	r := newTestRegistry(t)

	// 19 entities split into groups of 8, 8, and 3.
	const n = 19
	ids := make([]ecs.EntityID, 0, n)
	for i := 0; i < n; i++ {
		id, err := ecs.Create[GroupProbe](r)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	r.InvokeUpdate(0)

	for i, id := range ids {
		got := ecs.GetComponentSoA[LaneWidth](r, id).Gather()
		want := float32(ecs.BatchWidth)
		if i >= 16 {
			want = 3
		}
		assert.Equal(t, want, got.Width, "entity %d saw wrong group width", i)
	}
}

func TestBatchingSpansChunks(t *testing.T) {
	r := newTestRegistry(t)

	// GroupProbe's archetype holds 4080 entities per chunk. 4085 entities
	// fill chunk 0 (510 full groups) and leave 5 in chunk 1, processed as
	// one masked tail.
	const n = 4085
	ids := make([]ecs.EntityID, 0, n)
	for i := 0; i < n; i++ {
		id, err := ecs.Create[GroupProbe](r)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	a := archetypeNamed(t, r, "GroupProbe")
	require.Equal(t, uint32(4080), a.EntitiesPerChunk())
	require.Equal(t, uint32(2), a.ChunkCount())

	r.InvokeUpdate(0)

	for i, id := range ids {
		got := ecs.GetComponentSoA[LaneWidth](r, id).Gather()
		want := float32(ecs.BatchWidth)
		if i >= 4080 {
			want = 5
		}
		assert.Equal(t, want, got.Width, "entity %d saw wrong group width", i)
	}
}

func TestPhasesAreIndependent(t *testing.T) {
	r := newTestRegistry(t)

	id, err := ecs.Create[Ticker](r)
	require.NoError(t, err)
	h := ecs.GetComponent[Health](r, id)
	require.NotNil(t, h)
	h.Max = 3

	r.InvokePrePhysics(1)
	r.InvokePrePhysics(1)
	r.InvokeUpdate(1)
	r.InvokePostPhysics(1)

	ticks := ecs.GetComponentSoA[TickCount](r, id).Gather()
	assert.Equal(t, int32(2), ticks.Ticks)
	assert.Equal(t, int32(1), ecs.GetComponent[Health](r, id).Current)
}

func TestColdComponentHookWritesPerLane(t *testing.T) {
	r := newTestRegistry(t)

	// 11 entities: one full group and a tail of 3, all touching cold data.
	const n = 11
	ids := make([]ecs.EntityID, 0, n)
	for i := 0; i < n; i++ {
		id, err := ecs.Create[Ticker](r)
		require.NoError(t, err)
		h := ecs.GetComponent[Health](r, id)
		h.Max = int32(i)
		ids = append(ids, id)
	}

	r.InvokePostPhysics(1)

	for i, id := range ids {
		h := ecs.GetComponent[Health](r, id)
		want := int32(1)
		if i == 0 {
			want = 0 // already at Max
		}
		assert.Equal(t, want, h.Current, "entity %d", i)
	}
}

func TestFieldProxyRoundTrip(t *testing.T) {
	r := newTestRegistry(t)

	id, err := ecs.Create[Sprite](r)
	require.NoError(t, err)

	view := ecs.GetComponentSoA[ColorData](r, id)
	require.True(t, view.IsValid())
	want := ColorData{R: 0.25, G: 0.5, B: 0.75, A: 1}
	view.Scatter(want)
	assert.Equal(t, want, view.Gather())
}
