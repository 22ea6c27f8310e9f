package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plus3/strata/ecs"
)

// Common test component types. Transform and ColorData together give the
// 52-byte per-entity stride the layout tests depend on.
type Transform struct {
	PosX, PosY, PosZ       float32
	RotX, RotY, RotZ       float32
	ScaleX, ScaleY, ScaleZ float32
}

type ColorData struct {
	R, G, B, A float32
}

type Velocity struct {
	DX, DY, DZ float32
}

type LaneWidth struct {
	Width float32
}

type TickCount struct {
	Ticks int32
}

type Health struct {
	Current int32
	Max     int32
}

// Proxy groups over the hot components.
type TransformArrays struct {
	ecs.SoA[Transform]
	PosX, PosY, PosZ       ecs.NumProxy[float32]
	RotX, RotY, RotZ       ecs.NumProxy[float32]
	ScaleX, ScaleY, ScaleZ ecs.NumProxy[float32]
}

type ColorArrays struct {
	ecs.SoA[ColorData]
	R, G, B, A ecs.NumProxy[float32]
}

type VelocityArrays struct {
	ecs.SoA[Velocity]
	DX, DY, DZ ecs.NumProxy[float32]
}

type LaneWidthArrays struct {
	ecs.SoA[LaneWidth]
	Width ecs.NumProxy[float32]
}

type TickCountArrays struct {
	ecs.SoA[TickCount]
	Ticks ecs.NumProxy[int32]
}

// Sprite has no lifecycle hooks; it only exercises storage.
type Sprite struct {
	ecs.Batch
	Transform TransformArrays
	Color     ColorArrays
}

// Mover integrates position from velocity during the update phase.
type Mover struct {
	ecs.Batch
	Transform TransformArrays
	Velocity  VelocityArrays
}

func (m *Mover) Update(dt float64) {
	d := float32(dt)
	px, dx := m.Transform.PosX.Lanes(), m.Velocity.DX.Lanes()
	py, dy := m.Transform.PosY.Lanes(), m.Velocity.DY.Lanes()
	pz, dz := m.Transform.PosZ.Lanes(), m.Velocity.DZ.Lanes()
	for i := range px {
		px[i] += dx[i] * d
		py[i] += dy[i] * d
		pz[i] += dz[i] * d
	}
}

// GroupProbe records the active lane count of the group that processed each
// entity, which makes batch splits and tail masking observable.
type GroupProbe struct {
	ecs.Batch
	Lanes LaneWidthArrays
}

func (g *GroupProbe) Update(float64) {
	g.Lanes.Width.Assign(float32(g.ActiveLanes()))
}

// Ticker counts fixed steps in PrePhysics and frames in PostPhysics.
type Ticker struct {
	ecs.Batch
	Pre  TickCountArrays
	Heal ecs.Ref[Health]
}

func (t *Ticker) PrePhysics(float64) {
	t.Pre.Ticks.Add(1)
}

func (t *Ticker) PostPhysics(float64) {
	for lane := 0; lane < t.ActiveLanes(); lane++ {
		h := t.Heal.At(lane)
		if h.Current < h.Max {
			h.Current++
		}
	}
}

func newTestMeta(t testing.TB) *ecs.MetaRegistry {
	t.Helper()
	m := ecs.NewMetaRegistry()
	_, err := ecs.RegisterComponent[Transform](m, ecs.Hot())
	require.NoError(t, err)
	_, err = ecs.RegisterComponent[ColorData](m, ecs.Hot())
	require.NoError(t, err)
	_, err = ecs.RegisterComponent[Velocity](m, ecs.Hot())
	require.NoError(t, err)
	_, err = ecs.RegisterComponent[LaneWidth](m, ecs.Hot())
	require.NoError(t, err)
	_, err = ecs.RegisterComponent[TickCount](m, ecs.Hot())
	require.NoError(t, err)
	_, err = ecs.RegisterComponent[Health](m)
	require.NoError(t, err)

	_, err = ecs.RegisterPrefab[Sprite](m)
	require.NoError(t, err)
	_, err = ecs.RegisterPrefab[Mover](m)
	require.NoError(t, err)
	_, err = ecs.RegisterPrefab[GroupProbe](m)
	require.NoError(t, err)
	_, err = ecs.RegisterPrefab[Ticker](m)
	require.NoError(t, err)
	return m
}

func newTestRegistry(t testing.TB) *ecs.Registry {
	t.Helper()
	return ecs.NewRegistry(newTestMeta(t))
}
