package main

import (
	"math"
	"math/rand"

	"github.com/plus3/strata/ecs"
)

// Stress component set: a mix of decomposed and whole-struct components so
// every storage path gets exercised.
type Transform struct {
	PosX, PosY, PosZ       float32
	RotX, RotY, RotZ       float32
	ScaleX, ScaleY, ScaleZ float32
}

type Velocity struct {
	DX, DY, DZ float32
}

type Spin struct {
	Rate float32
}

type ColorData struct {
	R, G, B, A float32
}

type Lifetime struct {
	Remaining float32
}

type Body struct {
	Mass     float32
	Friction float32
	Resting  int32
}

type TransformArrays struct {
	ecs.SoA[Transform]
	PosX, PosY, PosZ       ecs.NumProxy[float32]
	RotX, RotY, RotZ       ecs.NumProxy[float32]
	ScaleX, ScaleY, ScaleZ ecs.NumProxy[float32]
}

type VelocityArrays struct {
	ecs.SoA[Velocity]
	DX, DY, DZ ecs.NumProxy[float32]
}

type SpinArrays struct {
	ecs.SoA[Spin]
	Rate ecs.NumProxy[float32]
}

type ColorArrays struct {
	ecs.SoA[ColorData]
	R, G, B, A ecs.NumProxy[float32]
}

type LifetimeArrays struct {
	ecs.SoA[Lifetime]
	Remaining ecs.NumProxy[float32]
}

// Projectile integrates position from velocity every frame.
type Projectile struct {
	ecs.Batch
	Transform TransformArrays
	Velocity  VelocityArrays
}

func (p *Projectile) Update(dt float64) {
	d := float32(dt)
	px, dx := p.Transform.PosX.Lanes(), p.Velocity.DX.Lanes()
	py, dy := p.Transform.PosY.Lanes(), p.Velocity.DY.Lanes()
	pz, dz := p.Transform.PosZ.Lanes(), p.Velocity.DZ.Lanes()
	for i := range px {
		px[i] += dx[i] * d
		py[i] += dy[i] * d
		pz[i] += dz[i] * d
	}
}

// Spinner accumulates rotation at a fixed rate.
type Spinner struct {
	ecs.Batch
	Transform TransformArrays
	Spin      SpinArrays
}

func (s *Spinner) Update(dt float64) {
	d := float32(dt)
	ry, rate := s.Transform.RotY.Lanes(), s.Spin.Rate.Lanes()
	for i := range ry {
		ry[i] += rate[i] * d
		if ry[i] > 2*math.Pi {
			ry[i] -= 2 * math.Pi
		}
	}
}

// Flasher fades alpha down over its lifetime.
type Flasher struct {
	ecs.Batch
	Color    ColorArrays
	Lifetime LifetimeArrays
}

func (f *Flasher) Update(dt float64) {
	d := float32(dt)
	a, rem := f.Color.A.Lanes(), f.Lifetime.Remaining.Lanes()
	for i := range a {
		rem[i] -= d
		if rem[i] < 0 {
			rem[i] = 0
		}
		a[i] = rem[i] / (rem[i] + 1)
	}
}

// Crate applies friction in the fixed-rate physics phases and settles bodies
// through the cold accessor path.
type Crate struct {
	ecs.Batch
	Transform TransformArrays
	Velocity  VelocityArrays
	Body      ecs.Ref[Body]
}

func (c *Crate) PrePhysics(dt float64) {
	d := float32(dt)
	dx := c.Velocity.DX.Lanes()
	dz := c.Velocity.DZ.Lanes()
	for lane := range dx {
		b := c.Body.At(lane)
		dx[lane] *= 1 - b.Friction*d
		dz[lane] *= 1 - b.Friction*d
	}
}

func (c *Crate) PostPhysics(float64) {
	dx := c.Velocity.DX.Lanes()
	dz := c.Velocity.DZ.Lanes()
	for lane := range dx {
		b := c.Body.At(lane)
		if dx[lane]*dx[lane]+dz[lane]*dz[lane] < 1e-6 {
			b.Resting = 1
		} else {
			b.Resting = 0
		}
	}
}

func registerStressTypes(meta *ecs.MetaRegistry) error {
	if _, err := ecs.RegisterComponent[Transform](meta, ecs.Hot()); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[Velocity](meta, ecs.Hot()); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[Spin](meta, ecs.Hot()); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[ColorData](meta, ecs.Hot()); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[Lifetime](meta, ecs.Hot()); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[Body](meta); err != nil {
		return err
	}

	if _, err := ecs.RegisterPrefab[Projectile](meta); err != nil {
		return err
	}
	if _, err := ecs.RegisterPrefab[Spinner](meta); err != nil {
		return err
	}
	if _, err := ecs.RegisterPrefab[Flasher](meta); err != nil {
		return err
	}
	if _, err := ecs.RegisterPrefab[Crate](meta); err != nil {
		return err
	}
	return nil
}

func spawnRandomEntity(reg *ecs.Registry, rng *rand.Rand) (ecs.EntityID, error) {
	class := ecs.ClassID(rng.Intn(reg.Meta().ClassCount()))
	id, err := reg.CreateByClass(class, 0)
	if err != nil {
		return ecs.InvalidEntity, err
	}

	if v := ecs.GetComponentSoA[Velocity](reg, id); v.IsValid() {
		v.Scatter(Velocity{
			DX: rng.Float32()*2 - 1,
			DY: rng.Float32()*2 - 1,
			DZ: rng.Float32()*2 - 1,
		})
	}
	if s := ecs.GetComponentSoA[Spin](reg, id); s.IsValid() {
		s.Scatter(Spin{Rate: rng.Float32() * 4})
	}
	if l := ecs.GetComponentSoA[Lifetime](reg, id); l.IsValid() {
		l.Scatter(Lifetime{Remaining: rng.Float32() * 30})
	}
	if b := ecs.GetComponent[Body](reg, id); b != nil {
		b.Mass = rng.Float32()*10 + 1
		b.Friction = rng.Float32()
	}
	return id, nil
}
