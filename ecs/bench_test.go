package ecs_test

import (
	"testing"

	"github.com/plus3/strata/ecs"
)

func BenchmarkCreate(b *testing.B) {
	r := newTestRegistry(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ecs.Create[Sprite](r)
	}
}

func BenchmarkCreateDestroyChurn(b *testing.B) {
	r := newTestRegistry(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id, _ := ecs.Create[Sprite](r)
		r.Destroy(id)
		r.ProcessDeferredDestructions()
	}
}

func BenchmarkUpdatePhase(b *testing.B) {
	r := newTestRegistry(b)
	for i := 0; i < 10000; i++ {
		id, _ := ecs.Create[Mover](r)
		ecs.GetComponentSoA[Velocity](r, id).Scatter(Velocity{DX: 1, DY: 1, DZ: 1})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.InvokeUpdate(0.016)
	}
}

func BenchmarkGetComponentSoA(b *testing.B) {
	r := newTestRegistry(b)
	id, _ := ecs.Create[Sprite](r)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ecs.GetComponentSoA[Transform](r, id).Gather()
	}
}

func BenchmarkGetComponentCold(b *testing.B) {
	r := newTestRegistry(b)
	id, _ := ecs.Create[Ticker](r)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ecs.GetComponent[Health](r, id)
	}
}

func BenchmarkTemporalCapture(b *testing.B) {
	r := newTestRegistry(b)
	for i := 0; i < 10000; i++ {
		_, _ = ecs.Create[Mover](r)
	}
	tc := ecs.NewTemporalCache(r, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tc.Capture(uint64(i))
	}
}
