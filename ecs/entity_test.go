package ecs_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plus3/strata/ecs"
)

func TestEntityIDEncoding(t *testing.T) {
	id := ecs.NewEntityID(67890, 42, 17, 3)

	assert.Equal(t, uint32(67890), id.Index())
	assert.Equal(t, uint16(42), id.Generation())
	assert.Equal(t, ecs.ClassID(17), id.Class())
	assert.Equal(t, uint8(3), id.Owner())
	assert.Equal(t, uint8(0), id.MetaFlags())
}

func TestEntityIDEdgeCases(t *testing.T) {
	tests := []struct {
		index      uint32
		generation uint16
		class      ecs.ClassID
		owner      uint8
	}{
		{0, 0, 0, 0},
		{ecs.MaxEntityIndex, 0xFFFF, ecs.MaxEntityClasses - 1, 0xFF},
		{1, 1, 0, 0},
		{0, 0xFFFF, 0, 0},
		{0x12345, 0x9ABC, 0xDEF, 0x01},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("index=%d,gen=%d", tt.index, tt.generation), func(t *testing.T) {
			id := ecs.NewEntityID(tt.index, tt.generation, tt.class, tt.owner)
			assert.Equal(t, tt.index, id.Index())
			assert.Equal(t, tt.generation, id.Generation())
			assert.Equal(t, tt.class, id.Class())
			assert.Equal(t, tt.owner, id.Owner())
		})
	}
}

func TestInvalidEntitySentinel(t *testing.T) {
	assert.False(t, ecs.InvalidEntity.IsValid())
	assert.True(t, ecs.NewEntityID(1, 1, 0, 0).IsValid())
}

func TestEntityIDOwnership(t *testing.T) {
	server := ecs.NewEntityID(5, 1, 0, 0)
	client := ecs.NewEntityID(6, 1, 0, 9)

	assert.True(t, server.IsServer())
	assert.False(t, client.IsServer())
	assert.True(t, client.IsLocal(9))
	assert.False(t, client.IsLocal(4))
}
