package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/strata/ecs"
)

// spatialBase is a reusable slice of view members, flattened into any view
// that embeds it.
type spatialBase struct {
	Transform TransformArrays
}

type particleView struct {
	ecs.Batch
	spatialBase
	Color ColorArrays
}

type noBatchView struct {
	Transform TransformArrays
}

type batchedBase struct {
	ecs.Batch
	Transform TransformArrays
}

type doubleBatchView struct {
	ecs.Batch
	batchedBase
}

type strayFieldView struct {
	ecs.Batch
	Transform TransformArrays
	Count     int
}

func TestSchemaOfCollectsMembersInOrder(t *testing.T) {
	s, err := ecs.SchemaOf[Sprite]()
	require.NoError(t, err)

	members := s.Members()
	require.Len(t, members, 2)
	assert.Equal(t, "Transform", members[0].Name)
	assert.Equal(t, "Color", members[1].Name)
	assert.True(t, members[0].Hot)
	assert.True(t, members[1].Hot)
}

func TestSchemaOfFlattensEmbeddedViews(t *testing.T) {
	s, err := ecs.SchemaOf[particleView]()
	require.NoError(t, err)

	members := s.Members()
	require.Len(t, members, 2)
	assert.Equal(t, "Transform", members[0].Name)
	assert.Equal(t, "Color", members[1].Name)
}

func TestSchemaOfColdMember(t *testing.T) {
	s, err := ecs.SchemaOf[Ticker]()
	require.NoError(t, err)

	m, ok := s.Member("Heal")
	require.True(t, ok)
	assert.False(t, m.Hot)
}

func TestSchemaOfRequiresBatch(t *testing.T) {
	_, err := ecs.SchemaOf[noBatchView]()
	assert.Error(t, err)
}

func TestSchemaOfRejectsDuplicateBatch(t *testing.T) {
	_, err := ecs.SchemaOf[doubleBatchView]()
	assert.Error(t, err)
}

func TestSchemaOfRejectsStrayFields(t *testing.T) {
	_, err := ecs.SchemaOf[strayFieldView]()
	assert.Error(t, err)
}

func TestSchemaReplacePreservesPosition(t *testing.T) {
	s, err := ecs.SchemaOf[Sprite]()
	require.NoError(t, err)

	velocity, err := ecs.SchemaOf[Mover]()
	require.NoError(t, err)
	repl, ok := velocity.Member("Velocity")
	require.True(t, ok)
	repl.Name = "Color"

	swapped, err := s.Replace("Color", repl)
	require.NoError(t, err)
	members := swapped.Members()
	require.Len(t, members, 2)
	assert.Equal(t, "Transform", members[0].Name)
	assert.Equal(t, "Color", members[1].Name)

	_, err = s.Replace("Missing", repl)
	assert.Error(t, err)
}
