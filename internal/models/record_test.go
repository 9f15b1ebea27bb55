package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Init(t *testing.T) {
	var r Record
	r.Init("actor-1")

	_, err := uuid.Parse(r.RefID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, r.Status)
	require.NotNil(t, r.CreatedBy)
	assert.Equal(t, "actor-1", *r.CreatedBy)
	assert.False(t, r.CreatedAt.IsZero())
	assert.Nil(t, r.UpdatedAt)
	assert.Nil(t, r.DeletedAt)
	assert.True(t, r.IsActive())
}

func TestRecord_InitKeepsRefIDAndAllowsAnonymous(t *testing.T) {
	r := Record{RefID: "fixed", Status: StatusDeleted}
	r.Init("")

	assert.Equal(t, "fixed", r.RefID)
	assert.Equal(t, StatusActive, r.Status)
	assert.Nil(t, r.CreatedBy)
}

func TestRecord_TouchAndMarkDeleted(t *testing.T) {
	var r Record
	r.Init("a")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r.Touch("b", at)
	require.NotNil(t, r.UpdatedAt)
	assert.Equal(t, at, *r.UpdatedAt)
	assert.Equal(t, "b", *r.UpdatedBy)

	r.MarkDeleted("", at)
	assert.Equal(t, StatusDeleted, r.Status)
	assert.Equal(t, at, *r.DeletedAt)
	assert.Nil(t, r.DeletedBy)
	assert.False(t, r.IsActive())
}

func TestNewRefID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		id := NewRefID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
