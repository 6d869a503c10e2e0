// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set(GroupSearch, "q1", []string{"a", "b"})

	v, ok := c.Get(GroupSearch, "q1")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)

	_, ok = c.Get(GroupSearch, "q2")
	assert.False(t, ok)
	_, ok = c.Get(GroupTraversal, "q1")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute)
	c.Set(GroupSearch, "q1", 42)

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, ok := c.Get(GroupSearch, "q1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestInvalidateGroup(t *testing.T) {
	c := New(time.Minute)
	c.Set(GroupSearch, "q1", 1)
	c.Set(GroupSearch, "q2", 2)
	c.Set(GroupTaxonomyPath, "n1", 3)

	c.Invalidate(GroupSearch)

	_, ok := c.Get(GroupSearch, "q1")
	assert.False(t, ok)
	_, ok = c.Get(GroupSearch, "q2")
	assert.False(t, ok)

	v, ok := c.Get(GroupTaxonomyPath, "n1")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestInvalidateMultipleGroups(t *testing.T) {
	c := New(time.Minute)
	c.Set(GroupSearch, "q", 1)
	c.Set(GroupTraversal, "t", 2)
	c.Set(GroupTaxonomyPath, "p", 3)

	c.Invalidate(GroupSearch, GroupTraversal)
	assert.Equal(t, 1, c.Len())
}

func TestFlush(t *testing.T) {
	c := New(time.Minute)
	c.Set(GroupSearch, "q", 1)
	c.Set(GroupTraversal, "t", 2)

	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestSetOverwrites(t *testing.T) {
	c := New(time.Minute)
	c.Set(GroupSearch, "q", 1)
	c.Set(GroupSearch, "q", 2)

	v, ok := c.Get(GroupSearch, "q")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}
