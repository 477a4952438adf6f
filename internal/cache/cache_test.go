package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *clock) {
	clk := &clock{t: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUGetSetAndExpiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)

	c.Set("a", "1")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	clk.t = clk.t.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired entries are misses")
	assert.Equal(t, 0, c.Size())

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.True(t, okA)
	assert.False(t, okB, "b was the least recently used")
	assert.True(t, okC)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestLRUDeletePrefix(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("user-1:%d", i), "x")
	}
	c.Set("user-2:0", "y")

	assert.Equal(t, 3, c.DeletePrefix("user-1:"))
	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("user-2:0")
	assert.True(t, ok)
}

func TestManagerCleanAll(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clk.t = clk.t.Add(time.Hour)

	m := NewManager(nil)
	m.Register(c)
	assert.Equal(t, 2, m.CleanAll())
	assert.Equal(t, 0, c.Size())

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
