package lru

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetPut(t *testing.T) {
	c := New[string, int](2, 0)
	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2, 0)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestUpdateExisting(t *testing.T) {
	c := New[string, int](2, 0)
	c.Put("a", 1)
	c.Put("a", 10)
	v, _ := c.Get("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, c.Len())
}

func TestExpiry(t *testing.T) {
	now := time.Now()
	c := New[string, string](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Put("types", "yolov8")
	_, ok := c.Get("types")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get("types")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestPutResetsExpiry(t *testing.T) {
	now := time.Now()
	c := New[string, int](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Put("a", 1)
	now = now.Add(50 * time.Second)
	c.Put("a", 2)
	now = now.Add(50 * time.Second)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestDeleteAndPurge(t *testing.T) {
	c := New[string, int](3, 0)
	c.Put("a", 1)
	c.Put("b", 2)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))

	c.Purge()
	assert.Equal(t, 0, c.Len())
	c.Put("c", 3)
	assert.Equal(t, 1, c.Len())
}

func TestPanicOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[string, int](0, 0) })
}

func TestConcurrentAccess(t *testing.T) {
	c := New[string, int](16, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (id*j)%32)
				c.Put(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
