package apisession

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCursors_Swap(t *testing.T) {
	s := New(time.Minute)

	assert.Equal(t, "", s.Swap("a", "n1"), "new client starts empty")
	assert.Equal(t, "n1", s.Swap("a", "n2"))
	assert.Equal(t, "n2", s.Swap("a", ""), "empty id keeps the cursor")

	got, ok := s.Peek("a")
	assert.True(t, ok)
	assert.Equal(t, "n2", got)

	_, ok = s.Peek("b")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestCursors_Cleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(time.Minute)
	s.now = func() time.Time { return now }

	s.Swap("old", "x")
	now = now.Add(30 * time.Second)
	s.Swap("fresh", "y")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, s.Cleanup())
	_, ok := s.Peek("old")
	assert.False(t, ok)
	_, ok = s.Peek("fresh")
	assert.True(t, ok)
}

func TestCursors_Concurrent(t *testing.T) {
	s := New(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Swap(fmt.Sprintf("c%d", n), fmt.Sprintf("n%d", j))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, s.Len())
}
