package domain_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jangdahyun/codingline/internal/domain"
)

func TestNextEventVersion_StrictlyIncreasing(t *testing.T) {
	prev := domain.NextEventVersion()
	for i := 0; i < 1000; i++ {
		v := domain.NextEventVersion()
		assert.Greater(t, v, prev)
		prev = v
	}
}

func TestNextEventVersion_UniqueUnderConcurrency(t *testing.T) {
	// Arrange
	const goroutines = 16
	const perGoroutine = 200

	var wg sync.WaitGroup
	results := make([][]int64, goroutines)

	// Act
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			versions := make([]int64, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				versions = append(versions, domain.NextEventVersion())
			}
			results[g] = versions
		}(g)
	}
	wg.Wait()

	// Assert: no two stamps collide even when many are drawn in the same
	// millisecond.
	seen := make(map[int64]bool, goroutines*perGoroutine)
	for _, versions := range results {
		for _, v := range versions {
			assert.False(t, seen[v], "duplicate version stamp %d", v)
			seen[v] = true
		}
	}
}

func TestNewEvent_CarriesNameRoomAndPayload(t *testing.T) {
	event := domain.NewEvent(domain.EventChat, 7, map[string]interface{}{"content": "hi"})

	assert.Equal(t, domain.EventChat, event.Name)
	assert.Equal(t, uint(7), event.RoomID)
	assert.Equal(t, "hi", event.Payload["content"])
	assert.Positive(t, event.Version)
}
