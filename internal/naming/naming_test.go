package naming

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyMonotonic, s)

	s, err = ParseStrategy(" Timestamp ")
	require.NoError(t, err)
	assert.Equal(t, StrategyTimestamp, s)

	s, err = ParseStrategy("random")
	require.NoError(t, err)
	assert.Equal(t, StrategyRandom, s)

	_, err = ParseStrategy("uuid")
	assert.Error(t, err)
}

func TestTimestampNamer(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	n := New(StrategyTimestamp, fixedClock(now))

	assert.Equal(t, "photo_1700000000123.png", n.Name("photo.png"))
	// same millisecond collides, kept for compatibility
	assert.Equal(t, n.Name("photo.png"), n.Name("photo.png"))
	assert.Equal(t, "noext_1700000000123", n.Name("noext"))
}

func TestTimestampNamer_WallClockShape(t *testing.T) {
	n := New(StrategyTimestamp, nil)
	assert.Regexp(t, regexp.MustCompile(`^photo_\d{13}\.png$`), n.Name("photo.png"))
}

func TestMonotonicNamer(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	n := New(StrategyMonotonic, fixedClock(now))

	assert.Equal(t, "photo_1700000000123.png", n.Name("photo.png"))
	assert.Equal(t, "photo_1700000000124.png", n.Name("photo.png"))
	assert.Equal(t, "other_1700000000125.JPG", n.Name("other.JPG"))
}

func TestMonotonicNamer_Concurrent(t *testing.T) {
	n := New(StrategyMonotonic, fixedClock(time.UnixMilli(1700000000000)))

	const workers = 50
	names := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names <- n.Name("same.png")
		}()
	}
	wg.Wait()
	close(names)

	seen := map[string]bool{}
	for name := range names {
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
	assert.Len(t, seen, workers)
}

func TestRandomNamer(t *testing.T) {
	n := New(StrategyRandom, fixedClock(time.UnixMilli(1700000000123)))

	a := n.Name("photo.png")
	b := n.Name("photo.png")
	assert.Regexp(t, regexp.MustCompile(`^photo_1700000000123-[0-9a-f]{8}\.png$`), a)
	assert.NotEqual(t, a, b)
}
