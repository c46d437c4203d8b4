package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestMemoryRegistry_RegisterAndActive(t *testing.T) {
	r := NewMemoryRegistry()
	r.now = fixedClock(time.Now())

	r.Register("archer", "s1")
	r.Register("archer", "s2")
	r.Register("lana", "s3")

	active := r.ActiveSessions("archer")
	require.Len(t, active, 2)
	assert.Equal(t, "s1", active[0].SessionID, "oldest first")
	assert.Equal(t, "s2", active[1].SessionID)
	assert.Equal(t, []string{"archer", "lana"}, r.Principals())
}

func TestMemoryRegistry_ExpireNowKeepsEntry(t *testing.T) {
	r := NewMemoryRegistry()
	r.Register("archer", "s1")
	r.ExpireNow("s1")

	assert.Empty(t, r.ActiveSessions("archer"))
	e, ok := r.Get("s1")
	require.True(t, ok)
	assert.True(t, e.Expired)
	assert.Empty(t, r.Principals())
}

func TestMemoryRegistry_RemoveAndTouch(t *testing.T) {
	r := NewMemoryRegistry()
	r.Register("archer", "s1")
	e, _ := r.Get("s1")

	later := e.LastAccessAt.Add(time.Minute)
	r.Touch("s1", later)
	e, _ = r.Get("s1")
	assert.True(t, e.LastAccessAt.Equal(later))

	r.Touch("s1", later.Add(-time.Hour))
	e, _ = r.Get("s1")
	assert.True(t, e.LastAccessAt.Equal(later), "touch never moves last access backwards")

	r.Remove("s1")
	r.Remove("s1")
	_, ok := r.Get("s1")
	assert.False(t, ok)
	assert.Empty(t, r.Principals())
}

func TestMemoryRegistry_Purge(t *testing.T) {
	r := NewMemoryRegistry()
	start := time.Now()
	r.now = fixedClock(start)
	r.Register("archer", "s1")
	r.Register("lana", "s2")
	r.Register("lana", "s3")

	n := r.Purge(start.Add(2500 * time.Millisecond))
	assert.Equal(t, 2, n)
	_, ok := r.Get("s3")
	assert.True(t, ok)
	assert.Equal(t, []string{"lana"}, r.Principals())
}
