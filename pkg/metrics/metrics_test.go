package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingRecorder struct {
	hits, misses int
	queries      map[string]int
	observations int
}

func (c *countingRecorder) IncCacheHit()  { c.hits++ }
func (c *countingRecorder) IncCacheMiss() { c.misses++ }
func (c *countingRecorder) IncQueryTotal(kind string, success bool) {
	if c.queries == nil {
		c.queries = map[string]int{}
	}
	c.queries[kind]++
}
func (c *countingRecorder) ObserveQuerySeconds(string, bool, float64) { c.observations++ }

func TestSetRecorder(t *testing.T) {
	rec := &countingRecorder{}
	SetRecorder(rec)
	t.Cleanup(func() { SetRecorder(noopRecorder{}) })

	Default().IncCacheHit()
	Default().IncCacheMiss()
	Default().IncCacheMiss()

	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 2, rec.misses)
}

func TestTimeQuery(t *testing.T) {
	rec := &countingRecorder{}
	SetRecorder(rec)
	t.Cleanup(func() { SetRecorder(noopRecorder{}) })

	done := TimeQuery("traversal")
	done(true)

	assert.Equal(t, 1, rec.queries["traversal"])
	assert.Equal(t, 1, rec.observations)
}
