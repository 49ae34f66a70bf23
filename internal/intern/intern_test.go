package intern

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternReturnsCanonicalCopy(t *testing.T) {
	p := New()
	a := p.Intern("Robot-01")
	b := p.Intern("Robot-01")
	assert.Equal(t, a, b)
	assert.Equal(t, 1, p.Len())
}

func TestInternConcurrentSameKey(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Intern("shared-key")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, p.Len())
}

func TestGlobalPool(t *testing.T) {
	g1 := Global()
	g2 := Global()
	assert.Same(t, g1, g2)
}
