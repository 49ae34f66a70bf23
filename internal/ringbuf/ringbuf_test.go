package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingKeepsOnlyMostRecentBytes(t *testing.T) {
	r := New(5)
	r.Write([]byte("abc"))
	assert.Equal(t, "abc", string(r.Bytes()))
	assert.Equal(t, 3, r.Size())

	r.Write([]byte("defgh"))
	assert.Equal(t, "defgh", string(r.Bytes()))
	assert.Equal(t, 5, r.Size())
}

func TestRingWriteSmallerThanCapacityAcrossCalls(t *testing.T) {
	r := New(4)
	r.Write([]byte("a"))
	r.Write([]byte("b"))
	r.Write([]byte("c"))
	r.Write([]byte("d"))
	r.Write([]byte("e"))
	assert.Equal(t, "bcde", string(r.Bytes()))
}

func TestRingZeroCapacityIsNoop(t *testing.T) {
	r := New(0)
	r.Write([]byte("anything"))
	assert.Equal(t, 0, r.Size())
	assert.Empty(t, r.Bytes())
}
