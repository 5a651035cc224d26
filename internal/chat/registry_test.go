package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryInsertLookupErase(t *testing.T) {
	r := NewRegistry()
	p := &Player{}
	p.Init(1)
	r.Insert(p)

	got, ok := r.Lookup(1)
	require.True(t, ok)
	require.Same(t, p, got)

	erased := r.Erase(1)
	require.Same(t, p, erased)

	_, ok = r.Lookup(1)
	require.False(t, ok)
}

func TestRegistryLookupAbsentReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup(999)
	require.False(t, ok)
}

// TestRegistryConcurrentInsertErase checks that
// the registry itself never races under concurrent insert/erase/lookup.
func TestRegistryConcurrentInsertErase(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := uint64(1); i <= 50; i++ {
		wg.Add(1)
		go func(sessionID uint64) {
			defer wg.Done()
			p := &Player{}
			p.Init(sessionID)
			r.Insert(p)
			r.Lookup(sessionID)
			r.Erase(sessionID)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, r.Len())
}
