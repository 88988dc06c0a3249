package reminder

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	t.Parallel()

	k := newKeyedMutex()
	var inside atomic.Int32
	var maxSeen atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("same")
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen.Load() != 1 {
		t.Fatalf("max concurrent holders = %d", maxSeen.Load())
	}
	if k.size() != 0 {
		t.Fatalf("entries leaked: %d", k.size())
	}
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	t.Parallel()

	k := newKeyedMutex()
	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()
	<-done
	unlockA()
}
