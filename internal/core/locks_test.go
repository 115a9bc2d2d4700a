package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSenderLocksReleaseEvicts(t *testing.T) {
	var locks senderLocks

	unlock := locks.acquire("fp-alice")
	assert.Equal(t, 1, locks.size())
	unlock()
	assert.Equal(t, 0, locks.size(), "released fingerprints do not linger in the map")
}

func TestSenderLocksSerializeSameFingerprint(t *testing.T) {
	var locks senderLocks
	var inCritical, overlapped bool
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.acquire("fp-alice")
			defer unlock()

			mu.Lock()
			if inCritical {
				overlapped = true
			}
			inCritical = true
			mu.Unlock()

			mu.Lock()
			inCritical = false
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.False(t, overlapped, "two holders of one fingerprint lock must never overlap")
	assert.Equal(t, 0, locks.size())
}

func TestSenderLocksIndependentFingerprints(t *testing.T) {
	var locks senderLocks

	unlockA := locks.acquire("fp-alice")
	// A different fingerprint must not block behind alice's lock.
	unlockB := locks.acquire("fp-bob")
	assert.Equal(t, 2, locks.size())

	unlockB()
	unlockA()
	assert.Equal(t, 0, locks.size())
}
