package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	b := New("ledger")

	assert.Equal(t, "ledger", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())

	// Five consecutive failures open, per the default threshold.
	for i := 0; i < 4; i++ {
		useFallback, change := b.RecordFailure()
		require.False(t, useFallback, "failure %d must not open", i+1)
		require.False(t, change.Opened)
	}
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)

	// One success closes, per the default threshold.
	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
}

func TestRecordFailure_CountsConsecutiveOnly(t *testing.T) {
	b := New("ledger", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess() // interleaved success clears the streak

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	_, change := b.RecordFailure()
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
}

func TestRecordFailure_WhileOpenIsNotATransition(t *testing.T) {
	b := New("ledger", WithFailureThreshold(1))

	_, change := b.RecordFailure()
	require.True(t, change.Opened)

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened, "already open")
}

func TestRecordSuccess_ClosesAfterThreshold(t *testing.T) {
	b := New("ledger", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary, "one success of two")
	assert.False(t, change.Closed)

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestRecordFailure_ClearsSuccessStreak(t *testing.T) {
	b := New("ledger", WithFailureThreshold(1), WithSuccessThreshold(3))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	// A failed probe mid-recovery starts the count over.
	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()

	b.RecordSuccess()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())
	_, change := b.RecordSuccess()
	assert.True(t, change.Closed)
}

func TestReset(t *testing.T) {
	b := New("ledger", WithFailureThreshold(1))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_ConcurrentRecords(t *testing.T) {
	b := New("ledger", WithFailureThreshold(2), WithSuccessThreshold(2))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.RecordFailure()
		}()
		go func() {
			defer wg.Done()
			b.RecordSuccess()
		}()
	}
	wg.Wait()

	// The race detector is the real assertion; the state just has to be
	// one of the two legal values.
	st := b.State()
	assert.Contains(t, []State{StateClosed, StateOpen}, st)
}
