package status

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "agora/pkg/domain-errors"
)

func TestParseState(t *testing.T) {
	for _, valid := range []string{"pending", "approved", "rejected", "suspended"} {
		st, err := ParseState(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, st.String())
	}

	for _, invalid := range []string{"", "Pending", "deleted", "approved ", "unknown"} {
		_, err := ParseState(invalid)
		require.Error(t, err, "state %q", invalid)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to State }{
		{StatePending, StateApproved},
		{StatePending, StateRejected},
		{StateApproved, StateSuspended},
		{StateSuspended, StateApproved},
		{StateRejected, StateApproved},
		{StateRejected, StatePending},
	}
	for _, edge := range legal {
		assert.True(t, CanTransition(edge.from, edge.to), "%s -> %s should be legal", edge.from, edge.to)
	}

	illegal := []struct{ from, to State }{
		{StateApproved, StateApproved},
		{StateApproved, StateRejected},
		{StateApproved, StatePending},
		{StatePending, StateSuspended},
		{StatePending, StatePending},
		{StateSuspended, StateRejected},
		{StateSuspended, StatePending},
		{StateSuspended, StateSuspended},
		{StateRejected, StateRejected},
		{StateRejected, StateSuspended},
	}
	for _, edge := range illegal {
		assert.False(t, CanTransition(edge.from, edge.to), "%s -> %s should be illegal", edge.from, edge.to)
	}
}

func TestDocumentValidate(t *testing.T) {
	until := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("plain states", func(t *testing.T) {
		for _, st := range []State{StatePending, StateApproved, StateRejected} {
			assert.NoError(t, Document{State: st}.Validate())
		}
	})

	t.Run("indefinite suspension", func(t *testing.T) {
		assert.NoError(t, Document{State: StateSuspended, Reason: "spam"}.Validate())
	})

	t.Run("temporary suspension", func(t *testing.T) {
		assert.NoError(t, Document{State: StateSuspended, Until: &until}.Validate())
	})

	t.Run("unknown state rejected", func(t *testing.T) {
		err := Document{State: State("archived")}.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("until outside a suspension rejected", func(t *testing.T) {
		err := Document{State: StateApproved, Until: &until}.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("reason length capped", func(t *testing.T) {
		err := Document{State: StateRejected, Reason: strings.Repeat("x", MaxReasonLen+1)}.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		assert.NoError(t, Document{State: StateRejected, Reason: strings.Repeat("x", MaxReasonLen)}.Validate())
	})
}
