package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		ok       bool
	}{
		{TaskWaiting, TaskInProgress, true},
		{TaskWaiting, TaskFailed, true},
		{TaskInProgress, TaskCompleted, true},
		{TaskInProgress, TaskFailed, true},

		// No skipping ahead.
		{TaskWaiting, TaskCompleted, false},
		// No re-entering earlier states.
		{TaskInProgress, TaskWaiting, false},
		{TaskInProgress, TaskInProgress, false},
		// Terminal states are final.
		{TaskCompleted, TaskFailed, false},
		{TaskCompleted, TaskWaiting, false},
		{TaskCompleted, TaskInProgress, false},
		{TaskFailed, TaskCompleted, false},
		{TaskFailed, TaskWaiting, false},
		{TaskFailed, TaskInProgress, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to))
			err := ValidateTransition(tc.from, tc.to)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateTransitionUnknownStatus(t *testing.T) {
	require.Error(t, ValidateTransition("bogus", TaskCompleted))
	require.Error(t, ValidateTransition(TaskWaiting, "bogus"))
}

func TestTerminal(t *testing.T) {
	assert.False(t, TaskWaiting.Terminal())
	assert.False(t, TaskInProgress.Terminal())
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())
}
