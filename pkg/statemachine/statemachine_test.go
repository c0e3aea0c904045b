package statemachine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgekit/lodgekit/pkg/statemachine"
)

func newLifecycle(t *testing.T) *statemachine.Machine {
	t.Helper()

	m := statemachine.New()
	require.NoError(t, m.AddTransition("draft", "active", "activate"))
	require.NoError(t, m.AddTransition("active", "inactive", "deactivate"))
	require.NoError(t, m.AddTransition("inactive", "active", "activate"))
	return m
}

func TestMachine_Next(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newLifecycle(t)

	tests := []struct {
		name    string
		from    statemachine.State
		event   statemachine.Event
		want    statemachine.State
		wantErr bool
	}{
		{name: "draft activates", from: "draft", event: "activate", want: "active"},
		{name: "active deactivates", from: "active", event: "deactivate", want: "inactive"},
		{name: "inactive reactivates", from: "inactive", event: "activate", want: "active"},
		{name: "draft cannot deactivate", from: "draft", event: "deactivate", wantErr: true},
		{name: "active cannot activate", from: "active", event: "activate", wantErr: true},
		{name: "unknown state", from: "archived", event: "activate", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Next(ctx, tt.from, tt.event, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, statemachine.IsNoTransitionError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMachine_Guards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := statemachine.New()
	allow := false
	require.NoError(t, m.AddTransition("draft", "active", "activate",
		func(ctx context.Context, from statemachine.State, event statemachine.Event, data any) bool {
			return allow
		},
	))

	_, err := m.Next(ctx, "draft", "activate", nil)
	require.Error(t, err)
	assert.True(t, statemachine.IsTransitionRejectedError(err))

	allow = true
	next, err := m.Next(ctx, "draft", "activate", nil)
	require.NoError(t, err)
	assert.Equal(t, statemachine.State("active"), next)
}

func TestMachine_CanReach(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newLifecycle(t)

	assert.True(t, m.CanReach(ctx, "draft", "active", nil))
	assert.True(t, m.CanReach(ctx, "inactive", "active", nil))
	assert.False(t, m.CanReach(ctx, "draft", "inactive", nil))
}

func TestMachine_AddTransitionValidation(t *testing.T) {
	t.Parallel()

	m := statemachine.New()
	assert.ErrorIs(t, m.AddTransition("", "active", "activate"), statemachine.ErrInvalidTransition)
	assert.ErrorIs(t, m.AddTransition("draft", "", "activate"), statemachine.ErrInvalidTransition)
	assert.ErrorIs(t, m.AddTransition("draft", "active", ""), statemachine.ErrInvalidTransition)
}
