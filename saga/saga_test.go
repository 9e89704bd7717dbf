package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaga_CompensatesInReverseOrder(t *testing.T) {
	s := New("create-project", nil)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, StatusRunning, s.Status())

	var order []string
	for _, name := range []string{"row", "links", "index"} {
		require.NoError(t, s.Record(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}))
	}

	require.NoError(t, s.Compensate(context.Background()))
	assert.Equal(t, []string{"index", "links", "row"}, order)
	assert.Equal(t, StatusCompensated, s.Status())
}

func TestSaga_RunsAllActionsWhenOneFails(t *testing.T) {
	s := New("create-project", nil)

	boom := errors.New("delete failed")
	ran := 0
	require.NoError(t, s.Record("first", func(ctx context.Context) error { ran++; return nil }))
	require.NoError(t, s.Record("second", func(ctx context.Context) error { ran++; return boom }))
	require.NoError(t, s.Record("third", func(ctx context.Context) error { ran++; return nil }))

	err := s.Compensate(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "compensating second")
	assert.Equal(t, 3, ran)
	assert.Equal(t, StatusCompensationFailed, s.Status())
}

func TestSaga_Succeed(t *testing.T) {
	s := New("create-project", nil)
	called := false
	require.NoError(t, s.Record("row", func(ctx context.Context) error { called = true; return nil }))

	require.NoError(t, s.Succeed())
	assert.Equal(t, StatusSucceeded, s.Status())

	assert.ErrorIs(t, s.Compensate(context.Background()), ErrNotRunning)
	assert.ErrorIs(t, s.Record("late", nil), ErrNotRunning)
	assert.ErrorIs(t, s.Succeed(), ErrNotRunning)
	assert.False(t, called)
}

func TestSaga_CompensateTwice(t *testing.T) {
	s := New("create-project", nil)
	require.NoError(t, s.Compensate(context.Background()))
	assert.ErrorIs(t, s.Compensate(context.Background()), ErrNotRunning)
	assert.NotEqual(t, New("x", nil).ID(), New("x", nil).ID())
}
