package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSweeper struct {
	sweeps atomic.Int64
}

func (s *countingSweeper) RunEscalationSweep(ctx context.Context) ([]string, error) {
	s.sweeps.Add(1)
	return nil, nil
}

func TestSLAWorker_StartSweepsImmediately(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewSLAWorker(sweeper, time.Hour, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Eventually(t, func() bool {
		return sweeper.sweeps.Load() >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestSLAWorker_DoubleStartFails(t *testing.T) {
	w := NewSLAWorker(&countingSweeper{}, time.Hour, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestSLAWorker_StopIsIdempotent(t *testing.T) {
	w := NewSLAWorker(&countingSweeper{}, time.Hour, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestManager_StartsAndStopsWorkers(t *testing.T) {
	m := NewManager(zap.NewNop())
	w := NewSLAWorker(&countingSweeper{}, time.Hour, zap.NewNop())
	m.Register(w)

	require.Equal(t, 1, m.Count())
	require.NoError(t, m.StartAll(context.Background()))
	m.StopAll()
}
