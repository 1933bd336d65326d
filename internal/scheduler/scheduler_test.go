package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterClientDefaults(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("a"))

	m, err := s.ClientMetrics("a")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Weight)
	assert.Equal(t, 0, m.QueueDepth)
}

func TestRegisterClientRejectsZeroWeight(t *testing.T) {
	s := New()
	err := s.RegisterClient("a", WithWeight(0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestRegisterClientRejectsDuplicate(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("a"))
	err := s.RegisterClient("a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))
}

func TestSubmitUnknownClient(t *testing.T) {
	s := New()
	err := s.Submit("ghost", func() {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownClient))
}

func TestSubmitAndSelectFIFOPerClient(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("a"))

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		require.NoError(t, s.Submit("a", func() { order = append(order, i) }))
	}

	for i := 0; i < 3; i++ {
		job, ok := s.SelectNextJob()
		require.True(t, ok)
		job.Task()
	}
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestSelectNextJobEmptyRegistry(t *testing.T) {
	s := New()
	_, ok := s.SelectNextJob()
	assert.False(t, ok)
}

func TestQueueFullReject(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("a", WithMaxQueueDepth(1), WithOverflowStrategy(Reject)))

	require.NoError(t, s.Submit("a", func() {}))
	err := s.Submit("a", func() {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueFull))

	m, err := s.ClientMetrics("a")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.OverflowCount)
}

func TestQueueFullDropOldest(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("a", WithMaxQueueDepth(1), WithOverflowStrategy(DropOldest)))

	var ran []string
	require.NoError(t, s.Submit("a", func() { ran = append(ran, "first") }))
	require.NoError(t, s.Submit("a", func() { ran = append(ran, "second") }))

	job, ok := s.SelectNextJob()
	require.True(t, ok)
	job.Task()
	assert.Equal(t, []string{"second"}, ran)

	_, ok = s.SelectNextJob()
	assert.False(t, ok)
}

func TestQueueFullDropNewestSucceedsSilently(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("a", WithMaxQueueDepth(1), WithOverflowStrategy(DropNewest)))

	require.NoError(t, s.Submit("a", func() {}))
	err := s.Submit("a", func() {})
	require.NoError(t, err)

	m, err := s.ClientMetrics("a")
	require.NoError(t, err)
	assert.Equal(t, 1, m.QueueDepth)
	assert.Equal(t, uint64(1), m.OverflowCount)
}

func TestQueueFullBlockUnblocksOnDrain(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("a", WithMaxQueueDepth(1), WithOverflowStrategy(Block)))

	require.NoError(t, s.Submit("a", func() {}))

	done := make(chan struct{})
	go func() {
		require.NoError(t, s.Submit("a", func() {}))
		close(done)
	}()

	// Give the blocked submitter a moment to actually park on the cond var.
	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("submit unblocked before queue drained")
	default:
	}

	job, ok := s.SelectNextJob()
	require.True(t, ok)
	job.Task()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked submit never unblocked after drain")
	}
}

func TestRecordExecutionUnknownClientIsNoOp(t *testing.T) {
	s := New()
	assert.NotPanics(t, func() { s.RecordExecution("ghost", time.Millisecond) })
}

func TestGlobalMetricsJainFairness(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("a"))
	require.NoError(t, s.RegisterClient("b"))

	s.RecordExecution("a", time.Microsecond)
	s.RecordExecution("b", time.Microsecond)

	g := s.GlobalMetrics()
	assert.Equal(t, 2, g.ActiveClients)
	assert.Equal(t, uint64(2), g.TotalProcessed)
	assert.InDelta(t, 1.0, g.JainFairnessIndex, 1e-9)
}

func TestAllClientMetricsReturnsRegistrationOrder(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("b", WithWeight(2)))
	require.NoError(t, s.RegisterClient("a", WithWeight(5)))
	require.NoError(t, s.Submit("a", func() {}))

	snapshots := s.AllClientMetrics()
	require.Len(t, snapshots, 2)
	assert.Equal(t, "b", snapshots[0].ID)
	assert.Equal(t, 2, snapshots[0].Weight)
	assert.Equal(t, "a", snapshots[1].ID)
	assert.Equal(t, 5, snapshots[1].Weight)
	assert.Equal(t, uint64(1), snapshots[1].Submitted)
}

func TestHasPendingJobs(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("a"))
	assert.False(t, s.HasPendingJobs())

	require.NoError(t, s.Submit("a", func() {}))
	assert.True(t, s.HasPendingJobs())

	job, ok := s.SelectNextJob()
	require.True(t, ok)
	job.Task()
	assert.False(t, s.HasPendingJobs())
}

func TestConcurrentSubmitRaceFree(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterClient("a"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Submit("a", func() {})
		}()
	}
	wg.Wait()

	m, err := s.ClientMetrics("a")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), m.Submitted)
}
