package juju

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const waitTimeout = 5 * time.Second

func setupPoller(client Client) (*Poller, *testclock.Clock) {
	clk := testclock.NewClock(time.Now())
	return NewPoller(client, clk, time.Second, zerolog.Nop()), clk
}

// startWait runs wait in a goroutine and returns its result channel.
func startWait(wait func() error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- wait() }()
	return done
}

// advance moves the clock one interval at a time. Each wait has two
// timers pending between ticks: the interval and the timeout.
func advance(t *testing.T, clk *testclock.Clock, ticks int) {
	t.Helper()
	for i := 0; i < ticks; i++ {
		require.NoError(t, clk.WaitAdvance(time.Second, waitTimeout, 2))
	}
}

func result(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("wait did not return")
		return nil
	}
}

func TestWaitUntilDesiredStatus_ConvergesOnThirdTick(t *testing.T) {
	client := NewMockClient()
	client.Script("keystone", "keystone-k8s", StatusBlocked, StatusBlocked, StatusActive)
	poller, clk := setupPoller(client)
	queue := NewStatusQueue(1)

	done := startWait(func() error {
		return poller.WaitUntilDesiredStatus(context.Background(), Target{
			Model:         "openstack",
			Applications:  []string{"keystone"},
			DesiredStatus: []string{StatusActive},
			Timeout:       60 * time.Second,
		}, queue)
	})
	advance(t, clk, 2)

	require.NoError(t, result(t, done))
	assert.Equal(t, 3, client.Queries())
	// Only changes are pushed; capacity one keeps the newest.
	assert.Equal(t, "keystone: active", <-queue.C())
}

func TestWaitUntilDesiredStatus_TimesOut(t *testing.T) {
	client := NewMockClient()
	client.Script("cinder", "cinder-k8s", StatusBlocked)
	poller, clk := setupPoller(client)

	done := startWait(func() error {
		return poller.WaitUntilDesiredStatus(context.Background(), Target{
			Model:         "openstack",
			Applications:  []string{"cinder"},
			DesiredStatus: []string{StatusActive},
			Timeout:       2 * time.Second,
		}, nil)
	})
	advance(t, clk, 2)

	err := result(t, done)
	require.Error(t, err)
	var timeoutErr *WaitTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, StatusBlocked, timeoutErr.Statuses["cinder"])
	assert.Contains(t, err.Error(), "cinder")
	assert.Contains(t, err.Error(), "timed out")
	assert.True(t, errors.Is(err, errors.Timeout))
	assert.Equal(t, 2, client.Queries(), "no query once the deadline is reached")
}

func TestWaitUntilDesiredStatus_AcceptsAnyDesiredStatus(t *testing.T) {
	client := NewMockClient()
	client.Script("manila", "manila-k8s", StatusWaiting, StatusBlocked)
	client.Script("manila-cephfs", "manila-cephfs-k8s", StatusUnknown)
	poller, clk := setupPoller(client)

	done := startWait(func() error {
		return poller.WaitUntilDesiredStatus(context.Background(), Target{
			Model:         "openstack",
			Applications:  []string{"manila", "manila-cephfs"},
			DesiredStatus: []string{StatusActive, StatusBlocked, StatusUnknown},
			Timeout:       time.Minute,
		}, nil)
	})
	advance(t, clk, 1)

	require.NoError(t, result(t, done))
}

func TestWaitUntilDesiredStatus_FlappingIsReevaluated(t *testing.T) {
	client := NewMockClient()
	client.Script("nova", "nova-k8s", StatusActive, StatusWaiting, StatusActive)
	client.Script("glance", "glance-k8s", StatusWaiting, StatusWaiting, StatusActive)
	poller, clk := setupPoller(client)

	done := startWait(func() error {
		return poller.WaitUntilDesiredStatus(context.Background(), Target{
			Model:         "openstack",
			Applications:  []string{"nova", "glance"},
			DesiredStatus: []string{StatusActive},
			Timeout:       time.Minute,
		}, nil)
	})
	advance(t, clk, 2)

	require.NoError(t, result(t, done))
	assert.Equal(t, 3, client.Queries())
}

func TestWaitUntilDesiredStatus_EmptyApplications(t *testing.T) {
	client := NewMockClient()
	poller, _ := setupPoller(client)

	err := poller.WaitUntilDesiredStatus(context.Background(), Target{
		Model:         "openstack",
		DesiredStatus: []string{StatusActive},
		Timeout:       time.Second,
	}, nil)

	require.NoError(t, err)
	assert.Zero(t, client.Queries())
}

func TestWaitUntilDesiredStatus_ApplicationNotFound(t *testing.T) {
	client := NewMockClient()
	client.Script("keystone", "keystone-k8s", StatusActive)
	poller, _ := setupPoller(client)

	err := poller.WaitUntilDesiredStatus(context.Background(), Target{
		Model:         "openstack",
		Applications:  []string{"keystone", "nova"},
		DesiredStatus: []string{StatusActive},
		Timeout:       time.Minute,
	}, nil)

	require.Error(t, err)
	var waitErr *WaitError
	require.True(t, errors.As(err, &waitErr))
	assert.True(t, IsApplicationNotFound(err))
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestWaitUntilDesiredStatus_QueryFailure(t *testing.T) {
	client := NewMockClient()
	client.QueryErr = errors.New("controller unreachable")
	poller, _ := setupPoller(client)

	err := poller.WaitUntilDesiredStatus(context.Background(), Target{
		Model:         "openstack",
		Applications:  []string{"keystone"},
		DesiredStatus: []string{StatusActive},
		Timeout:       time.Minute,
	}, nil)

	var waitErr *WaitError
	require.True(t, errors.As(err, &waitErr))
	assert.Contains(t, err.Error(), "controller unreachable")
}

func TestWaitUntilDesiredStatus_ContextCancelled(t *testing.T) {
	client := NewMockClient()
	client.Script("keystone", "keystone-k8s", StatusBlocked)
	poller, _ := setupPoller(client)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := poller.WaitUntilDesiredStatus(ctx, Target{
		Model:         "openstack",
		Applications:  []string{"keystone"},
		DesiredStatus: []string{StatusActive},
		Timeout:       time.Minute,
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var waitErr *WaitError
	assert.False(t, errors.As(err, &waitErr), "cancellation is not a query failure")
	assert.False(t, errors.Is(err, errors.Timeout))
}

// hangingClient accepts queries and answers only once their context ends.
type hangingClient struct {
	*MockClient
	calls chan struct{}
}

func newHangingClient() *hangingClient {
	return &hangingClient{MockClient: NewMockClient(), calls: make(chan struct{}, 1)}
}

func (c *hangingClient) GetApplications(ctx context.Context, _ string) (map[string]*Application, error) {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWaitUntilDesiredStatus_HungQueryTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newHangingClient()
	poller, clk := setupPoller(client)

	done := startWait(func() error {
		return poller.WaitUntilDesiredStatus(context.Background(), Target{
			Model:         "openstack",
			Applications:  []string{"keystone"},
			DesiredStatus: []string{StatusActive},
			Timeout:       30 * time.Second,
		}, nil)
	})
	<-client.calls
	// The query never returns, so only the timeout is waiting on the clock.
	require.NoError(t, clk.WaitAdvance(31*time.Second, waitTimeout, 1))

	err := result(t, done)
	var timeoutErr *WaitTimeoutError
	require.True(t, errors.As(err, &timeoutErr), "got %v", err)
	assert.Equal(t, 30*time.Second, timeoutErr.Timeout)
	assert.Empty(t, timeoutErr.Statuses)
	assert.True(t, errors.Is(err, errors.Timeout))
}

func TestWaitUntilDesiredStatus_HungQueryCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := newHangingClient()
	poller, _ := setupPoller(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := startWait(func() error {
		return poller.WaitApplicationGone(ctx, "openstack", []string{"manila"}, time.Minute)
	})
	<-client.calls
	cancel()

	err := result(t, done)
	assert.ErrorIs(t, err, context.Canceled)
	var timeoutErr *WaitTimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
	var waitErr *WaitError
	assert.False(t, errors.As(err, &waitErr))
}

func TestWaitUntilDesiredStatus_InvalidTimeout(t *testing.T) {
	poller, _ := setupPoller(NewMockClient())

	err := poller.WaitUntilDesiredStatus(context.Background(), Target{Model: "openstack"}, nil)

	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestWaitApplicationGone(t *testing.T) {
	client := NewMockClient()
	client.Script("manila", "manila-k8s", StatusActive, StatusActive, Absent)
	client.Script("manila-cephfs", "manila-cephfs-k8s", StatusActive, Absent)
	poller, clk := setupPoller(client)

	done := startWait(func() error {
		return poller.WaitApplicationGone(context.Background(), "openstack",
			[]string{"manila", "manila-cephfs"}, time.Minute)
	})
	advance(t, clk, 2)

	require.NoError(t, result(t, done))
	assert.Equal(t, 3, client.Queries())
}

func TestWaitApplicationGone_TimesOut(t *testing.T) {
	client := NewMockClient()
	client.Script("manila", "manila-k8s", StatusActive)
	client.Script("manila-cephfs", "manila-cephfs-k8s", Absent)
	poller, clk := setupPoller(client)

	done := startWait(func() error {
		return poller.WaitApplicationGone(context.Background(), "openstack",
			[]string{"manila", "manila-cephfs"}, time.Second)
	})
	advance(t, clk, 1)

	err := result(t, done)
	var timeoutErr *WaitTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, map[string]string{"manila": StatusActive}, timeoutErr.Statuses)
}

func TestWaitUnitsReady(t *testing.T) {
	client := NewMockClient()
	client.Script("nova", "nova-k8s", StatusWaiting, StatusActive)
	poller, clk := setupPoller(client)
	filter := UnitStatusFilter{Agent: []string{StatusIdle}, Workload: []string{StatusActive}}

	done := startWait(func() error {
		return poller.WaitUnitsReady(context.Background(), "openstack", []string{"nova/0"}, filter, time.Minute)
	})
	advance(t, clk, 1)

	require.NoError(t, result(t, done))
}

func TestWaitUnitsReady_MissingUnitTimesOut(t *testing.T) {
	client := NewMockClient()
	client.Script("nova", "nova-k8s", StatusActive)
	poller, clk := setupPoller(client)
	filter := UnitStatusFilter{Agent: []string{StatusIdle}, Workload: []string{StatusActive}}

	done := startWait(func() error {
		return poller.WaitUnitsReady(context.Background(), "openstack", []string{"nova/0", "nova/1"}, filter, time.Second)
	})
	advance(t, clk, 1)

	err := result(t, done)
	var timeoutErr *WaitTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, "missing", timeoutErr.Statuses["nova/1"])
	assert.Equal(t, "idle/active", timeoutErr.Statuses["nova/0"])
}

func TestUnitStatusFilter_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		filter UnitStatusFilter
		unit   Unit
		want   bool
	}{
		{
			name:   "agent and workload match",
			filter: UnitStatusFilter{Agent: []string{"idle"}, Workload: []string{"active"}},
			unit:   Unit{AgentStatus: "idle", WorkloadStatus: "active"},
			want:   true,
		},
		{
			name:   "agent executing",
			filter: UnitStatusFilter{Agent: []string{"idle"}, Workload: []string{"active"}},
			unit:   Unit{AgentStatus: "executing", WorkloadStatus: "active"},
			want:   false,
		},
		{
			name:   "workload blocked",
			filter: UnitStatusFilter{Agent: []string{"idle"}, Workload: []string{"active"}},
			unit:   Unit{AgentStatus: "idle", WorkloadStatus: "blocked"},
			want:   false,
		},
		{
			name:   "empty agent list accepts any agent",
			filter: UnitStatusFilter{Workload: []string{"active"}},
			unit:   Unit{AgentStatus: "executing", WorkloadStatus: "active"},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Accepts(tt.unit))
		})
	}
}
