package apiclient

import (
	"context"
	"sync"
)

// RefreshState is the coordinator's position in its Idle/Refreshing cycle.
type RefreshState int

const (
	RefreshIdle RefreshState = iota
	RefreshInProgress
)

func (state RefreshState) String() string {
	if state == RefreshInProgress {
		return "refreshing"
	}
	return "idle"
}

// RefreshFunc performs one refresh round trip and returns the new access token.
type RefreshFunc func(ctx context.Context) (string, error)

// CurrentTokenFunc reads the access token currently held by the token store.
type CurrentTokenFunc func(ctx context.Context) string

type refreshOutcome struct {
	accessToken string
	err         error
}

// RefreshCoordinator lets at most one refresh run at a time and hands its
// outcome to every caller that asked for a token while it was running.
type RefreshCoordinator struct {
	mutex       sync.Mutex
	state       RefreshState
	subscribers []chan refreshOutcome
	refresh     RefreshFunc
	current     CurrentTokenFunc
	metrics     MetricsRecorder

	// failedToken is the stale token of the last cycle that failed; late
	// 401s carrying it get that failure instead of a new cycle.
	failedToken string
	failedErr   error
}

// NewRefreshCoordinator builds an idle coordinator. current may be nil.
func NewRefreshCoordinator(refresh RefreshFunc, current CurrentTokenFunc, metrics MetricsRecorder) *RefreshCoordinator {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &RefreshCoordinator{
		refresh: refresh,
		current: current,
		metrics: metrics,
	}
}

// State reports whether a refresh is in flight.
func (coordinator *RefreshCoordinator) State() RefreshState {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	return coordinator.state
}

// PendingSubscribers returns how many callers are waiting on the in-flight refresh.
func (coordinator *RefreshCoordinator) PendingSubscribers() int {
	coordinator.mutex.Lock()
	defer coordinator.mutex.Unlock()
	return len(coordinator.subscribers)
}

// Refresh returns an access token newer than staleAccessToken.
//
// While idle, the caller either picks up a token stored by a refresh that
// finished after its request was sent, or becomes the initiator of a new
// refresh. While refreshing, the caller subscribes and receives the same
// outcome as the initiator, including its error. A caller whose stale token
// already ended in a failed refresh receives that failure again.
func (coordinator *RefreshCoordinator) Refresh(ctx context.Context, staleAccessToken string) (string, error) {
	coordinator.mutex.Lock()
	if coordinator.state == RefreshInProgress {
		waiter := make(chan refreshOutcome, 1)
		coordinator.subscribers = append(coordinator.subscribers, waiter)
		coordinator.mutex.Unlock()
		coordinator.metrics.Increment(MetricRefreshJoined)

		select {
		case outcome := <-waiter:
			return outcome.accessToken, outcome.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if staleAccessToken != "" && coordinator.current != nil {
		if currentToken := coordinator.current(ctx); currentToken != "" && currentToken != staleAccessToken {
			coordinator.mutex.Unlock()
			coordinator.metrics.Increment(MetricRefreshSkipped)
			return currentToken, nil
		}
	}
	if staleAccessToken != "" && staleAccessToken == coordinator.failedToken {
		settledErr := coordinator.failedErr
		coordinator.mutex.Unlock()
		coordinator.metrics.Increment(MetricRefreshReusedFailure)
		return "", settledErr
	}
	coordinator.state = RefreshInProgress
	coordinator.mutex.Unlock()
	coordinator.metrics.Increment(MetricRefreshStarted)

	// Waiters depend on this refresh; the initiator's cancellation must not abort it.
	accessToken, err := coordinator.refresh(context.WithoutCancel(ctx))
	if err != nil {
		coordinator.metrics.Increment(MetricRefreshFailed)
	} else {
		coordinator.metrics.Increment(MetricRefreshSucceeded)
	}
	coordinator.settle(staleAccessToken, refreshOutcome{accessToken: accessToken, err: err})
	return accessToken, err
}

func (coordinator *RefreshCoordinator) settle(staleAccessToken string, outcome refreshOutcome) {
	coordinator.mutex.Lock()
	subscribers := coordinator.subscribers
	coordinator.subscribers = nil
	coordinator.state = RefreshIdle
	if outcome.err != nil {
		coordinator.failedToken = staleAccessToken
		coordinator.failedErr = outcome.err
	} else {
		coordinator.failedToken = ""
		coordinator.failedErr = nil
	}
	coordinator.mutex.Unlock()

	for _, waiter := range subscribers {
		waiter <- outcome
	}
}
