package metrics

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/brollup/coordinator/log"
)

// ThresholdMonitor periodically checks whether the number of operators this
// coordinator has failed to reach in the last period has crossed the
// signing threshold, warning or erroring as the margin narrows.
type ThresholdMonitor struct {
	lock              sync.RWMutex
	log               log.Logger
	operatorCount     int
	threshold         int
	failedConnections map[string]bool
	ctx               context.Context
	cancel            func()
	period            time.Duration
}

// NewThresholdMonitor builds a monitor watching operatorCount operators
// against a signing threshold.
func NewThresholdMonitor(l log.Logger, operatorCount, threshold int) *ThresholdMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &ThresholdMonitor{
		log:               l,
		operatorCount:     operatorCount,
		threshold:         threshold,
		failedConnections: make(map[string]bool),
		ctx:               ctx,
		cancel:            cancel,
		period:            1 * time.Minute,
	}
}

// Start runs the monitor's periodic check loop until Stop is called.
func (t *ThresholdMonitor) Start() {
	t.log.Infow("starting threshold monitor")

	go func() {
		for {
			select {
			case <-t.ctx.Done():
				t.log.Infow("ending threshold monitor")
				return
			default:
				t.tick()
				time.Sleep(t.period)
			}
		}
	}()
}

func (t *ThresholdMonitor) tick() {
	t.lock.RLock()
	var failingNodes []string
	for key := range t.failedConnections {
		failingNodes = append(failingNodes, key)
	}
	operatorCount, threshold := t.operatorCount, t.threshold
	t.lock.RUnlock()

	maxFailures := operatorCount - threshold

	switch {
	case len(failingNodes) >= maxFailures:
		t.log.Errorw(
			"failed connections crossed signing threshold in the last period",
			"operatorCount", operatorCount,
			"threshold", threshold,
			"failures", len(failingNodes),
			"operators", strings.Join(failingNodes, ","),
		)
	case maxFailures > 0 && len(failingNodes) >= maxFailures/2:
		t.log.Warnw(
			"failed connections crossed half signing threshold in the last period",
			"operatorCount", operatorCount,
			"threshold", threshold,
			"failures", len(failingNodes),
			"operators", strings.Join(failingNodes, ","),
		)
	default:
		t.log.Debugw(
			"threshold monitor healthy",
			"operatorCount", operatorCount,
			"threshold", threshold,
			"failures", len(failingNodes),
		)
	}

	t.lock.Lock()
	t.failedConnections = make(map[string]bool)
	t.lock.Unlock()
}

// Stop ends the monitor's check loop.
func (t *ThresholdMonitor) Stop() {
	t.cancel()
}

// ReportFailure records a failed request to the operator identified by
// keyHex, counted toward the current period's tally.
func (t *ThresholdMonitor) ReportFailure(keyHex string) {
	WireRejectionsTotal.WithLabelValues("peer_unreachable").Inc()
	t.lock.Lock()
	t.failedConnections[keyHex] = true
	t.lock.Unlock()
}

// Update changes the monitored operator count and threshold, e.g. after an
// operator set rotation.
func (t *ThresholdMonitor) Update(operatorCount, threshold int) {
	t.lock.Lock()
	t.operatorCount = operatorCount
	t.threshold = threshold
	t.lock.Unlock()
}
