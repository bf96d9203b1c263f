package bvh

import (
	"sync"
	"sync/atomic"

	"github.com/achilleasa/polaris-bvh/log"
)

// Progress is polled by the builder for cancellation and receives status
// updates while a tree is being built.
type Progress interface {
	Cancelled() bool
	SetSubstatus(status string)
}

type nopProgress struct{}

func (nopProgress) Cancelled() bool      { return false }
func (nopProgress) SetSubstatus(string) {}

// StatusProgress is a Progress implementation that can be cancelled from
// another goroutine and forwards status updates to a logger.
type StatusProgress struct {
	logger    log.Logger
	cancelled atomic.Bool

	mutex     sync.Mutex
	substatus string
}

// Create a new StatusProgress. If logger is nil, status updates are only
// recorded.
func NewStatusProgress(logger log.Logger) *StatusProgress {
	return &StatusProgress{logger: logger}
}

// Request the build to stop.
func (p *StatusProgress) Cancel() {
	p.cancelled.Store(true)
}

func (p *StatusProgress) Cancelled() bool {
	return p.cancelled.Load()
}

func (p *StatusProgress) SetSubstatus(status string) {
	p.mutex.Lock()
	p.substatus = status
	p.mutex.Unlock()

	if p.logger != nil {
		p.logger.Info(status)
	}
}

// Get the last reported status.
func (p *StatusProgress) Substatus() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.substatus
}
