package output

import (
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const spinnerFrameInterval = 120 * time.Millisecond

// Spinner is a live single-line status indicator backed by an unbounded
// progressbar. It implements step.Progress.
type Spinner struct {
	mu          sync.Mutex
	bar         *progressbar.ProgressBar
	description string
	last        string
	stopped     bool

	done chan struct{}
	wg   sync.WaitGroup
}

func newSpinner(p *Printer, description string) *Spinner {
	s := &Spinner{
		description: description,
		done:        make(chan struct{}),
	}
	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription(description+" ..."),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetElapsedTime(false),
	)

	if p.animate {
		s.wg.Add(1)
		go s.spin()
	}
	return s
}

func (s *Spinner) spin() {
	defer s.wg.Done()
	ticker := time.NewTicker(spinnerFrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.stopped {
				_ = s.bar.Add(1)
			}
			s.mu.Unlock()
		}
	}
}

// Update replaces the status text shown after the description.
func (s *Spinner) Update(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.last = status
	s.bar.Describe(s.description + " ... " + status)
	_ = s.bar.Add(1)
}

// Last returns the most recent status passed to Update.
func (s *Spinner) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Stop clears the status line and stops the animation. It is safe to call
// more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.done)
	_ = s.bar.Finish()
	s.mu.Unlock()

	s.wg.Wait()
}
