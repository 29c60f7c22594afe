package animation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFrameInterval approximates one display frame at 60 Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Observer receives animation lifecycle notifications.
type Observer interface {
	AnimationStarted(key string)
	AnimationFrame(key string)
	AnimationStopped(key string, completed bool)
}

// RunnerConfig holds configuration for a Runner.
type RunnerConfig struct {
	// FrameInterval is the delay between frames (default: 16ms).
	FrameInterval time.Duration

	// Observer is notified of run lifecycle events (optional).
	Observer Observer

	Logger zerolog.Logger
}

// Runner schedules an Animator on a ticker. At most one run is live at a
// time; starting a new run cancels the previous one.
type Runner struct {
	interval time.Duration
	observer Observer
	logger   zerolog.Logger

	gen atomic.Uint64

	mu     sync.Mutex
	key    string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	interval := cfg.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Runner{
		interval: interval,
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}
}

// Start animates wps into sink under key, replacing any run in progress.
// The previous run has delivered its End before the new run's Begin.
func (r *Runner) Start(ctx context.Context, key string, wps []Waypoint, sink Sink) error {
	anim, err := NewAnimator(wps)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()

	gen := r.gen.Add(1)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.key, r.cancel, r.done = key, cancel, done

	route := NewRoute(key, wps)
	go r.run(runCtx, gen, key, anim, route, sink, done)
	return nil
}

// Stop cancels the current run and waits for it to finish. It is safe to
// call when nothing is running.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// StopKey stops the current run only if it was started under key.
func (r *Runner) StopKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.key == key {
		r.stopLocked()
	}
}

// Key returns the key of the live run, or "" when idle.
func (r *Runner) Key() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return ""
	}
	select {
	case <-r.done:
		return ""
	default:
		return r.key
	}
}

func (r *Runner) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.gen.Add(1)
	r.cancel()
	<-r.done
	r.key, r.cancel, r.done = "", nil, nil
}

func (r *Runner) run(ctx context.Context, gen uint64, key string, anim *Animator, route Route, sink Sink, done chan struct{}) {
	defer close(done)

	log := r.logger.With().Str("animation", key).Logger()
	log.Debug().Int("segments", len(anim.Segments())).Msg("animation started")
	if r.observer != nil {
		r.observer.AnimationStarted(key)
	}

	completed := false
	sink.Begin(route)
	defer func() {
		anim.Halt()
		sink.End()
		if r.observer != nil {
			r.observer.AnimationStopped(key, completed)
		}
		log.Debug().Bool("completed", completed).Msg("animation ended")
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// A newer Start or Stop supersedes this run; drop the frame.
		if r.gen.Load() != gen || ctx.Err() != nil {
			return
		}
		frame, ok := anim.Next()
		if !ok {
			return
		}
		sink.Frame(frame)
		if r.observer != nil {
			r.observer.AnimationFrame(key)
		}
		if frame.Done {
			completed = true
			return
		}
	}
}
