// Package anim drives time-based interpolation of view properties.
//
// Engine is stepped by the coordinating goroutine once per frame, so
// completion callbacks always run on that goroutine.
package anim

import (
	"time"

	"github.com/OCAP2/markerview/internal/view"
)

// Animator starts and cancels scalar transitions on views. done receives true
// when the transition reached its target and false when it was cancelled or
// replaced. A non-positive duration applies the target immediately.
type Animator interface {
	Animate(v *view.View, p view.Property, to float64, d time.Duration, done func(finished bool))
	Cancel(v *view.View)
}

type track struct {
	v     *view.View
	p     view.Property
	from  float64
	to    float64
	start time.Time
	d     time.Duration
	done  func(bool)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithInterpolator replaces the default FastOutSlowIn easing.
func WithInterpolator(i Interpolator) EngineOption {
	return func(e *Engine) {
		e.interp = i
	}
}

// Engine is a frame-stepped Animator.
type Engine struct {
	now    func() time.Time
	interp Interpolator
	tracks []*track
}

// NewEngine creates an engine reading time from now (time.Now when nil).
func NewEngine(now func() time.Time, opts ...EngineOption) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{now: now, interp: FastOutSlowIn}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Animate implements Animator. A running transition of the same property on
// the same view is replaced and its callback receives false.
func (e *Engine) Animate(v *view.View, p view.Property, to float64, d time.Duration, done func(finished bool)) {
	e.remove(func(tr *track) bool { return tr.v == v && tr.p == p })

	if d <= 0 {
		v.Set(p, to)
		if done != nil {
			done(true)
		}
		return
	}
	e.tracks = append(e.tracks, &track{
		v:     v,
		p:     p,
		from:  v.Get(p),
		to:    to,
		start: e.now(),
		d:     d,
		done:  done,
	})
}

// Cancel implements Animator. Properties keep their current intermediate values.
func (e *Engine) Cancel(v *view.View) {
	e.remove(func(tr *track) bool { return tr.v == v })
}

// Animating reports whether v has a running transition.
func (e *Engine) Animating(v *view.View) bool {
	for _, tr := range e.tracks {
		if tr.v == v {
			return true
		}
	}
	return false
}

// Active returns the number of running transitions.
func (e *Engine) Active() int {
	return len(e.tracks)
}

// Step advances every transition to the current time. Callbacks of finished
// transitions run after all values are written and may start new transitions.
func (e *Engine) Step() {
	if len(e.tracks) == 0 {
		return
	}
	now := e.now()

	kept := make([]*track, 0, len(e.tracks))
	var finished []*track
	for _, tr := range e.tracks {
		elapsed := now.Sub(tr.start)
		if elapsed >= tr.d {
			tr.v.Set(tr.p, tr.to)
			finished = append(finished, tr)
			continue
		}
		frac := e.interp(float64(elapsed) / float64(tr.d))
		tr.v.Set(tr.p, tr.from+(tr.to-tr.from)*frac)
		kept = append(kept, tr)
	}
	e.tracks = kept

	for _, tr := range finished {
		if tr.done != nil {
			tr.done(true)
		}
	}
}

func (e *Engine) remove(match func(*track) bool) {
	var cancelled []*track
	kept := e.tracks[:0]
	for _, tr := range e.tracks {
		if match(tr) {
			cancelled = append(cancelled, tr)
			continue
		}
		kept = append(kept, tr)
	}
	for i := len(kept); i < len(e.tracks); i++ {
		e.tracks[i] = nil
	}
	e.tracks = kept

	for _, tr := range cancelled {
		if tr.done != nil {
			tr.done(false)
		}
	}
}
