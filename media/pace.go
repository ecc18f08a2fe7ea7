package media

import (
	"math"
	"time"
)

// Pacer spaces frames of a stream at its nominal rate so playback speed
// does not follow the display refresh rate.
type Pacer struct {
	interval time.Duration
	due      time.Time
	now      func() time.Time
}

// NewPacer paces at fps frames per second. A zero, negative or non-finite
// rate disables pacing: every frame is ready immediately.
func NewPacer(fps float64) *Pacer {
	p := &Pacer{now: time.Now}
	if fps > 0 && !math.IsInf(fps, 0) && !math.IsNaN(fps) {
		p.interval = time.Duration(float64(time.Second) / fps)
	}
	return p
}

// Interval is the time between frames, 0 when pacing is off.
func (p *Pacer) Interval() time.Duration { return p.interval }

// Ready reports whether the next frame is due.
func (p *Pacer) Ready() bool {
	if p.interval == 0 || p.due.IsZero() {
		return true
	}
	return !p.now().Before(p.due)
}

// Advance schedules the frame after the one just taken. A stream that fell
// more than a frame behind restarts its schedule from now instead of
// rushing to catch up.
func (p *Pacer) Advance() {
	if p.interval == 0 {
		return
	}
	now := p.now()
	if p.due.IsZero() || now.Sub(p.due) > p.interval {
		p.due = now
	}
	p.due = p.due.Add(p.interval)
}
