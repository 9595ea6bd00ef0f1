package capture

import "time"

// Pacer picks the capture rate: ActiveFPS while there is motion or a hand
// in view, IdleFPS once the scene has been still for IdleTimeout.
type Pacer struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration

	lastActive time.Time
	active     bool
}

// NewPacer creates a Pacer that starts idle.
func NewPacer(idleFPS, activeFPS int, idleTimeout time.Duration) *Pacer {
	return &Pacer{IdleFPS: idleFPS, ActiveFPS: activeFPS, IdleTimeout: idleTimeout}
}

// Observe records activity at now and returns the FPS to use and whether
// it changed.
func (p *Pacer) Observe(now time.Time, activity bool) (int, bool) {
	was := p.active
	if activity {
		p.lastActive = now
		p.active = true
	} else if p.active && now.Sub(p.lastActive) > p.IdleTimeout {
		p.active = false
	}
	return p.FPS(), was != p.active
}

// FPS returns the current rate.
func (p *Pacer) FPS() int {
	if p.active {
		return p.ActiveFPS
	}
	return p.IdleFPS
}

// Interval converts the current rate to a ticker period.
func (p *Pacer) Interval() time.Duration {
	fps := p.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}
