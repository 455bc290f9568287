package daemon

import (
	"errors"
	"time"
)

// ErrNotRunning is returned by Stop when no live daemon owns the PID file.
var ErrNotRunning = errors.New("tracker daemon is not running")

// Stop asks the recorded daemon to shut down, giving it grace to close its
// open interval before escalating to a kill. The PID file is removed once
// the process is gone.
func (p *PIDFile) Stop(grace time.Duration) (pid int, err error) {
	pid, running := p.IsRunning()
	if !running {
		_ = p.Remove()
		return pid, ErrNotRunning
	}
	if err := p.Signal(sigTerm); err != nil {
		return pid, err
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if _, alive := p.IsRunning(); !alive {
			return pid, p.Remove()
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := p.Signal(sigKill); err != nil {
		return pid, err
	}
	return pid, p.Remove()
}
