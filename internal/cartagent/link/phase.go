package link

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/assistcart/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/assistcart/internal/pkg/util/fsm"
	"github.com/autopeer-io/assistcart/pkg/log"
)

// Phase is the connection phase of the link.
type Phase string

const (
	PhaseClosed  Phase = "closed"
	PhaseWarming Phase = "warming"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

const (
	// EventOpen starts a connection attempt.
	EventOpen = "event_open"
	// EventReady ends the warm-up window.
	EventReady = "event_ready"
	// EventFail records an open, write or read failure. Args[0] is the error.
	EventFail = "event_fail"
	// EventClose tears the connection down.
	EventClose = "event_close"
)

type phaseMachine struct {
	*fsm.FSM

	// lastErr is written by the enter_failed callback, which runs while the
	// caller holds Manager.connMu.
	lastErr error
}

func newPhaseMachine() *phaseMachine {
	p := &phaseMachine{}

	events := fsm.Events{
		{Name: EventOpen, Src: []string{string(PhaseClosed), string(PhaseFailed)}, Dst: string(PhaseWarming)},
		{Name: EventReady, Src: []string{string(PhaseWarming)}, Dst: string(PhaseReady)},
		{Name: EventFail, Src: []string{string(PhaseWarming), string(PhaseReady)}, Dst: string(PhaseFailed)},
		{Name: EventClose, Src: []string{string(PhaseWarming), string(PhaseReady), string(PhaseFailed)}, Dst: string(PhaseClosed)},
	}

	callbacks := fsm.Callbacks{
		"enter_state":                  fsmutil.WrapEvent(p.actionEnterState),
		"enter_" + string(PhaseFailed): fsmutil.WrapEvent(p.actionEnterFailed),
		"enter_" + string(PhaseReady):  fsmutil.WrapEvent(p.actionEnterReady),
	}

	p.FSM = fsm.NewFSM(string(PhaseClosed), events, callbacks)
	return p
}

func (p *phaseMachine) phase() Phase {
	return Phase(p.Current())
}

// fire runs an event and logs unexpected transition errors. The transition
// always completes, even when ctx is already canceled.
func (p *phaseMachine) fire(ctx context.Context, event string, args ...any) {
	if err := p.Event(context.WithoutCancel(ctx), event, args...); fsmutil.IsRealError(err) {
		log.Error(err, "Link phase transition failed", "event", event, "phase", p.Current())
	}
}

func (p *phaseMachine) actionEnterState(_ context.Context, e *fsm.Event) error {
	if e.Dst != string(PhaseReady) {
		metrics.LinkReady.Set(0)
	}
	log.Debug("Link phase changed", "from", e.Src, "to", e.Dst, "event", e.Event)
	return nil
}

func (p *phaseMachine) actionEnterReady(_ context.Context, _ *fsm.Event) error {
	p.lastErr = nil
	metrics.LinkReady.Set(1)
	return nil
}

func (p *phaseMachine) actionEnterFailed(_ context.Context, e *fsm.Event) error {
	p.lastErr = errors.New("unknown error")
	if len(e.Args) > 0 {
		if err, ok := e.Args[0].(error); ok && err != nil {
			p.lastErr = err
		}
	}
	return nil
}
