package service

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/assistcart/internal/cartagent/intent"
	"github.com/autopeer-io/assistcart/internal/cartagent/protocol"
	"github.com/autopeer-io/assistcart/internal/cartagent/vehicle"
	"github.com/autopeer-io/assistcart/internal/pkg/metrics"
	"github.com/autopeer-io/assistcart/pkg/log"
)

const actionNone = "none"

// Dispatch handles one command. With skip set nothing is interpreted,
// written or changed.
func (s *Service) Dispatch(ctx context.Context, text string, skip bool) Result {
	start := time.Now()
	res := s.dispatch(ctx, text, skip)

	action := res.Action
	if action == "" {
		action = actionNone
	}
	metrics.CommandsTotal.WithLabelValues(action, string(res.Status)).Inc()
	metrics.DispatchLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())

	log.Info("Command dispatched", "text", text, "skip", skip, "status", res.Status,
		"action", action, "sent", res.SentCommand, "latency", time.Since(start))
	return res
}

// Emergency sends the emergency token directly.
func (s *Service) Emergency(ctx context.Context) Result {
	return s.Dispatch(ctx, protocol.Emergency.String(), false)
}

// SetFuelLevel clamps level, sends F<n> and records it on success.
func (s *Service) SetFuelLevel(ctx context.Context, level int) (FuelResult, error) {
	level = protocol.Clamp(level, protocol.MinFuel, protocol.MaxFuel)
	cmd := protocol.SetFuel(level)

	s.seq.Lock()
	defer s.seq.Unlock()

	if err := s.link.Write(ctx, cmd.String()); err != nil {
		metrics.CommandsTotal.WithLabelValues(string(intent.ActionSetFuel), string(StatusFailed)).Inc()
		log.Error(err, "Failed to set fuel level", "level", level)
		return FuelResult{Message: FailedAck, Level: level}, fmt.Errorf("set fuel level %d: %w", level, err)
	}

	s.state.Mutate(func(st *vehicle.Status) { st.FuelLevel = level })
	metrics.CommandsTotal.WithLabelValues(string(intent.ActionSetFuel), string(StatusOK)).Inc()
	return FuelResult{Message: fmt.Sprintf("연료를 %d%%로 설정했습니다.", level), Level: level}, nil
}

func (s *Service) dispatch(ctx context.Context, text string, skip bool) Result {
	if skip {
		return Result{Status: StatusSkipped, Ack: SkippedAck, Skipped: true}
	}

	s.seq.Lock()
	defer s.seq.Unlock()

	r := s.interp.Interpret(text, s.state.Snapshot())
	if !r.Matched {
		return Result{Status: StatusUnrecognized, Ack: r.Ack}
	}
	return s.execute(ctx, r)
}

// execute requires s.seq. Actuation deltas are applied only after the device
// accepted the command.
func (s *Service) execute(ctx context.Context, r intent.Resolution) Result {
	if r.Command != "" {
		if err := s.link.Write(ctx, r.Command.String()); err != nil {
			log.Error(err, "Device command failed", "action", r.Action, "cmd", r.Command.String())
			return Result{
				Status: StatusFailed,
				Ack:    FailedAck,
				Action: string(r.Action),
				Error:  err.Error(),
			}
		}
	}

	var st vehicle.Status
	if r.Delta != nil {
		st = s.state.Mutate(r.Delta)
	} else {
		st = s.state.Snapshot()
	}

	report := s.report(st)
	return Result{
		Status:      StatusOK,
		Ack:         r.Ack,
		SentCommand: r.Command.String(),
		Action:      string(r.Action),
		State:       &report,
	}
}
