package intent

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/autopeer-io/assistcart/internal/cartagent/protocol"
	"github.com/autopeer-io/assistcart/internal/cartagent/vehicle"
)

// Action names what a rule does. It is the key used in rule files.
type Action string

const (
	ActionEngineOn     Action = "engine_on"
	ActionEngineOff    Action = "engine_off"
	ActionStartDriving Action = "start_driving"
	ActionSpeedDown    Action = "speed_down"
	ActionSpeedUp      Action = "speed_up"
	ActionSetSpeed     Action = "set_speed"
	ActionSetFuel      Action = "set_fuel"
	ActionQueryFuel    Action = "query_fuel"
	ActionDoorOpen     Action = "door_open"
	ActionDoorClose    Action = "door_close"
	ActionEmergency    Action = "emergency"
)

const (
	// SpeedStep is the change applied by speed_up and speed_down.
	SpeedStep = 10
	// CruiseSpeed is the speed set by start_driving.
	CruiseSpeed = 40
)

// Delta is the state change implied by a command. It runs under the state guard.
type Delta func(s *vehicle.Status)

// outcome is what an action resolves to for a given text and status.
type outcome struct {
	command protocol.Command
	delta   Delta
	ack     string
}

// builder computes the outcome of an action. value is the numeric payload of
// a direct token, or -1 when the action came from a phrase.
type builder func(in *Interpreter, text string, cur vehicle.Status, value int) outcome

var builders = map[Action]builder{
	ActionEngineOn: func(_ *Interpreter, _ string, _ vehicle.Status, _ int) outcome {
		return outcome{
			command: protocol.EngineOn,
			delta:   func(s *vehicle.Status) { s.EngineOn = true },
			ack:     "시동을 켰습니다.",
		}
	},
	ActionEngineOff: func(_ *Interpreter, _ string, _ vehicle.Status, _ int) outcome {
		return outcome{
			command: protocol.EngineOff,
			delta:   func(s *vehicle.Status) { s.EngineOn = false },
			ack:     "시동을 껐습니다.",
		}
	},
	ActionStartDriving: func(_ *Interpreter, _ string, _ vehicle.Status, _ int) outcome {
		o := speedTo(CruiseSpeed)
		o.ack = "주행을 시작합니다."
		return o
	},
	ActionSpeedDown: func(_ *Interpreter, _ string, cur vehicle.Status, _ int) outcome {
		o := speedTo(cur.Speed - SpeedStep)
		o.ack = fmt.Sprintf("속도를 줄였습니다. 현재 속도는 %d입니다.", clampSpeed(cur.Speed-SpeedStep))
		return o
	},
	ActionSpeedUp: func(_ *Interpreter, _ string, cur vehicle.Status, _ int) outcome {
		o := speedTo(cur.Speed + SpeedStep)
		o.ack = fmt.Sprintf("속도를 올렸습니다. 현재 속도는 %d입니다.", clampSpeed(cur.Speed+SpeedStep))
		return o
	},
	ActionSetSpeed: func(_ *Interpreter, _ string, _ vehicle.Status, value int) outcome {
		o := speedTo(value)
		o.ack = fmt.Sprintf("속도를 %d로 설정했습니다.", clampSpeed(value))
		return o
	},
	ActionSetFuel: func(in *Interpreter, text string, _ vehicle.Status, value int) outcome {
		if value < 0 {
			value = in.fuelFromText(text)
		}
		level := protocol.Clamp(value, protocol.MinFuel, protocol.MaxFuel)
		return outcome{
			command: protocol.SetFuel(level),
			delta:   func(s *vehicle.Status) { s.FuelLevel = level },
			ack:     fmt.Sprintf("연료를 %d%%로 설정했습니다.", level),
		}
	},
	ActionQueryFuel: func(_ *Interpreter, _ string, cur vehicle.Status, _ int) outcome {
		if cur.VoltageKnown() {
			return outcome{ack: fmt.Sprintf("현재 연료는 %d%%이고 전압은 %.1f 볼트입니다.", cur.FuelLevel, cur.Voltage)}
		}
		return outcome{ack: fmt.Sprintf("현재 연료는 %d%%입니다. 전압 정보를 확인할 수 없습니다.", cur.FuelLevel)}
	},
	ActionDoorOpen: func(_ *Interpreter, _ string, _ vehicle.Status, _ int) outcome {
		return outcome{
			command: protocol.DoorOpen,
			delta:   func(s *vehicle.Status) { s.DoorOpen = true },
			ack:     "앞문을 열었습니다.",
		}
	},
	ActionDoorClose: func(_ *Interpreter, _ string, _ vehicle.Status, _ int) outcome {
		return outcome{
			command: protocol.DoorClose,
			delta:   func(s *vehicle.Status) { s.DoorOpen = false },
			ack:     "문을 닫습니다.",
		}
	},
	ActionEmergency: func(_ *Interpreter, _ string, _ vehicle.Status, _ int) outcome {
		return outcome{
			command: protocol.Emergency,
			delta:   func(s *vehicle.Status) { s.Emergency = true },
			ack:     "비상 상황입니다. 구조 요청을 시작합니다.",
		}
	},
}

// tokenActions maps direct device tokens to the action they perform.
var tokenActions = map[protocol.Kind]Action{
	protocol.KindEngineOn:  ActionEngineOn,
	protocol.KindEngineOff: ActionEngineOff,
	protocol.KindSetSpeed:  ActionSetSpeed,
	protocol.KindSetFuel:   ActionSetFuel,
	protocol.KindDoorOpen:  ActionDoorOpen,
	protocol.KindDoorClose: ActionDoorClose,
	protocol.KindEmergency: ActionEmergency,
}

// Known reports whether a is a valid action name.
func (a Action) Known() bool {
	_, ok := builders[a]
	return ok
}

func speedTo(target int) outcome {
	target = clampSpeed(target)
	return outcome{
		command: protocol.SetSpeed(target),
		delta:   func(s *vehicle.Status) { s.Speed = target },
	}
}

func clampSpeed(v int) int {
	return protocol.Clamp(v, protocol.MinSpeed, protocol.MaxSpeed)
}

var numberPattern = regexp.MustCompile(`\d+`)

// fuelFromText returns the first integer in text, or a random level.
func (in *Interpreter) fuelFromText(text string) int {
	if m := numberPattern.FindString(text); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
		return protocol.MaxFuel
	}
	return in.randomFuel()
}
