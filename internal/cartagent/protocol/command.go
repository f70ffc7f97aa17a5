// Package protocol defines the newline-terminated ASCII tokens understood by
// the cart firmware.
package protocol

import (
	"strconv"
)

// Command is one device token, written to the wire followed by '\n'.
type Command string

const (
	EngineOn       Command = "0"
	EngineOff      Command = "1"
	DoorOpen       Command = "B"
	DoorClose      Command = "b"
	Emergency      Command = "E"
	RequestVoltage Command = "C"
)

// Speed and fuel ranges accepted by the firmware.
const (
	MinSpeed = 0
	MaxSpeed = 120
	MinFuel  = 0
	MaxFuel  = 100
)

// Kind classifies a parsed token.
type Kind int

const (
	KindUnknown Kind = iota
	KindEngineOn
	KindEngineOff
	KindSetSpeed
	KindSetFuel
	KindDoorOpen
	KindDoorClose
	KindEmergency
	KindRequestVoltage
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindEngineOn:       "engine_on",
	KindEngineOff:      "engine_off",
	KindSetSpeed:       "set_speed",
	KindSetFuel:        "set_fuel",
	KindDoorOpen:       "door_open",
	KindDoorClose:      "door_close",
	KindEmergency:      "emergency",
	KindRequestVoltage: "request_voltage",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Token is a parsed Command. Value is only meaningful for KindSetSpeed and KindSetFuel.
type Token struct {
	Kind  Kind
	Value int
}

// SetSpeed builds the S<n> token, clamping n to the speed range.
func SetSpeed(n int) Command {
	return Command("S" + strconv.Itoa(Clamp(n, MinSpeed, MaxSpeed)))
}

// SetFuel builds the F<n> token, clamping n to the fuel range.
func SetFuel(n int) Command {
	return Command("F" + strconv.Itoa(Clamp(n, MinFuel, MaxFuel)))
}

func (c Command) String() string {
	return string(c)
}

// Parse recognizes s as a device token. Numeric payloads are returned as
// written; callers clamp them.
func Parse(s string) (Token, bool) {
	switch Command(s) {
	case EngineOn:
		return Token{Kind: KindEngineOn}, true
	case EngineOff:
		return Token{Kind: KindEngineOff}, true
	case DoorOpen:
		return Token{Kind: KindDoorOpen}, true
	case DoorClose:
		return Token{Kind: KindDoorClose}, true
	case Emergency:
		return Token{Kind: KindEmergency}, true
	case RequestVoltage:
		return Token{Kind: KindRequestVoltage}, true
	}

	if len(s) < 2 {
		return Token{}, false
	}
	var kind Kind
	switch s[0] {
	case 'S':
		kind = KindSetSpeed
	case 'F':
		kind = KindSetFuel
	default:
		return Token{}, false
	}
	n, ok := parseDigits(s[1:])
	if !ok {
		return Token{}, false
	}
	return Token{Kind: kind, Value: n}, true
}

// parseDigits accepts only ASCII digits, so "+5" and "-5" are rejected.
func parseDigits(s string) (int, bool) {
	if len(s) > 6 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
