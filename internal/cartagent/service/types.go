package service

import "time"

// DispatchStatus is the outcome of a dispatch.
type DispatchStatus string

const (
	StatusOK           DispatchStatus = "ok"
	StatusSkipped      DispatchStatus = "skipped"
	StatusUnrecognized DispatchStatus = "unrecognized"
	StatusFailed       DispatchStatus = "failed"
)

// Acknowledgements that do not come from a rule.
const (
	SkippedAck = "안전을 위해 명령을 실행하지 않았습니다."
	FailedAck  = "장치에 명령을 전달하지 못했습니다."
)

// Result is returned for every dispatched command.
type Result struct {
	Status DispatchStatus `json:"status"`
	Ack    string         `json:"ack"`

	// SentCommand is the token written to the device, empty when none was sent.
	SentCommand string `json:"sentCommand,omitempty"`
	Skipped     bool   `json:"skipped"`
	Action      string `json:"action,omitempty"`
	Error       string `json:"error,omitempty"`

	// State is the status after the command was applied. Set for ok results.
	State *StatusReport `json:"state,omitempty"`
}

// FuelResult is returned by SetFuelLevel.
type FuelResult struct {
	Message string `json:"message"`
	Level   int    `json:"level"`
}

// StatusReport is the client view of the vehicle status.
type StatusReport struct {
	EngineOn  bool    `json:"engineOn"`
	Speed     int     `json:"speed"`
	FuelLevel int     `json:"fuelLevel"`
	Voltage   float64 `json:"voltage"`

	DoorOpen         bool       `json:"doorOpen"`
	Emergency        bool       `json:"emergency"`
	VoltageStale     bool       `json:"voltageStale"`
	VoltageUpdatedAt *time.Time `json:"voltageUpdatedAt,omitempty"`
	Link             string     `json:"link"`
	// LinkError is why the link last failed. Empty unless Link is failed.
	LinkError string `json:"linkError,omitempty"`
}
