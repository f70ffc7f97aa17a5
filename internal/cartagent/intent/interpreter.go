// Package intent resolves free text and device tokens into one device
// command plus the state change it implies.
package intent

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/autopeer-io/assistcart/internal/cartagent/protocol"
	"github.com/autopeer-io/assistcart/internal/cartagent/vehicle"
)

// UnrecognizedAck is returned when no rule matches.
const UnrecognizedAck = "알 수 없는 명령입니다."

// Resolution is the result of interpreting one input.
type Resolution struct {
	Matched bool

	// Rule is the matching rule, nil for direct device tokens.
	Rule   *Rule
	Action Action

	// Command is empty for advisory resolutions.
	Command protocol.Command

	// Delta is nil for advisory resolutions.
	Delta Delta
	Ack   string

	// Advisory resolutions only read state and never touch the device.
	Advisory bool
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithRandom replaces the source of random fuel levels. fn returns a value in [0, n).
func WithRandom(fn func(n int) int) Option {
	return func(in *Interpreter) {
		in.intN = fn
	}
}

// Interpreter holds a validated, read-only rule table.
type Interpreter struct {
	rules []Rule
	intN  func(n int) int
}

// New validates rules and creates an Interpreter.
func New(rules []Rule, opts ...Option) (*Interpreter, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}

	in := &Interpreter{
		rules: cloneRules(rules),
		intN:  rand.IntN,
	}
	for _, o := range opts {
		o(in)
	}
	return in, nil
}

// NewDefault creates an Interpreter with DefaultRules.
func NewDefault(opts ...Option) *Interpreter {
	in, err := New(DefaultRules(), opts...)
	if err != nil {
		panic(err)
	}
	return in
}

// Rules returns a copy of the rule table.
func (in *Interpreter) Rules() []Rule {
	return cloneRules(in.rules)
}

// Interpret resolves text against the current status. Exact device tokens
// win over phrases; the voltage request token is not a command.
func (in *Interpreter) Interpret(text string, cur vehicle.Status) Resolution {
	trimmed := strings.TrimSpace(text)

	if tok, ok := protocol.Parse(trimmed); ok {
		if action, ok := tokenActions[tok.Kind]; ok {
			return in.resolve(action, nil, trimmed, cur, tok.Value)
		}
	}

	normalized := normalize(trimmed)
	for i := range in.rules {
		r := &in.rules[i]
		for _, trigger := range r.Triggers {
			if strings.Contains(normalized, normalize(trigger)) {
				return in.resolve(r.Action, r, normalized, cur, -1)
			}
		}
	}

	return Resolution{Ack: UnrecognizedAck}
}

func (in *Interpreter) resolve(action Action, rule *Rule, text string, cur vehicle.Status, value int) Resolution {
	o := builders[action](in, text, cur, value)
	return Resolution{
		Matched:  true,
		Rule:     rule,
		Action:   action,
		Command:  o.command,
		Delta:    o.delta,
		Ack:      o.ack,
		Advisory: o.command == "",
	}
}

func (in *Interpreter) randomFuel() int {
	return in.intN(protocol.MaxFuel + 1)
}

func cloneRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{Action: r.Action, Triggers: slices.Clone(r.Triggers)}
	}
	return out
}
