package intent

import (
	"errors"
	"fmt"
	"strings"
)

// Rule maps trigger phrases to an action. A rule matches when the input
// contains any of its triggers.
type Rule struct {
	Action   Action   `json:"action" yaml:"action"`
	Triggers []string `json:"triggers" yaml:"triggers"`
}

// DefaultRules is the built-in Korean table. Order is priority: a rule whose
// trigger contains an earlier trigger would never match.
func DefaultRules() []Rule {
	return []Rule{
		{Action: ActionEngineOn, Triggers: []string{"시동 켜"}},
		{Action: ActionEngineOff, Triggers: []string{"시동 꺼"}},
		{Action: ActionStartDriving, Triggers: []string{"주행 시작"}},
		{Action: ActionSpeedDown, Triggers: []string{"천천히", "느리게"}},
		{Action: ActionSpeedUp, Triggers: []string{"빨리", "빠르게"}},
		{Action: ActionSetFuel, Triggers: []string{"연료 설정", "연료 채워", "충전"}},
		{Action: ActionQueryFuel, Triggers: []string{"연료", "배터리"}},
		{Action: ActionDoorOpen, Triggers: []string{"탈 거야", "탑승", "문 열어"}},
		{Action: ActionDoorClose, Triggers: []string{"탔어", "문 닫아"}},
		{Action: ActionEmergency, Triggers: []string{"도와줘", "비상", "살려줘"}},
	}
}

// ValidateRules rejects unknown actions, rules without triggers and triggers
// shadowed by an earlier rule.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return errors.New("rule table is empty")
	}

	var errs []error
	for i, r := range rules {
		if !r.Action.Known() {
			errs = append(errs, fmt.Errorf("rule %d: unknown action %q", i, r.Action))
		}
		if len(r.Triggers) == 0 {
			errs = append(errs, fmt.Errorf("rule %d (%s): no triggers", i, r.Action))
		}
		for _, t := range r.Triggers {
			if strings.TrimSpace(t) == "" {
				errs = append(errs, fmt.Errorf("rule %d (%s): empty trigger", i, r.Action))
				continue
			}
			for j := 0; j < i; j++ {
				for _, earlier := range rules[j].Triggers {
					if earlier != "" && strings.Contains(normalize(t), normalize(earlier)) {
						errs = append(errs, fmt.Errorf("rule %d (%s): trigger %q is shadowed by %q of rule %d (%s)",
							i, r.Action, t, earlier, j, rules[j].Action))
					}
				}
			}
		}
	}
	return errors.Join(errs...)
}

// normalize collapses runs of whitespace so "시동  켜" matches "시동 켜".
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
