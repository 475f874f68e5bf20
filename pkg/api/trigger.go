package api

import "errors"

type (
	// TriggerType names the pluggable predicate used to test a trigger
	// against an inbound update. An empty type falls back to the
	// default text predicate
	TriggerType string

	// Trigger is one normalized trigger declaration. Matching walks the
	// declared values in order and succeeds on the first positive one
	Trigger struct {
		Type  TriggerType `json:"type,omitempty"`
		Value []string    `json:"value"`
	}
)

const (
	TriggerText     TriggerType = "text"
	TriggerContains TriggerType = "contains"
	TriggerPrefix   TriggerType = "prefix"
	TriggerRegexp   TriggerType = "regexp"
	TriggerEvent    TriggerType = "event"
	TriggerLua      TriggerType = "lua"
	TriggerExpr     TriggerType = "expr"
)

var ErrTriggerValueEmpty = errors.New("trigger value empty")

func (t Trigger) Validate() error {
	if len(t.Value) == 0 {
		return ErrTriggerValueEmpty
	}
	return nil
}
