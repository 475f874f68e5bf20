package api

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// Path is a dot-delimited address of a compiled step inside the
	// script tree
	Path string

	// Params carries free-form parameters for validators, actions, and
	// capability methods
	Params map[string]any

	// Step is one compiled dialogue unit. The Path, Parent, Children,
	// and IsParent fields are assigned by the script compiler and never
	// change afterwards
	Step struct {
		Path     Path `json:"path,omitempty"`
		Parent   Path `json:"parent,omitempty"`
		Children Path `json:"children,omitempty"`
		IsParent bool `json:"is_parent,omitempty"`
		Command  bool `json:"command,omitempty"`

		// Scope is the legacy spelling of Path kept for sessions
		// persisted by older deployments
		Scope Path `json:"scope,omitempty"`

		Trigger  []Trigger    `json:"trigger,omitempty"`
		Message  *MessageSpec `json:"message,omitempty"`
		Keyboard *KeyboardRef `json:"keyboard,omitempty"`
		Validate *GotoSpec    `json:"validate,omitempty"`
		Goto     *GotoSpec    `json:"goto,omitempty"`
		Store    *StoreSpec   `json:"store,omitempty"`
		StorePre *StoreSpec   `json:"store_pre,omitempty"`
		Action   *ActionSpec  `json:"action,omitempty"`
		Form     *FormSpec    `json:"form,omitempty"`
		Replace  ReplaceMode  `json:"replace,omitempty"`

		Attachments map[string][]string `json:"attachments,omitempty"`
	}

	// MessageSpec declares outbound message content for a step
	MessageSpec struct {
		Text   string `json:"text"`
		Markup string `json:"markup,omitempty"`
	}

	// GotoSpec declares how the next step is resolved, optionally
	// conditioned on a named validator
	GotoSpec struct {
		Validator string          `json:"validator,omitempty"`
		Params    Params          `json:"params,omitempty"`
		Success   *Branch         `json:"success,omitempty"`
		Failure   *Branch         `json:"failure,omitempty"`
		Switch    map[string]Path `json:"switch,omitempty"`

		// Target is set when the validate block was declared as a bare path
		Target Path `json:"target,omitempty"`
	}

	// Branch is one outcome of a validated transition
	Branch struct {
		Goto    Path     `json:"goto,omitempty"`
		Methods []string `json:"methods,omitempty"`
		Help    Path     `json:"help,omitempty"`
	}

	// StoreSpec declares how the inbound answer is recorded into a
	// session answers thread. HasValue distinguishes an explicit nil
	// Value from no declared value at all
	StoreSpec struct {
		Thread   string `json:"thread,omitempty"`
		Key      string `json:"key,omitempty"`
		Clean    bool   `json:"clean,omitempty"`
		Value    any    `json:"value,omitempty"`
		HasValue bool   `json:"has_value,omitempty"`
	}

	// ActionSpec declares a side effect executed when a step renders
	ActionSpec struct {
		Type   ActionType `json:"type"`
		Name   string     `json:"name,omitempty"`
		Params Params     `json:"params,omitempty"`
	}

	// FormSpec flags a step's role inside a multi-message form
	FormSpec struct {
		Open     bool `json:"open,omitempty"`
		Question bool `json:"question,omitempty"`
		Clear    bool `json:"clear,omitempty"`
	}

	ActionType  string
	ReplaceMode string
)

const (
	ActionMethod ActionType = "method"
	ActionSend   ActionType = "send"

	ReplaceNone  ReplaceMode = ""
	ReplaceEdit  ReplaceMode = "edit"
	ReplaceForce ReplaceMode = "forceNone"
)

// SelfSender marks a synthetic sender for messages the engine itself
// produced. Updates from it are never processed
const SelfSender = "__self__"

var (
	ErrStepPathEmpty    = errors.New("step path empty")
	ErrInvalidAction    = errors.New("invalid action type")
	ErrActionNameEmpty  = errors.New("action name empty")
	ErrBranchEmpty      = errors.New("branch has no goto, methods, or help")
	ErrInvalidReplace   = errors.New("invalid replace mode")
	ErrSwitchTargetPath = errors.New("switch target path empty")
)

var validActions = map[ActionType]struct{}{
	ActionMethod: {},
	ActionSend:   {},
}

// CheckValid checks compile-time consistency of a step. The compiler calls
// it after path assignment, so a missing path indicates a compiler bug
// rather than a script error
func (s *Step) CheckValid() error {
	if s.Path == "" {
		return ErrStepPathEmpty
	}
	for _, t := range s.Trigger {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.Path, err)
		}
	}
	if s.Action != nil {
		if err := s.Action.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.Path, err)
		}
	}
	for _, g := range []*GotoSpec{s.Validate, s.Goto} {
		if g == nil {
			continue
		}
		if err := g.ValidateSpec(); err != nil {
			return fmt.Errorf("%s: %w", s.Path, err)
		}
	}
	if s.Replace != ReplaceNone &&
		s.Replace != ReplaceEdit && s.Replace != ReplaceForce {
		return fmt.Errorf("%w: %s", ErrInvalidReplace, s.Replace)
	}
	return nil
}

func (a *ActionSpec) Validate() error {
	if _, ok := validActions[a.Type]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidAction, a.Type)
	}
	if a.Type == ActionMethod && a.Name == "" {
		return ErrActionNameEmpty
	}
	return nil
}

// ValidateSpec checks that a goto/validate spec names at least one way to
// produce an outcome
func (g *GotoSpec) ValidateSpec() error {
	for _, b := range []*Branch{g.Success, g.Failure} {
		if b == nil {
			continue
		}
		if b.Goto == "" && len(b.Methods) == 0 && b.Help == "" {
			return ErrBranchEmpty
		}
	}
	for val, target := range g.Switch {
		if target == "" {
			return fmt.Errorf("%w: case %q", ErrSwitchTargetPath, val)
		}
	}
	return nil
}

// IsEmpty reports whether a step carries nothing to execute
func (s *Step) IsEmpty() bool {
	return s == nil || (s.Path == "" && s.Message == nil &&
		s.Action == nil && s.Goto == nil)
}

// FormOpen reports whether rendering this step opens a form
func (s *Step) FormOpen() bool {
	return s != nil && s.Form != nil && s.Form.Open
}

// FormQuestion reports whether this step is a tracked form question
func (s *Step) FormQuestion() bool {
	return s != nil && s.Form != nil && s.Form.Question
}

// FormClear reports whether rendering this step discards the active form
func (s *Step) FormClear() bool {
	return s != nil && s.Form != nil && s.Form.Clear
}

// WantsReplace reports whether this step's render should edit a previously
// sent message in place
func (s *Step) WantsReplace() bool {
	return s != nil && s.Replace == ReplaceEdit
}

// AnswerThread returns the answers thread a store directive writes to when
// the directive itself names none: the step's parent container
func (s *Step) AnswerThread() string {
	if s.Parent != "" {
		return string(s.Parent)
	}
	return string(s.Path)
}

// Parts splits a path into its dot-delimited elements
func (p Path) Parts() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// IsChildren reports whether the path addresses a children container
func (p Path) IsChildren() bool {
	return p == "c" || strings.HasSuffix(string(p), ".c")
}

// Up returns the path with its last element removed
func (p Path) Up() Path {
	idx := strings.LastIndexByte(string(p), '.')
	if idx < 0 {
		return ""
	}
	return p[:idx]
}
