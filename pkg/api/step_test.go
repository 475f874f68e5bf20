package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

func TestCheckValidStep(t *testing.T) {
	step := &api.Step{
		Path:   "c.ask",
		Parent: "c",
		Validate: &api.GotoSpec{
			Validator: "nonEmpty",
			Success:   &api.Branch{Goto: "c.done"},
			Failure:   &api.Branch{Help: "c.help"},
		},
		Goto: &api.GotoSpec{Target: "c.done"},
	}
	assert.NoError(t, step.CheckValid())
}

func TestCheckValidMissingPath(t *testing.T) {
	step := &api.Step{}
	assert.ErrorIs(t, step.CheckValid(), api.ErrStepPathEmpty)
}

func TestCheckValidEmptyBranch(t *testing.T) {
	step := &api.Step{
		Path: "c.ask",
		Validate: &api.GotoSpec{
			Success: &api.Branch{},
		},
	}
	assert.ErrorIs(t, step.CheckValid(), api.ErrBranchEmpty)
}

func TestCheckValidBadAction(t *testing.T) {
	step := &api.Step{
		Path:   "c.run",
		Action: &api.ActionSpec{Type: "webhook"},
	}
	assert.ErrorIs(t, step.CheckValid(), api.ErrInvalidAction)
}

func TestCheckValidBadReplaceMode(t *testing.T) {
	step := &api.Step{
		Path:    "c.edit",
		Replace: "inline",
	}
	assert.ErrorIs(t, step.CheckValid(), api.ErrInvalidReplace)
}
