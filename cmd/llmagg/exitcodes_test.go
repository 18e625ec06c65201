package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/davetashner/llmagg/internal/batch"
	"github.com/davetashner/llmagg/internal/catalog"
	"github.com/davetashner/llmagg/internal/llm"
	"github.com/davetashner/llmagg/internal/scalar"
)

func TestRunFailure_ExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", batch.ErrFixedOverheadExceeded), ExitBudget},
		{fmt.Errorf("group \"a\": %w", batch.ErrOutputBudgetExhausted), ExitBudget},
		{fmt.Errorf("%w: \"gpt\"", catalog.ErrModelNotFound), ExitInvalidArgs},
		{fmt.Errorf("%w: bad id", batch.ErrProtocolViolation), ExitModelError},
		{fmt.Errorf("%w: row 3", scalar.ErrTextTooLong), ExitBudget},
		{fmt.Errorf("%w: \"x\"", catalog.ErrPromptNotFound), ExitInvalidArgs},
		{fmt.Errorf("%w (*llm.AnthropicProvider)", llm.ErrEmbeddingsUnsupported), ExitInvalidArgs},
		{errors.New("connection reset"), ExitModelError},
	}
	for _, tt := range tests {
		ece := runFailure(tt.err)
		assert.Equal(t, tt.want, ece.ExitCode(), tt.err.Error())
		assert.ErrorIs(t, ece, tt.err)
		assert.Contains(t, ece.Error(), tt.err.Error())
	}
}

func TestExitError_DefaultMessage(t *testing.T) {
	assert.Equal(t, "llmagg: token budget exceeded", exitError(ExitBudget, "").Error())
	assert.Equal(t, "llmagg: model call failed", exitError(ExitModelError, "").Error())
	assert.Equal(t, "custom 7", exitError(ExitInvalidArgs, "custom %d", 7).Error())
}
