package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionDecision_IsTerminal(t *testing.T) {
	assert.False(t, DecisionPending.IsTerminal())
	assert.True(t, DecisionGranted.IsTerminal())
	assert.True(t, DecisionDenied.IsTerminal())
}
