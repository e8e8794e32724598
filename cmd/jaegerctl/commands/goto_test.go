package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunGotoRejectsNegativeAnglesUnlessRelative(t *testing.T) {
	gotoRelative = false
	t.Cleanup(func() { gotoRelative = false })

	err := runGoto(gotoCmd, []string{"1", "-10", "170"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")
}

func TestRunGotoAllowsNegativeAnglesWhenRelative(t *testing.T) {
	gotoRelative = true
	t.Cleanup(func() { gotoRelative = false })

	// Parsing/validation must pass before dispatch is attempted; dispatch
	// itself fails for lack of a running session, which is fine here.
	err := runGoto(gotoCmd, []string{"1", "-10", "170"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "non-negative")
}

func TestRunGotoRejectsMalformedAngle(t *testing.T) {
	gotoRelative = false
	t.Cleanup(func() { gotoRelative = false })

	err := runGoto(gotoCmd, []string{"1", "not-a-number", "170"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid alpha")
}
