package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOK   bool
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: errors.New("boom")},
		{name: "exit error", err: NewExitError(3), wantCode: 3, wantOK: true},
		{name: "wrapped exit error", err: fmt.Errorf("enable: %w", NewExitError(1)), wantCode: 1, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := IsExitError(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestExitError_Error(t *testing.T) {
	assert.Equal(t, "exit status 2", NewExitError(2).Error())
}

func TestRunWithConfig(t *testing.T) {
	var ran []string
	app := newTestApp(t, true, stubFeature{name: "caas", ran: &ran})

	result := RunWithConfig(t.Context(), app.App, []string{"enable", "caas"})
	assert.Equal(t, 0, result.ExitCode)
	assert.NoError(t, result.Err)

	result = RunWithConfig(t.Context(), app.App, []string{"disable", "ghost", "--yes"})
	assert.Equal(t, 1, result.ExitCode)

	result = RunWithConfig(t.Context(), app.App, []string{"no-such-command"})
	assert.Equal(t, 1, result.ExitCode)
	assert.Error(t, result.Err)
}

func TestRunWithConfig_Interrupted(t *testing.T) {
	app := newTestApp(t, true)
	app.Client.Script("manila", "manila-k8s", "blocked")
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	result := RunWithConfig(ctx, app.App, []string{"wait", "manila", "--timeout", "1h"})

	assert.Equal(t, ExitInterrupted, result.ExitCode)
	assert.ErrorIs(t, result.Err, context.Canceled)
	_, isExit := IsExitError(result.Err)
	assert.False(t, isExit, "Execute prints the interruption")
	assert.NotContains(t, app.Out.String(), "timed out")
}
