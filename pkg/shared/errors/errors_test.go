package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolNotFoundError(t *testing.T) {
	err := fmt.Errorf("scan: %w", NewToolNotFoundError("semgrep"))

	assert.True(t, errors.Is(err, ErrToolNotFound))
	assert.Contains(t, err.Error(), "semgrep CLI not found")
}

func TestExecError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		expect string
	}{
		{name: "with stderr", stderr: "  boom\n", expect: "npm audit exited with code 2: boom"},
		{name: "without stderr", expect: "npm audit exited with code 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewExecError([]string{"npm", "audit"}, 2, tt.stderr)
			assert.Equal(t, tt.expect, err.Error())
		})
	}
}
