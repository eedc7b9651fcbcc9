package invite_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	invite "github.com/goliatone/go-auth-invite"
)

func TestIsWithinThresholdPeriod(t *testing.T) {
	tests := []struct {
		name          string
		inputTime     time.Time
		thresholdExpr string
		expected      bool
		expectErr     bool
	}{
		{
			name:          "Within 1 hour threshold",
			inputTime:     time.Now().Add(-30 * time.Minute),
			thresholdExpr: "1h",
			expected:      true,
		},
		{
			name:          "Outside 1 hour threshold",
			inputTime:     time.Now().Add(-90 * time.Minute),
			thresholdExpr: "1h",
			expected:      false,
		},
		{
			name:          "Complex threshold (2h30m)",
			inputTime:     time.Now().Add(-2 * time.Hour),
			thresholdExpr: "2h30m",
			expected:      true,
		},
		{
			name:          "Invalid threshold",
			inputTime:     time.Now(),
			thresholdExpr: "invalid",
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := invite.IsWithinThresholdPeriod(tt.inputTime, tt.thresholdExpr)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)

			outside, err := invite.IsOutsideThresholdPeriod(tt.inputTime, tt.thresholdExpr)
			assert.NoError(t, err)
			assert.Equal(t, !tt.expected, outside)
		})
	}
}

func TestCredentialExpired(t *testing.T) {
	issued := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		now     time.Time
		window  time.Duration
		expired bool
	}{
		{"just issued", issued, invite.DefaultValidity, false},
		{"23h59m later", issued.Add(23*time.Hour + 59*time.Minute), invite.DefaultValidity, false},
		{"exactly at the boundary", issued.Add(24 * time.Hour), invite.DefaultValidity, false},
		{"one second past", issued.Add(24*time.Hour + time.Second), invite.DefaultValidity, true},
		{"25h later", issued.Add(25 * time.Hour), invite.DefaultValidity, true},
		{"zero window uses default", issued.Add(23 * time.Hour), 0, false},
		{"custom window", issued.Add(2 * time.Hour), time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, invite.CredentialExpired(issued, tt.window, tt.now))
		})
	}
}
