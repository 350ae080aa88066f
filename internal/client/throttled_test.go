package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledParser_Parse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ThrottledState
	}{
		{
			name:  "undervoltage and throttling",
			input: "throttled=0x50005",
			want: ThrottledState{
				UndervoltageDetected:    true,
				CurrentlyThrottled:      true,
				UndervoltageHasOccurred: true,
				ThrottlingHasOccurred:   true,
			},
		},
		{
			name:  "soft temperature limit occurred",
			input: "throttled=0xd0005",
			want: ThrottledState{
				UndervoltageDetected:            true,
				CurrentlyThrottled:              true,
				UndervoltageHasOccurred:         true,
				ThrottlingHasOccurred:           true,
				SoftTemperatureLimitHasOccurred: true,
			},
		},
		{
			name:  "trailing newline",
			input: "throttled=0x0\n",
			want:  ThrottledState{},
		},
		{
			name:  "all documented bits",
			input: "throttled=0xF000F",
			want: ThrottledState{
				UndervoltageDetected:            true,
				ArmFrequencyCapped:              true,
				CurrentlyThrottled:              true,
				SoftTemperatureLimitActive:      true,
				UndervoltageHasOccurred:         true,
				ArmFrequencyCappingHasOccurred:  true,
				ThrottlingHasOccurred:           true,
				SoftTemperatureLimitHasOccurred: true,
			},
		},
		{
			name:  "undocumented bits ignored",
			input: "throttled=0xfff0fff0",
			want:  ThrottledState{},
		},
		{
			name:  "label is informational",
			input: "whatever=0x2",
			want:  ThrottledState{ArmFrequencyCapped: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ThrottledParser{}.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestThrottledParser_ParseInvalid(t *testing.T) {
	inputs := []string{
		"garbage",
		"throttled=0xzz",
		"",
		"throttled=50005",
		"throttled=0x",
		"throttled=0x1ffffffff",
		"throttled=0x-1",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ThrottledParser{}.Parse(input)
			require.Error(t, err)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, input, parseErr.Input)
			assert.Equal(t, "invalid input: "+input, err.Error())
		})
	}
}
