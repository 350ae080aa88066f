package client

import (
	"fmt"
	"strconv"
	"strings"
)

// Bit positions of the get_throttled word
// https://www.raspberrypi.com/documentation/computers/os.html#get_throttled
const (
	bitUndervoltageDetected           = 0
	bitArmFrequencyCapped             = 1
	bitCurrentlyThrottled             = 2
	bitSoftTemperatureLimitActive     = 3
	bitUndervoltageHasOccurred        = 16
	bitArmFrequencyCappingHasOccurred = 17
	bitThrottlingHasOccurred          = 18
	bitSoftTemperatureLimitOccurred   = 19
)

// ThrottledState is the decoded output of `vcgencmd get_throttled`
type ThrottledState struct {
	// Instantaneous flags (bits 0-3)
	UndervoltageDetected       bool
	ArmFrequencyCapped         bool
	CurrentlyThrottled         bool
	SoftTemperatureLimitActive bool

	// Historical flags (bits 16-19), sticky until reboot
	UndervoltageHasOccurred         bool
	ArmFrequencyCappingHasOccurred  bool
	ThrottlingHasOccurred           bool
	SoftTemperatureLimitHasOccurred bool
}

// ParseError reports command output that could not be decoded
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Input)
}

// Parser decodes raw command output into a ThrottledState
type Parser interface {
	Parse(input string) (ThrottledState, error)
}

// ThrottledParser parses lines of the form `throttled=0x50005`
type ThrottledParser struct{}

// Parse decodes one `<label>=0x<hex>` line. The label is ignored and bits other
// than the eight documented flags are discarded.
func (ThrottledParser) Parse(input string) (ThrottledState, error) {
	_, value, ok := strings.Cut(strings.TrimSpace(input), "=")
	if !ok {
		return ThrottledState{}, &ParseError{Input: input}
	}

	hex, ok := strings.CutPrefix(value, "0x")
	if !ok {
		return ThrottledState{}, &ParseError{Input: input}
	}

	word, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return ThrottledState{}, &ParseError{Input: input}
	}

	return DecodeThrottled(uint32(word)), nil
}

// DecodeThrottled maps a raw get_throttled word onto its flags
func DecodeThrottled(word uint32) ThrottledState {
	bit := func(i uint) bool { return (word>>i)&1 != 0 }

	return ThrottledState{
		UndervoltageDetected:            bit(bitUndervoltageDetected),
		ArmFrequencyCapped:              bit(bitArmFrequencyCapped),
		CurrentlyThrottled:              bit(bitCurrentlyThrottled),
		SoftTemperatureLimitActive:      bit(bitSoftTemperatureLimitActive),
		UndervoltageHasOccurred:         bit(bitUndervoltageHasOccurred),
		ArmFrequencyCappingHasOccurred:  bit(bitArmFrequencyCappingHasOccurred),
		ThrottlingHasOccurred:           bit(bitThrottlingHasOccurred),
		SoftTemperatureLimitHasOccurred: bit(bitSoftTemperatureLimitOccurred),
	}
}
