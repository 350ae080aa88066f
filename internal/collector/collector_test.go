package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/R167/raspi_exporter/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeRunner struct {
	output string
	err    error
	calls  int
}

func (f *fakeRunner) Run(context.Context) (string, error) {
	f.calls++
	return f.output, f.err
}

type fakeParser struct {
	state client.ThrottledState
	err   error
	input string
	calls int
}

func (f *fakeParser) Parse(input string) (client.ThrottledState, error) {
	f.calls++
	f.input = input
	return f.state, f.err
}

type fakeRegisterer struct {
	states []client.ThrottledState
	err    error
}

func (f *fakeRegisterer) Register(state client.ThrottledState) error {
	f.states = append(f.states, state)
	return f.err
}

func TestThrottledCollector_Collect(t *testing.T) {
	want := client.ThrottledState{
		UndervoltageDetected:            true,
		CurrentlyThrottled:              true,
		UndervoltageHasOccurred:         true,
		ThrottlingHasOccurred:           true,
		SoftTemperatureLimitHasOccurred: true,
	}
	runner := &fakeRunner{output: "throttled=0xd0005"}
	parser := &fakeParser{state: want}
	registerer := &fakeRegisterer{}

	c := NewThrottledCollector(runner, parser, registerer, testLogger())
	require.NoError(t, c.Collect(context.Background()))

	assert.Equal(t, "throttled", c.Name())
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, "throttled=0xd0005", parser.input)
	assert.Equal(t, []client.ThrottledState{want}, registerer.states)
}

func TestThrottledCollector_RunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: &client.ExecutionError{Kind: client.NonZeroExit, Command: "vcgencmd", ExitCode: 1}}
	parser := &fakeParser{}
	registerer := &fakeRegisterer{}

	c := NewThrottledCollector(runner, parser, registerer, testLogger())
	err := c.Collect(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNonZeroExit)
	assert.Contains(t, err.Error(), "collector throttled")
	assert.Zero(t, parser.calls)
	assert.Empty(t, registerer.states)
}

func TestThrottledCollector_ParseFailureNeverRegisters(t *testing.T) {
	runner := &fakeRunner{output: "garbage"}
	registerer := &fakeRegisterer{}

	c := NewThrottledCollector(runner, client.ThrottledParser{}, registerer, testLogger())
	err := c.Collect(context.Background())

	require.Error(t, err)
	var parseErr *client.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "garbage", parseErr.Input)
	assert.Empty(t, registerer.states)
}

func TestThrottledCollector_RegisterFailure(t *testing.T) {
	want := errors.New("boom")
	registerer := &fakeRegisterer{err: want}

	c := NewThrottledCollector(&fakeRunner{output: "throttled=0x0"}, client.ThrottledParser{}, registerer, testLogger())
	err := c.Collect(context.Background())

	assert.ErrorIs(t, err, want)
}

func TestThrottledCollector_FailedPollKeepsPreviousValues(t *testing.T) {
	r := newTestRegisterer(t)
	runner := &fakeRunner{output: "throttled=0x50005"}
	c := NewThrottledCollector(runner, client.ThrottledParser{}, r, testLogger())

	require.NoError(t, c.Collect(context.Background()))

	runner.output = "throttled=0xzz"
	require.Error(t, c.Collect(context.Background()))

	assert.Equal(t, 1.0, r.activeValue(Undervoltage))
	assert.Equal(t, 1.0, r.activeValue(Throttled))
	assert.Equal(t, 1.0, r.occurredValue(Undervoltage))
	assert.Equal(t, 1.0, r.occurredValue(Throttled))
}
