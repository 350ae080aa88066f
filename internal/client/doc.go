// Package client runs the firmware status command on a Raspberry Pi and decodes its output.
//
// The client package wraps `vcgencmd get_throttled` behind the Runner interface and
// decodes the reported bitmask into a ThrottledState through the Parser interface.
// Execution and decoding failures are returned as *ExecutionError and *ParseError.
package client
