//go:build !windows

package message

// LineSeparator terminates each line produced by ResponseHeaders and Body.
const LineSeparator = "\n"
