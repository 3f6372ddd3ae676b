package internal

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// parseSignal accepts a signal name with or without the SIG prefix, or a
// signal number.
func parseSignal(signal string) (unix.Signal, error) {
	name := strings.ToUpper(strings.TrimSpace(signal))
	if num, err := strconv.Atoi(name); err == nil {
		if num <= 0 || unix.SignalName(unix.Signal(num)) == "" {
			return 0, fmt.Errorf("%w: unknown signal number %d", ErrInvalidInput, num)
		}
		return unix.Signal(num), nil
	}
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("%w: invalid signal: %s", ErrInvalidInput, signal)
	}
	return sig, nil
}

// signalName renders sig the way parseSignal accepts it.
func signalName(sig unix.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return strconv.Itoa(int(sig))
}
