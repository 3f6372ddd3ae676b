package internal

import (
	"testing"

	"github.com/nalgeon/be"
	"golang.org/x/sys/unix"
)

func TestParseSignal(t *testing.T) {
	for input, want := range map[string]unix.Signal{
		"SIGTERM": unix.SIGTERM,
		"term":    unix.SIGTERM,
		"sigkill": unix.SIGKILL,
		"HUP":     unix.SIGHUP,
		"9":       unix.SIGKILL,
		" USR1 ":  unix.SIGUSR1,
	} {
		got, err := parseSignal(input)
		be.Err(t, err, nil)
		be.Equal(t, got, want)
	}

	for _, input := range []string{"SIGNOPE", "0", "-3", "99999"} {
		_, err := parseSignal(input)
		be.Err(t, err, ErrInvalidInput)
	}
}

func TestSignalName(t *testing.T) {
	be.Equal(t, signalName(unix.SIGINT), "SIGINT")
	be.Equal(t, signalName(unix.Signal(200)), "200")
}
