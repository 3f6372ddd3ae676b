package fd

import "golang.org/x/sys/unix"

// PipeDirect selects packet mode for Pipe2.
const PipeDirect = unix.O_DIRECT
