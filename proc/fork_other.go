//go:build !linux || s390x

package proc

import "github.com/spachava753/sysown/oserr"

// Fork is only implemented on Linux. Elsewhere the raw syscall's return
// convention differs per kernel and the call reports NotSupported.
func Fork() (ForkResult, error) {
	return ForkResult{}, oserr.New(oserr.NotSupported)
}
