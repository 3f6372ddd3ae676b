package pathutil

import (
	"strings"

	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/oserr"
)

// Check selects what Access verifies.
type Check uint32

const (
	Exists         Check = unix.F_OK
	Read           Check = unix.R_OK
	Write          Check = unix.W_OK
	Execute        Check = unix.X_OK
	ReadWrite            = Read | Write
	ReadExecute          = Read | Execute
	WriteExecute         = Write | Execute
	AllPermissions       = Read | Write | Execute
)

// ParseCheck converts access(2) mode bits into a Check. Bits outside
// R_OK, W_OK and X_OK are rejected with oserr.Invalid.
func ParseCheck(bits int) (Check, error) {
	if bits&^int(AllPermissions) != 0 {
		return 0, oserr.New(oserr.Invalid)
	}
	return Check(bits), nil
}

func (c Check) String() string {
	if c == Exists {
		return "exists"
	}
	var parts []string
	for _, p := range []struct {
		bit  Check
		name string
	}{{Read, "read"}, {Write, "write"}, {Execute, "execute"}} {
		if c&p.bit != 0 {
			parts = append(parts, p.name)
		}
	}
	return strings.Join(parts, "+")
}

// Access reports whether the real user may access path as c asks. A denied
// permission check and a missing path on an existence check are answers,
// not errors; every other failure is returned.
func Access(path string, c Check) (bool, error) {
	err := unix.Access(path, uint32(c))
	if err == nil {
		return true, nil
	}
	e := oserr.Capture(err)
	switch {
	case c != Exists && e.Kind() == oserr.AccessDenied:
		return false, nil
	case c == Exists && e.Kind() == oserr.NotFound:
		return false, nil
	}
	return false, pathError("access", path, e)
}
