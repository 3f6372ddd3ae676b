package oserr

import (
	"strconv"

	"golang.org/x/sys/unix"
)

// Kind names an OS error condition.
type Kind uint8

const (
	// Unknown is the fallback for codes without a named kind. An Error of
	// this kind carries the original numeric code.
	Unknown Kind = iota

	Again
	NoMemory
	NotSupported
	NoChild
	Invalid
	Interrupted
	ArgListTooLong
	BadDescriptor
	TooManyOpenFiles
	IO
	NoSpace
	QuotaExceeded
	WouldBlock
	DestinationRequired
	BadAddress
	FileTooLarge
	NotPermitted
	BrokenPipe
	IsDirectory
	FileTableOverflow
	OutOfRange
	NotFound
	AccessDenied

	// Conditions reported by the path utilities.
	Exists
	NotDirectory
	NameTooLong
	TooManyLinks
	ReadOnlyFS
	TextBusy
	ExecFormat
	NoProcess
	NotTerminal
	Busy
)

type entry struct {
	kind Kind
	code unix.Errno
}

// table is ordered: when two kinds share a number on this platform
// (EAGAIN and EWOULDBLOCK on Linux) the earlier entry wins on decode.
var table = [...]entry{
	{Again, unix.EAGAIN},
	{NoMemory, unix.ENOMEM},
	{NotSupported, unix.ENOSYS},
	{NoChild, unix.ECHILD},
	{Invalid, unix.EINVAL},
	{Interrupted, unix.EINTR},
	{ArgListTooLong, unix.E2BIG},
	{BadDescriptor, unix.EBADF},
	{TooManyOpenFiles, unix.EMFILE},
	{IO, unix.EIO},
	{NoSpace, unix.ENOSPC},
	{QuotaExceeded, unix.EDQUOT},
	{WouldBlock, unix.EWOULDBLOCK},
	{DestinationRequired, unix.EDESTADDRREQ},
	{BadAddress, unix.EFAULT},
	{FileTooLarge, unix.EFBIG},
	{NotPermitted, unix.EPERM},
	{BrokenPipe, unix.EPIPE},
	{IsDirectory, unix.EISDIR},
	{FileTableOverflow, unix.ENFILE},
	{OutOfRange, unix.ERANGE},
	{NotFound, unix.ENOENT},
	{AccessDenied, unix.EACCES},
	{Exists, unix.EEXIST},
	{NotDirectory, unix.ENOTDIR},
	{NameTooLong, unix.ENAMETOOLONG},
	{TooManyLinks, unix.ELOOP},
	{ReadOnlyFS, unix.EROFS},
	{TextBusy, unix.ETXTBSY},
	{ExecFormat, unix.ENOEXEC},
	{NoProcess, unix.ESRCH},
	{NotTerminal, unix.ENOTTY},
	{Busy, unix.EBUSY},
}

var (
	byCode = make(map[unix.Errno]Kind, len(table))
	byKind = make(map[Kind]unix.Errno, len(table))
)

func init() {
	for _, e := range table {
		if _, dup := byCode[e.code]; !dup {
			byCode[e.code] = e.kind
		}
		byKind[e.kind] = e.code
	}
}

// Kinds returns every named kind in decode order.
func Kinds() []Kind {
	kinds := make([]Kind, len(table))
	for i, e := range table {
		kinds[i] = e.kind
	}
	return kinds
}

// Code returns the canonical errno for k, or 0 for Unknown.
func (k Kind) Code() unix.Errno {
	return byKind[k]
}

// String returns the symbolic errno name, e.g. "ENOENT".
func (k Kind) String() string {
	if k == Unknown {
		return "UNKNOWN"
	}
	if name := unix.ErrnoName(k.Code()); name != "" {
		return name
	}
	return "errno " + strconv.Itoa(int(k.Code()))
}

// Error makes a Kind usable as an errors.Is target.
func (k Kind) Error() string {
	if k == Unknown {
		return "unknown OS error"
	}
	return k.Code().Error()
}
