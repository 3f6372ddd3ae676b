package fd

import (
	"encoding/binary"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sys/unix"
)

var (
	_ io.Reader       = (*Handle)(nil)
	_ io.Writer       = (*Handle)(nil)
	_ io.StringWriter = (*Handle)(nil)
	_ io.Closer       = (*Handle)(nil)
)

// Read issues one read and returns what it transferred, which may be less
// than len(p). A zero-byte read into a non-empty buffer is end of file and
// returns io.EOF.
func (h *Handle) Read(p []byte) (int, error) {
	n, err := unix.Read(h.raw, p)
	runtime.KeepAlive(h)
	if err != nil {
		return 0, readError(h.raw, err)
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadBytes issues one read of up to n bytes and returns what arrived.
func (h *Handle) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := unix.Read(h.raw, buf)
	runtime.KeepAlive(h)
	if err != nil {
		return nil, readError(h.raw, err)
	}
	return buf[:got], nil
}

// ReadExact reads until exactly n bytes have arrived. Any failure, including
// an interrupted read, aborts the call and the partial data is discarded.
// End of file before n bytes is reported as io.ErrUnexpectedEOF.
func (h *Handle) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	for off := 0; off < n; {
		got, err := unix.Read(h.raw, buf[off:])
		if err != nil {
			runtime.KeepAlive(h)
			return nil, readError(h.raw, err)
		}
		if got == 0 {
			return nil, io.ErrUnexpectedEOF
		}
		off += got
	}
	runtime.KeepAlive(h)
	return buf, nil
}

// Write issues one write and returns how much of p was transferred, which
// may be less than len(p).
func (h *Handle) Write(p []byte) (int, error) {
	n, err := unix.Write(h.raw, p)
	runtime.KeepAlive(h)
	if err != nil {
		return 0, writeError(h.raw, err)
	}
	return n, nil
}

// WriteString is Write for string data.
func (h *Handle) WriteString(s string) (int, error) {
	return h.Write([]byte(s))
}

// ReadValue fills v, a pointer to fixed-size data, from exactly
// binary.Size(v) bytes in native byte order.
func (h *Handle) ReadValue(v any) error {
	size := binary.Size(v)
	if size < 0 {
		return fmt.Errorf("fd: ReadValue: %T has no fixed size", v)
	}
	buf, err := h.ReadExact(size)
	if err != nil {
		return err
	}
	_, err = binary.Decode(buf, binary.NativeEndian, v)
	return err
}

// WriteValue writes the native byte-order encoding of fixed-size v with a
// single write. The write may be partial.
func (h *Handle) WriteValue(v any) (int, error) {
	buf, err := binary.Append(nil, binary.NativeEndian, v)
	if err != nil {
		return 0, fmt.Errorf("fd: WriteValue: %w", err)
	}
	return h.Write(buf)
}
