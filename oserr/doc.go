// Package oserr translates numeric OS error codes into a typed taxonomy.
//
// Every wrapper in this module reports failures as an [Error]: a named [Kind]
// for the conditions callers commonly branch on, or the [Unknown] kind
// carrying the exact numeric code for everything else. Conversion is lossless
// in both directions:
//
//	e := oserr.FromCode(unix.ENOENT) // e.Kind() == oserr.NotFound
//	oserr.ToCode(e)                  // unix.ENOENT
//
// An Error matches its Kind, its raw errno and the io/fs sentinels with
// errors.Is:
//
//	errors.Is(err, oserr.NotFound)
//	errors.Is(err, unix.ENOENT)
//	errors.Is(err, fs.ErrNotExist)
//
// [Capture] is called on the failure path of each wrapped syscall with the
// errno that call returned. [Render] produces the OS's message text.
package oserr
