// Package pathutil holds single-call wrappers for the working directory,
// access checks and permission bits. Failures are *fd.OpError values
// carrying an oserr.Error, like the rest of the module.
package pathutil
