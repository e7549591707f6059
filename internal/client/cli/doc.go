// Package cli is the bazaar command-line front end.
//
// Every command runs its service call through result.Run and prints the
// outcome in one of three forms: a progress line while the call runs, the
// payload on success (with a warning line when a profile link could not be
// updated), or the error kind and message on failure.
//
// The same command tree serves one-shot invocations and the interactive
// shell started with "bazaar shell".
package cli
