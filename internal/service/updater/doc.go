// Package updater drives the whole update session: it validates the
// target binary, guards against concurrent runs with a marker file,
// compares the installed build against the published listing, installs a
// newer build after confirmation and finally starts the emulator.
package updater
