// Package daemon ties the session controller, history store, and
// notifications together behind a single-instance process lock. The IPC
// layer talks to the daemon; the daemon talks to everything else.
package daemon
