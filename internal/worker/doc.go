// Package worker owns the boundary to the external capture/encode process.
//
// It spawns the worker with the positional-argument contract the script
// expects, translates its line-oriented stdout/stderr protocol into
// callbacks, observes process exit exactly once, and runs the termination
// escalation sequence when the worker ignores a stop signal. There is no
// shared memory with the worker: coordination happens through marker files
// (package control), frame files (package framestore), stdio, and the exit
// code.
package worker
