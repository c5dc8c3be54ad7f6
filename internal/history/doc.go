// Package history persists a log of recording sessions in SQLite. Each
// session gets a row when it starts and is completed with its terminal
// outcome, frame count, and artifact path when it ends.
package history
