// Package task implements the scheduled-email core: the durable task store,
// the recurrence engine, the lifecycle manager and the scheduler loop that
// fires due tasks against the mail dispatcher.
package task
