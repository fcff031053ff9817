// Package mail resolves SMTP accounts, composes messages and delivers them
// through gomail. It never records history itself; callers are responsible
// for recording outcomes.
package mail
