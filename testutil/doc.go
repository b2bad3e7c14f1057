// Package testutil provides shared helpers for tests: a manual clock for
// exercising retention windows and a sleep recorder for observing backoff
// without real delay.
package testutil
