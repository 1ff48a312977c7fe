// Package client drives one compute run against a matrixd server.
//
// Run order: CONFIG -> DATA -> COMPUTE -> poll STATUS until computed -> RESULT.
// Every step blocks on its reply. The poll loop ends on STATUS=computed, ctx cancellation, or
// the configured poll timeout.
package client
