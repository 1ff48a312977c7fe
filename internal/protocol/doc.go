// Package protocol owns the matrix compute wire contract.
//
// Ownership boundary:
// - message type tags
// - CONFIG/DATA/STATUS/RESULT payload layouts
// - frame/header primitives live in protocol/frame
// - per-connection state lives in protocol/session
package protocol
