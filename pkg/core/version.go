// pkg/core/version.go
package core

// EngineVersion is reported to hosts on handshake and stamped on
// committed routes and session headers.
const EngineVersion = "2.0.0"
