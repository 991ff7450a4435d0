// Package logx wraps zerolog behind a small Logger type whose sinks can be
// reconfigured at runtime via Service.Apply (console and/or file output).
// Loggers created from a Service stay live across Apply calls; derived
// loggers carry fixed fields added with With().
package logx
