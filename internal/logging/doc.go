// Package logging wraps log/slog with the attribute helpers, context
// propagation, and handler construction used across ingot. All components
// receive a *slog.Logger from their constructor; nothing logs through a
// package-level default.
package logging
