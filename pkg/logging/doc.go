// Package logging configures the log/slog loggers used by dbx-mcp.
//
// The validation client prints its report on stdout, so operational logs
// always go to a separate writer (stderr by default):
//
//	log := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//	log.Info("mcp server listening", "addr", "0.0.0.0:8000")
//
// Components accept a *slog.Logger through a SetLogger method and fall back to
// Nop when none is provided.
package logging
