// Package validate drives fixed diagnostic scenarios against a running MCP
// server through an mcpclient.Client and prints human-readable summaries.
//
// Scenarios are strictly sequential: each call waits for the previous one.
// Missing optional inputs (a warehouse id, a warehouse listing tool) turn the
// affected step into a printed skip notice rather than a failure.
package validate
