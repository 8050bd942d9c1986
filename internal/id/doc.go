// Package id generates identifiers for MCP sessions and log correlation.
//
// Session identifiers are random UUIDs (github.com/google/uuid) rendered in
// their canonical 36-character form, which is what clients echo back in the
// Mcp-Session-Id header.
package id
