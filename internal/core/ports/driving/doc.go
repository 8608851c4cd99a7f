// Package driving holds the interfaces the CLI, HTTP API and MCP server
// call into. internal/core/services implements them.
package driving
