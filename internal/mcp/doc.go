// Package mcp exposes the four scoped semantic-search operations as MCP
// tool calls, calling the query engine directly with no network hop in
// between.
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp).
package mcp
