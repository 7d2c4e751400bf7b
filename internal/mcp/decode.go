package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode converts tool arguments into a typed request by round-tripping them
// through JSON. Missing arguments decode to the zero value.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	if len(args) == 0 {
		return result, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("invalid arguments: %w", err)
	}
	return result, nil
}
