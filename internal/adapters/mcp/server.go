package mcpadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
	"github.com/kirillkom/solar-equipment-parser/internal/core/ports"
)

const (
	ToolName      = "parse_equipment_datasheet"
	serverName    = "solar-equipment-parser"
	serverVersion = "1.0.0"
)

// NewServer exposes the parser as a single MCP tool. The tool result is the ParseResult JSON;
// failed parses are flagged with IsError so clients can tell them apart without decoding.
func NewServer(parser ports.EquipmentParser) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	s.AddTool(parseTool(), ParseHandler(parser))
	return s
}

func parseTool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Extract a structured solar equipment record (name, category, price, specifications) from a PDF datasheet."),
		mcp.WithString("documentUrl",
			mcp.Description("Absolute http or https URL of the PDF datasheet."),
		),
		mcp.WithString("documentBase64",
			mcp.Description("Base64 encoded PDF bytes, used when documentUrl is not given."),
		),
	)
}

func ParseHandler(parser ports.EquipmentParser) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		documentURL := strings.TrimSpace(request.GetString("documentUrl", ""))
		encoded := strings.TrimSpace(request.GetString("documentBase64", ""))

		var result domain.ParseResult
		switch {
		case documentURL != "":
			result = parser.Parse(ctx, documentURL)
		case encoded != "":
			data, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return mcp.NewToolResultError("documentBase64 is not valid base64"), nil
			}
			result = parser.ParseUpload(ctx, data)
		default:
			return mcp.NewToolResultError("either documentUrl or documentBase64 is required"), nil
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal parse result: %w", err)
		}
		out := mcp.NewToolResultText(string(payload))
		out.IsError = !result.Success
		return out, nil
	}
}

// ServeStdio blocks serving the tool over stdin/stdout.
func ServeStdio(parser ports.EquipmentParser) error {
	return server.ServeStdio(NewServer(parser))
}
