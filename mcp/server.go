// Package mcp exposes the settlement engine over the Model Context Protocol:
// settlement submission and the registry read accessors as tools, served over
// streamable HTTP.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	payments "github.com/PaulElisha/KaiaChain-Payment-Protocol"
	"github.com/PaulElisha/KaiaChain-Payment-Protocol/encoding"
)

// Server wraps an MCP server around a settlement engine.
type Server struct {
	engine    *payments.Engine
	mcpServer *mcpserver.MCPServer
}

// NewServer creates the MCP surface for the given engine.
func NewServer(name, version string, engine *payments.Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: mcpserver.NewMCPServer(name, version),
	}

	settleTool := mcpproto.NewTool(
		"settle_intent",
		mcpproto.WithDescription("Settle a signed transfer intent. The intent is base64-encoded JSON as produced by the encoding package."),
		mcpproto.WithString("variant", mcpproto.Required(), mcpproto.Description("Settlement variant: native, token, wrap, or unwrap")),
		mcpproto.WithString("intent", mcpproto.Required(), mcpproto.Description("Base64-encoded signed transfer intent")),
		mcpproto.WithString("payer", mcpproto.Required(), mcpproto.Description("Payer address")),
		mcpproto.WithString("value", mcpproto.Description("Attached native value in atomic units (native and wrap variants)")),
	)
	s.mcpServer.AddTool(settleTool, s.handleSettle)

	feeTool := mcpproto.NewTool(
		"fee_destination",
		mcpproto.WithDescription("Look up the fee destination currently registered for an operator"),
		mcpproto.WithString("operator", mcpproto.Required(), mcpproto.Description("Operator address")),
	)
	s.mcpServer.AddTool(feeTool, s.handleFeeDestination)

	processedTool := mcpproto.NewTool(
		"intent_processed",
		mcpproto.WithDescription("Check whether an (operator, id) pair has already settled"),
		mcpproto.WithString("operator", mcpproto.Required(), mcpproto.Description("Operator address")),
		mcpproto.WithString("id", mcpproto.Required(), mcpproto.Description("16-byte intent id in hex")),
	)
	s.mcpServer.AddTool(processedTool, s.handleProcessed)

	return s
}

// Handler returns the streamable HTTP handler for the MCP surface.
func (s *Server) Handler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer)
}

// Start serves the MCP surface on the given address.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleSettle(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	args := req.GetArguments()
	variant, _ := args["variant"].(string)
	encoded, _ := args["intent"].(string)
	rawPayer, _ := args["payer"].(string)
	rawValue, _ := args["value"].(string)

	intent, err := encoding.DecodeIntent(encoded)
	if err != nil {
		return toolError(err), nil
	}
	if !common.IsHexAddress(rawPayer) {
		return toolError(fmt.Errorf("invalid payer address %q", rawPayer)), nil
	}
	payer := common.HexToAddress(rawPayer)

	value := new(big.Int)
	if rawValue != "" {
		parsed, ok := new(big.Int).SetString(rawValue, 10)
		if !ok {
			return toolError(fmt.Errorf("invalid value %q", rawValue)), nil
		}
		value = parsed
	}

	var receipt *payments.SettlementReceipt
	switch variant {
	case "native":
		receipt, err = s.engine.SettleNative(ctx, intent, payer, value)
	case "token":
		receipt, err = s.engine.SettleToken(ctx, intent, payer)
	case "wrap":
		receipt, err = s.engine.WrapAndSettle(ctx, intent, payer, value)
	case "unwrap":
		receipt, err = s.engine.UnwrapAndSettle(ctx, intent, payer)
	default:
		return toolError(fmt.Errorf("unknown variant %q", variant)), nil
	}
	if err != nil {
		return toolError(fmt.Errorf("%s: %w", payments.CodeOf(err), err)), nil
	}

	body, err := json.Marshal(receipt)
	if err != nil {
		return nil, err
	}
	return textResult(string(body)), nil
}

func (s *Server) handleFeeDestination(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	args := req.GetArguments()
	rawOperator, _ := args["operator"].(string)
	if !common.IsHexAddress(rawOperator) {
		return toolError(fmt.Errorf("invalid operator address %q", rawOperator)), nil
	}
	operator := common.HexToAddress(rawOperator)

	dest, ok := s.engine.FeeDestination(operator)
	if !ok {
		return textResult(fmt.Sprintf("operator %s is not registered", operator.Hex())), nil
	}
	return textResult(fmt.Sprintf("operator %s pays fees to %s", operator.Hex(), dest.Hex())), nil
}

func (s *Server) handleProcessed(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	args := req.GetArguments()
	rawOperator, _ := args["operator"].(string)
	rawID, _ := args["id"].(string)
	if !common.IsHexAddress(rawOperator) {
		return toolError(fmt.Errorf("invalid operator address %q", rawOperator)), nil
	}
	id, err := payments.IntentIDFromHex(rawID)
	if err != nil {
		return toolError(err), nil
	}
	operator := common.HexToAddress(rawOperator)

	if s.engine.IsProcessed(operator, id) {
		return textResult(fmt.Sprintf("intent %s by %s has settled", id.Hex(), operator.Hex())), nil
	}
	return textResult(fmt.Sprintf("intent %s by %s has not settled", id.Hex(), operator.Hex())), nil
}

func textResult(text string) *mcpproto.CallToolResult {
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{mcpproto.NewTextContent(text)},
	}
}

func toolError(err error) *mcpproto.CallToolResult {
	result := textResult(err.Error())
	result.IsError = true
	return result
}
