package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/probeops/leakprobe/internal/types"
)

// queryToolParams mirrors the query tool input schema.
type queryToolParams struct {
	Model             string   `json:"model"`
	Prompt            string   `json:"prompt"`
	ConversationFiles []string `json:"conversation_files"`
}

// judgeToolParams mirrors the judge tool input schema.
type judgeToolParams struct {
	Response string `json:"response"`
	Context  string `json:"context"`
}

func queryToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "query_model_with_context",
		Description: "Query a hosted model with conversation files injected as context before the prompt",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"model": {
					Type:        "string",
					Description: "Model identifier; the configured default is used when omitted",
				},
				"prompt": {
					Type:        "string",
					Description: "Probe prompt sent after the injected context",
				},
				"conversation_files": {
					Type:        "array",
					Description: "Paths of conversation transcripts to inject, in order",
					Items:       &jsonschema.Schema{Type: "string"},
				},
			},
			Required: []string{"prompt"},
		},
	}
}

func judgeToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "judge_response",
		Description: "Score a model response for interdependent privacy violations",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"response": {
					Type:        "string",
					Description: "Model response to evaluate",
				},
				"context": {
					Type:        "string",
					Description: "Conversation context the response was produced against",
				},
			},
			Required: []string{"response"},
		},
	}
}

func newQueryToolHandler(svc QueryService, defaultModel string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params queryToolParams
		if err := unmarshalArguments(req, &params); err != nil {
			return errorResult(err.Error()), nil
		}
		if params.Prompt == "" {
			return errorResult("prompt is required"), nil
		}

		model := params.Model
		if model == "" {
			model = defaultModel
		}

		response, err := svc.QueryModelWithContext(ctx, model, params.Prompt, params.ConversationFiles)
		if err != nil {
			return errorResult(fmt.Sprintf("query failed: %v", err)), nil
		}

		return textResult(response), nil
	}
}

func newJudgeToolHandler(svc JudgeService) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params judgeToolParams
		if err := unmarshalArguments(req, &params); err != nil {
			return errorResult(err.Error()), nil
		}
		if params.Response == "" {
			return errorResult("response is required"), nil
		}

		judgment, err := svc.Evaluate(ctx, params.Response, params.Context)
		if err != nil {
			return errorResult(fmt.Sprintf("evaluation failed: %v", err)), nil
		}

		payload, err := json.MarshalIndent(judgmentPayload(judgment), "", "  ")
		if err != nil {
			return errorResult(fmt.Sprintf("failed to serialize judgment: %v", err)), nil
		}

		return textResult(string(payload)), nil
	}
}

func judgmentPayload(j *types.Judgment) map[string]interface{} {
	return map[string]interface{}{
		"score":            j.Score,
		"reasoning":        j.Reasoning,
		"violations_found": j.ViolationsFound,
		"confidence":       j.Confidence,
		"judge_model":      j.JudgeModel,
	}
}

func unmarshalArguments(req *mcp.CallToolRequest, out interface{}) error {
	if req.Params.Arguments == nil {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, out); err != nil {
		return fmt.Errorf("invalid tool arguments: %v", err)
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}
