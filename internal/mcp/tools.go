package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/rpggio/ngoboard/internal/auth"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition describes a tool exposed over MCP and JSON-RPC.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

var periodSchema = map[string]any{
	"type":        "object",
	"description": "Reporting period: 1-based ordinal within the year for the project cadence, plus the calendar year",
	"properties": map[string]any{
		"index": map[string]any{
			"type":        "integer",
			"description": "1-12 for monthly, 1-4 for quarterly, 1 for annual projects",
		},
		"year": map[string]any{
			"type":        "integer",
			"description": "Calendar year, e.g. 2024",
		},
	},
	"required": []string{"index", "year"},
}

var axesSchema = map[string]any{
	"type":        "array",
	"description": "Thematic axes, each with the indicators organizations report on",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Axis name, unique within the project",
			},
			"indicators": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"type": map[string]any{
							"type": "string",
							"enum": []string{"count", "percentage", "mass", "currency", "text"},
						},
						"custom": map[string]any{
							"type":        "boolean",
							"description": "True for indicators the organization defined itself",
						},
					},
					"required": []string{"name", "type"},
				},
			},
		},
		"required": []string{"name"},
	},
}

var projectStates = []string{"PENDING_APPROVAL", "PENDING_PAYMENT", "HISTORICAL"}

func projectIDOnly(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"project_id": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"project_id"},
	}
}

// buildToolCatalog returns all available tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Projects
		{
			Name:        "create_project",
			Description: "Create a project in PENDING_APPROVAL (admin only)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Unique project identifier (optional, generated if omitted)",
					},
					"name": map[string]any{
						"type":        "string",
						"description": "Project display name",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Free-text description, indexed for search",
					},
					"duration": map[string]any{
						"type":        "integer",
						"description": "Duration in months",
					},
					"cadence": map[string]any{
						"type": "string",
						"enum": []string{"monthly", "quarterly", "annual"},
					},
					"organization_id": map[string]any{
						"type":        "string",
						"description": "Organization that reports on this project",
					},
					"axes": axesSchema,
				},
				"required": []string{"name", "duration", "cadence", "organization_id"},
			},
		},
		{
			Name:        "update_project",
			Description: "Edit a project while it is PENDING_APPROVAL (admin only); omitted fields are unchanged, axes replaces all axes",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id":  map[string]any{"type": "string"},
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"duration":    map[string]any{"type": "integer"},
					"cadence": map[string]any{
						"type": "string",
						"enum": []string{"monthly", "quarterly", "annual"},
					},
					"axes": axesSchema,
				},
				"required": []string{"project_id"},
			},
		},
		{
			Name:        "delete_project",
			Description: "Delete a project that has no reports (admin only)",
			InputSchema: projectIDOnly("Project ID"),
		},
		{
			Name:        "get_project",
			Description: "Get a project with its axes, indicators and lifecycle state",
			InputSchema: projectIDOnly("Project ID"),
		},
		{
			Name:        "list_projects",
			Description: "List projects, optionally filtered by state and organization",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"states": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string", "enum": projectStates},
					},
					"organization_id": map[string]any{"type": "string"},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results",
					},
					"offset": map[string]any{
						"type":        "integer",
						"description": "Offset for pagination",
					},
				},
			},
		},
		{
			Name:        "search_projects",
			Description: "Full-text search over project names and descriptions",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Search query text",
					},
					"states": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string", "enum": projectStates},
					},
					"limit":  map[string]any{"type": "integer"},
					"offset": map[string]any{"type": "integer"},
				},
				"required": []string{"query"},
			},
		},

		// Lifecycle
		{
			Name:        "approve_project",
			Description: "Approve a PENDING_APPROVAL project; every axis must declare at least one indicator (admin only)",
			InputSchema: projectIDOnly("Project ID"),
		},
		{
			Name:        "authorize_payment",
			Description: "Record a payment provider outcome for a PENDING_PAYMENT project; success moves it to HISTORICAL (admin only)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
					"success": map[string]any{
						"type":        "boolean",
						"description": "Whether the provider accepted the payment",
					},
					"transaction_id": map[string]any{
						"type":        "string",
						"description": "Provider transaction reference, required on success",
					},
					"reason": map[string]any{
						"type":        "string",
						"description": "Decline reason, used when success is false",
					},
				},
				"required": []string{"project_id", "success"},
			},
		},
		{
			Name:        "pay_project",
			Description: "Charge a PENDING_PAYMENT project through the configured payment provider (admin only)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
					"amount": map[string]any{
						"type":        "string",
						"description": "Decimal amount, e.g. \"1500.00\"",
					},
					"currency": map[string]any{
						"type":        "string",
						"description": "ISO 4217 code (defaults to the server currency)",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "What the payment is for",
					},
				},
				"required": []string{"project_id", "amount", "description"},
			},
		},
		{
			Name:        "get_payment_history",
			Description: "List every payment attempt recorded for a project, oldest first",
			InputSchema: projectIDOnly("Project ID"),
		},

		// Reports
		{
			Name:        "submit_report",
			Description: "Submit the indicator values of one axis for one period; submitted reports are locked",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
					"axis":       map[string]any{"type": "string"},
					"period":     periodSchema,
					"values": map[string]any{
						"type":                 "object",
						"description":          "Indicator name to value; numbers may be sent as JSON numbers or strings",
						"additionalProperties": true,
					},
				},
				"required": []string{"project_id", "axis", "period", "values"},
			},
		},
		{
			Name:        "get_report",
			Description: "Get the report of a project axis for a period, including derived fields",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
					"axis":       map[string]any{"type": "string"},
					"period":     periodSchema,
				},
				"required": []string{"project_id", "axis", "period"},
			},
		},
		{
			Name:        "list_reported_periods",
			Description: "List the (axis, period) slots that already have a report",
			InputSchema: projectIDOnly("Project ID"),
		},
		{
			Name:        "list_reports",
			Description: "List full reports of a project, optionally filtered by axis and year",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
					"axis":       map[string]any{"type": "string"},
					"year":       map[string]any{"type": "integer"},
					"limit":      map[string]any{"type": "integer"},
					"offset":     map[string]any{"type": "integer"},
				},
				"required": []string{"project_id"},
			},
		},

		// Activity
		{
			Name:        "get_recent_activity",
			Description: "Get recent activity entries for a project or report",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{
						"type":        "string",
						"description": "Project ID to filter by",
					},
					"report_id": map[string]any{
						"type":        "string",
						"description": "Report ID to filter by",
					},
					"type": map[string]any{
						"type":        "string",
						"description": "Activity type to filter by",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of activity entries",
					},
				},
			},
		},
	}
}

// Tools returns the tool catalog.
func Tools() []ToolDefinition {
	return buildToolCatalog()
}

// registerTools exposes every catalog entry as an MCP tool backed by h.
func registerTools(server *sdkmcp.Server, h *Handler, logger *slog.Logger) {
	for _, tool := range buildToolCatalog() {
		name := tool.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			id, ok := auth.FromContext(ctx)
			if !ok {
				return errorResult(&APIError{Code: CodeUnauthorized, Message: "no identity on request"}), nil
			}

			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}

			result, err := h.Handle(ctx, id, name, args)
			if err != nil {
				var apiErr *APIError
				if errors.As(err, &apiErr) {
					return errorResult(apiErr), nil
				}
				if logger != nil {
					logger.Error("tool call failed", "tool", name, "org_id", id.OrgID, "error", err)
				}
				return nil, err
			}
			return textResult(result)
		})
	}
}

func textResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(apiErr *APIError) *sdkmcp.CallToolResult {
	data, err := json.Marshal(apiErr)
	if err != nil {
		data = []byte(apiErr.Error())
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
