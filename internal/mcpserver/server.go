// Package mcpserver exposes the operation catalog as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/pitabwire/conductor-mcp/internal/catalog"
	"github.com/pitabwire/conductor-mcp/internal/observability"
	"github.com/pitabwire/conductor-mcp/model"
)

// ServerName is the name announced during the MCP handshake.
const ServerName = "conductor-mcp"

// OperationsURI is the resource listing every catalog operation.
const OperationsURI = "conductor://operations"

// Invoker runs one named operation.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) model.ResultEnvelope
}

// Server wraps an MCPServer whose tools are the catalog operations.
type Server struct {
	mcp     *server.MCPServer
	catalog *catalog.Catalog
	invoker Invoker
	logger  *zap.Logger
}

// New registers one tool per catalog operation plus the operations
// resource and the diagnosis prompt.
func New(cat *catalog.Catalog, inv Invoker, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			observability.Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithPromptCapabilities(false),
			server.WithRecovery(),
			server.WithInstructions(instructions),
		),
		catalog: cat,
		invoker: inv,
		logger:  logger,
	}

	for _, op := range cat.Operations() {
		tool, err := toolFor(op)
		if err != nil {
			return nil, err
		}
		s.mcp.AddTool(tool, s.handleTool(op.Name()))
	}

	s.mcp.AddResource(
		mcp.NewResource(OperationsURI, "Conductor operations",
			mcp.WithResourceDescription("Every operation with its parameters and backend routes."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleOperations,
	)

	s.mcp.AddPrompt(
		mcp.NewPrompt("diagnose_workflow",
			mcp.WithPromptDescription("Investigate why a workflow execution failed or is stuck."),
			mcp.WithArgument("workflowId",
				mcp.ArgumentDescription("Workflow execution ID"),
				mcp.RequiredArgument(),
			),
		),
		s.handleDiagnose,
	)

	return s, nil
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Serve speaks the protocol on in and out until ctx is done or in is
// closed. Protocol errors are logged, never written to out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Named("stdio")))
	s.logger.Info("serving MCP over stdio", zap.Int("tools", s.catalog.Len()))
	return stdio.Listen(ctx, in, out)
}

func toolFor(op *catalog.Operation) (mcp.Tool, error) {
	schema, err := json.Marshal(op.InputSchema())
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("mcpserver: schema for %s: %w", op.Name(), err)
	}
	tool := mcp.NewToolWithRawSchema(op.Name(), op.Spec.Description, schema)
	tool.Annotations = mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(!op.Mutation()),
		DestructiveHint: mcp.ToBoolPtr(op.Mutation()),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}
	return tool, nil
}

func (s *Server) handleTool(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env := s.invoker.Invoke(ctx, name, req.GetArguments())
		if !env.Succeeded {
			return mcp.NewToolResultError(env.Text(name)), nil
		}
		return mcp.NewToolResultText(env.Text(name)), nil
	}
}

// operationEntry is one element of the operations resource.
type operationEntry struct {
	model.OperationSpec
	Mutation bool            `json:"mutation"`
	Routes   []catalog.Route `json:"routes"`
}

func (s *Server) handleOperations(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	specs := s.catalog.Describe()
	ops := s.catalog.Operations()
	entries := make([]operationEntry, len(ops))
	for i, op := range ops {
		entries[i] = operationEntry{OperationSpec: specs[i], Mutation: op.Mutation(), Routes: op.Routes()}
	}

	data, err := json.MarshalIndent(map[string]any{
		"checksum":   s.catalog.Checksum(),
		"operations": entries,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleDiagnose(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := strings.TrimSpace(req.Params.Arguments["workflowId"])
	if id == "" {
		return nil, errors.New("workflowId is required")
	}

	text := fmt.Sprintf(`Diagnose Conductor workflow execution %s.

1. Call get_workflow_status with workflowId %s and includeTaskDetails true.
2. For every task with status FAILED, FAILED_WITH_TERMINAL_ERROR, TIMED_OUT or CANCELED, call get_task_logs with its taskId.
3. Summarize the root cause and recommend one of retry_workflow, restart_workflow or terminate_workflow. Do not call a mutating operation without confirmation.`, id, id)

	return mcp.NewGetPromptResult(
		"Diagnose workflow "+id,
		[]mcp.PromptMessage{mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text))},
	), nil
}

const instructions = `This server operates a Netflix Conductor deployment.

Use list_workflows or search_workflows to find executions, get_workflow_status to inspect one, and get_task_logs for task output. If search fails with a search index error, fall back to list_running_workflows.

Operations marked destructive change backend state: start, pause, resume, terminate, restart and retry workflows, update task status, and create definitions. Confirm intent before calling them.

Execution identifiers use the 8-4-4-4-12 hexadecimal form. Errors start with a bracketed category and end with a suggestion.`
