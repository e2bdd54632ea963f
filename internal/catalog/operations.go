package catalog

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pitabwire/conductor-mcp/model"
)

// OperationID enumerates the fixed set of catalog operations. Each constant
// must have a name, a binding, and an entry in operations.yaml.
type OperationID int

const (
	ListWorkflows OperationID = iota
	GetWorkflowStatus
	StartWorkflow
	PauseWorkflow
	ResumeWorkflow
	TerminateWorkflow
	RestartWorkflow
	RetryWorkflow
	SearchWorkflows
	ListRunningWorkflows
	GetWorkflowDefinition
	ListWorkflowDefinitions
	CreateWorkflowDefinition
	GetTaskDetails
	GetTaskLogs
	UpdateTaskStatus
	GetTaskDefinition
	ListTaskDefinitions
	CreateTaskDefinition
	GetEventHandlers

	operationCount
)

var operationNames = [operationCount]string{
	ListWorkflows:            "list_workflows",
	GetWorkflowStatus:        "get_workflow_status",
	StartWorkflow:            "start_workflow",
	PauseWorkflow:            "pause_workflow",
	ResumeWorkflow:           "resume_workflow",
	TerminateWorkflow:        "terminate_workflow",
	RestartWorkflow:          "restart_workflow",
	RetryWorkflow:            "retry_workflow",
	SearchWorkflows:          "search_workflows",
	ListRunningWorkflows:     "list_running_workflows",
	GetWorkflowDefinition:    "get_workflow_definition",
	ListWorkflowDefinitions:  "list_workflow_definitions",
	CreateWorkflowDefinition: "create_workflow_definition",
	GetTaskDetails:           "get_task_details",
	GetTaskLogs:              "get_task_logs",
	UpdateTaskStatus:         "update_task_status",
	GetTaskDefinition:        "get_task_definition",
	ListTaskDefinitions:      "list_task_definitions",
	CreateTaskDefinition:     "create_task_definition",
	GetEventHandlers:         "get_event_handlers",
}

func (id OperationID) String() string {
	if id < 0 || id >= operationCount {
		return fmt.Sprintf("OperationID(%d)", int(id))
	}
	return operationNames[id]
}

// Route is an HTTP method and a path template relative to the API root.
// Placeholders use the {param} form.
type Route struct {
	Method   string `json:"method"`
	Template string `json:"path"`
}

func (r Route) String() string {
	return r.Method + " " + r.Template
}

// binding maps validated input onto a backend call and shapes the result.
type binding struct {
	// routes lists every route the operation may use; the first is primary.
	routes []Route
	call   func(in Input) model.BackendCall
	// summarize derives a read summary. Nil means the payload stands alone.
	summarize func(in Input, body any, now time.Time) string
	// confirm renders the confirmation line of a mutation.
	confirm func(in Input, body any) string
}

func (b binding) mutation() bool { return b.confirm != nil }

var bindings = [operationCount]binding{
	ListWorkflows: {
		routes: []Route{{http.MethodGet, "/workflow/search"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			in.setQuery(q, "start", "start")
			in.setQuery(q, "size", "size")
			in.setQuery(q, "workflowName", "workflowType")
			in.setQuery(q, "status", "status")
			in.setQuery(q, "startTime", "startTime")
			in.setQuery(q, "endTime", "endTime")
			in.setQuery(q, "freeText", "freeText")
			return model.BackendCall{Method: http.MethodGet, Path: "/workflow/search", Query: q}
		},
	},
	GetWorkflowStatus: {
		routes: []Route{{http.MethodGet, "/workflow/{workflowId}"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			if in.Bool("includeTaskDetails") {
				q.Set("includeTasks", "true")
			}
			return model.BackendCall{
				Method: http.MethodGet,
				Path:   expand("/workflow/{workflowId}", in),
				Query:  q,
			}
		},
		summarize: func(_ Input, body any, now time.Time) string {
			return summarizeWorkflow(body, now)
		},
	},
	StartWorkflow: {
		routes: []Route{{http.MethodPost, "/workflow"}},
		call: func(in Input) model.BackendCall {
			body := map[string]any{
				"name":     in.Text("workflowName"),
				"input":    in.Value("input"),
				"priority": in.Value("priority"),
			}
			if in.Has("version") {
				body["version"] = in.Value("version")
			}
			if in.Has("correlationId") {
				body["correlationId"] = in.Value("correlationId")
			}
			return model.BackendCall{Method: http.MethodPost, Path: "/workflow", Body: body}
		},
		confirm: func(_ Input, body any) string {
			return "Workflow started successfully. Workflow ID: " + scalarText(body)
		},
	},
	PauseWorkflow: {
		routes: []Route{{http.MethodPut, "/workflow/{workflowId}/pause"}},
		call: func(in Input) model.BackendCall {
			return model.BackendCall{Method: http.MethodPut, Path: expand("/workflow/{workflowId}/pause", in)}
		},
		confirm: func(in Input, _ any) string {
			return fmt.Sprintf("Workflow %s paused successfully.", in.Text("workflowId"))
		},
	},
	ResumeWorkflow: {
		routes: []Route{{http.MethodPut, "/workflow/{workflowId}/resume"}},
		call: func(in Input) model.BackendCall {
			return model.BackendCall{Method: http.MethodPut, Path: expand("/workflow/{workflowId}/resume", in)}
		},
		confirm: func(in Input, _ any) string {
			return fmt.Sprintf("Workflow %s resumed successfully.", in.Text("workflowId"))
		},
	},
	TerminateWorkflow: {
		routes: []Route{{http.MethodDelete, "/workflow/{workflowId}"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			in.setQuery(q, "reason", "reason")
			return model.BackendCall{Method: http.MethodDelete, Path: expand("/workflow/{workflowId}", in), Query: q}
		},
		confirm: func(in Input, _ any) string {
			return fmt.Sprintf("Workflow %s terminated successfully. Reason: %s", in.Text("workflowId"), in.Text("reason"))
		},
	},
	RestartWorkflow: {
		routes: []Route{{http.MethodPost, "/workflow/{workflowId}/restart"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			in.setQuery(q, "useLatestDefinition", "useLatestDefinitions")
			return model.BackendCall{Method: http.MethodPost, Path: expand("/workflow/{workflowId}/restart", in), Query: q}
		},
		confirm: func(in Input, body any) string {
			// Conductor returns no body for restart; the execution keeps its ID.
			id := scalarText(body)
			if id == "" {
				id = in.Text("workflowId")
			}
			return "Workflow restarted successfully. New Workflow ID: " + id
		},
	},
	RetryWorkflow: {
		routes: []Route{{http.MethodPost, "/workflow/{workflowId}/retry"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			in.setQuery(q, "resumeSubworkflowTasks", "resumeSubworkflowTasks")
			return model.BackendCall{Method: http.MethodPost, Path: expand("/workflow/{workflowId}/retry", in), Query: q}
		},
		confirm: func(in Input, _ any) string {
			return fmt.Sprintf("Workflow %s retry initiated successfully.", in.Text("workflowId"))
		},
	},
	SearchWorkflows: {
		routes: []Route{{http.MethodGet, "/workflow/search-v2"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			in.setQuery(q, "start", "start")
			in.setQuery(q, "size", "size")
			in.setQuery(q, "query", "query")
			in.setQuery(q, "sort", "sort")
			return model.BackendCall{Method: http.MethodGet, Path: "/workflow/search-v2", Query: q}
		},
	},
	ListRunningWorkflows: {
		routes: []Route{{http.MethodGet, "/workflow/running/{workflowName}"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			in.setQuery(q, "version", "version")
			in.setQuery(q, "startTime", "startTime")
			in.setQuery(q, "endTime", "endTime")
			return model.BackendCall{Method: http.MethodGet, Path: expand("/workflow/running/{workflowName}", in), Query: q}
		},
		summarize: func(_ Input, body any, _ time.Time) string {
			ids, ok := body.([]any)
			if !ok {
				return ""
			}
			return fmt.Sprintf("Running executions: %d", len(ids))
		},
	},
	GetWorkflowDefinition: {
		routes: []Route{
			{http.MethodGet, "/metadata/workflow/{workflowName}"},
			{http.MethodGet, "/metadata/workflow/{workflowName}/{version}"},
		},
		call: func(in Input) model.BackendCall {
			tmpl := "/metadata/workflow/{workflowName}"
			if in.Has("version") {
				tmpl = "/metadata/workflow/{workflowName}/{version}"
			}
			return model.BackendCall{Method: http.MethodGet, Path: expand(tmpl, in)}
		},
	},
	ListWorkflowDefinitions: {
		routes: []Route{{http.MethodGet, "/metadata/workflow"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			in.setQuery(q, "access", "access")
			in.setQuery(q, "tagKey", "tagKey")
			in.setQuery(q, "tagValue", "tagValue")
			return model.BackendCall{Method: http.MethodGet, Path: "/metadata/workflow", Query: q}
		},
	},
	CreateWorkflowDefinition: {
		routes: []Route{{http.MethodPost, "/metadata/workflow"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			in.setQuery(q, "overwrite", "overwrite")
			return model.BackendCall{Method: http.MethodPost, Path: "/metadata/workflow", Query: q, Body: in.Value("definition")}
		},
		confirm: func(Input, any) string {
			return "Workflow definition created/updated successfully."
		},
	},
	GetTaskDetails: {
		routes: []Route{{http.MethodGet, "/tasks/{taskId}"}},
		call: func(in Input) model.BackendCall {
			return model.BackendCall{Method: http.MethodGet, Path: expand("/tasks/{taskId}", in)}
		},
		summarize: func(_ Input, body any, now time.Time) string {
			return summarizeTask(body, now)
		},
	},
	GetTaskLogs: {
		routes: []Route{{http.MethodGet, "/tasks/{taskId}/log"}},
		call: func(in Input) model.BackendCall {
			return model.BackendCall{Method: http.MethodGet, Path: expand("/tasks/{taskId}/log", in)}
		},
	},
	UpdateTaskStatus: {
		routes: []Route{{http.MethodPost, "/tasks"}},
		call: func(in Input) model.BackendCall {
			body := map[string]any{
				"workflowInstanceId": in.Text("workflowInstanceId"),
				"taskId":             in.Text("taskId"),
				"status":             in.Text("status"),
				"outputData":         in.Value("output"),
				"logs":               in.Value("logs"),
			}
			return model.BackendCall{Method: http.MethodPost, Path: "/tasks", Body: body}
		},
		confirm: func(in Input, _ any) string {
			return fmt.Sprintf("Task %s status updated to %s successfully.", in.Text("taskId"), in.Text("status"))
		},
	},
	GetTaskDefinition: {
		routes: []Route{{http.MethodGet, "/metadata/taskdefs/{taskName}"}},
		call: func(in Input) model.BackendCall {
			return model.BackendCall{Method: http.MethodGet, Path: expand("/metadata/taskdefs/{taskName}", in)}
		},
	},
	ListTaskDefinitions: {
		routes: []Route{{http.MethodGet, "/metadata/taskdefs"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			in.setQuery(q, "access", "access")
			return model.BackendCall{Method: http.MethodGet, Path: "/metadata/taskdefs", Query: q}
		},
	},
	CreateTaskDefinition: {
		routes: []Route{{http.MethodPost, "/metadata/taskdefs"}},
		call: func(in Input) model.BackendCall {
			// The endpoint takes a list of definitions.
			return model.BackendCall{Method: http.MethodPost, Path: "/metadata/taskdefs", Body: []any{in.Value("definition")}}
		},
		confirm: func(Input, any) string {
			return "Task definition created/updated successfully."
		},
	},
	GetEventHandlers: {
		routes: []Route{{http.MethodGet, "/event"}},
		call: func(in Input) model.BackendCall {
			q := url.Values{}
			in.setQuery(q, "event", "event")
			in.setQuery(q, "activeOnly", "activeOnly")
			return model.BackendCall{Method: http.MethodGet, Path: "/event", Query: q}
		},
	},
}

// expand replaces each {param} placeholder with the escaped input value.
func expand(tmpl string, in Input) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		b.WriteString(tmpl[:open])
		b.WriteString(url.PathEscape(in.Text(tmpl[open+1 : open+end])))
		tmpl = tmpl[open+end+1:]
	}
}

// placeholders returns the parameter names referenced by a path template.
func placeholders(tmpl string) []string {
	var names []string
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			return names
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			return names
		}
		names = append(names, tmpl[open+1:open+end])
		tmpl = tmpl[open+end+1:]
	}
}

func scalarText(body any) string {
	switch v := body.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(fmt.Sprint(body))
}
