package catalog

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitabwire/conductor-mcp/model"
)

const workflowID = "a1b2c3d4-e5f6-7890-abcd-ef1234567890"

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int(operationCount), c.Len())
	assert.Len(t, c.Checksum(), 64)

	names := c.Names()
	seen := make(map[string]bool)
	for i, spec := range c.Describe() {
		assert.Equal(t, names[i], spec.Name)
		assert.False(t, seen[spec.Name], "duplicate %s", spec.Name)
		seen[spec.Name] = true
	}
	for id := OperationID(0); id < operationCount; id++ {
		op, ok := c.Lookup(id.String())
		require.True(t, ok, "missing %s", id)
		assert.Equal(t, id, op.ID)
		assert.NotEmpty(t, op.Routes())
	}
}

func TestLookup_unknown(t *testing.T) {
	c := MustLoad()
	_, ok := c.Lookup("drop_database")
	assert.False(t, ok)
}

func TestDescribe_returnsCopy(t *testing.T) {
	c := MustLoad()
	specs := c.Describe()
	specs[0].Name = "mutated"
	specs[0].Params[0].Name = "mutated"

	again := c.Describe()
	assert.Equal(t, "list_workflows", again[0].Name)
	assert.Equal(t, "workflowName", again[0].Params[0].Name)
}

func TestOperation_Mutation(t *testing.T) {
	c := MustLoad()
	for name, want := range map[string]bool{
		"start_workflow":         true,
		"terminate_workflow":     true,
		"update_task_status":     true,
		"create_task_definition": true,
		"get_workflow_status":    false,
		"search_workflows":       false,
	} {
		op, _ := c.Lookup(name)
		assert.Equal(t, want, op.Mutation(), name)
	}
}

func TestOperation_Bind(t *testing.T) {
	c := MustLoad()

	tests := []struct {
		name      string
		operation string
		args      map[string]any
		method    string
		path      string
		query     map[string]string
	}{
		{
			name:      "list defaults pagination",
			operation: "list_workflows",
			args:      map[string]any{"status": "RUNNING"},
			method:    http.MethodGet,
			path:      "/workflow/search",
			query:     map[string]string{"status": "RUNNING", "start": "0", "size": "100"},
		},
		{
			name:      "list maps workflowName to workflowType",
			operation: "list_workflows",
			args:      map[string]any{"workflowName": "order_flow", "freeText": ""},
			method:    http.MethodGet,
			path:      "/workflow/search",
			query:     map[string]string{"workflowType": "order_flow", "start": "0", "size": "100"},
		},
		{
			name:      "search size overrides only size",
			operation: "search_workflows",
			args:      map[string]any{"query": "status=FAILED", "size": float64(10)},
			method:    http.MethodGet,
			path:      "/workflow/search-v2",
			query:     map[string]string{"query": "status=FAILED", "start": "0", "size": "10"},
		},
		{
			name:      "status includes tasks by default",
			operation: "get_workflow_status",
			args:      map[string]any{"workflowId": workflowID},
			method:    http.MethodGet,
			path:      "/workflow/" + workflowID,
			query:     map[string]string{"includeTasks": "true"},
		},
		{
			name:      "status without tasks",
			operation: "get_workflow_status",
			args:      map[string]any{"workflowId": workflowID, "includeTaskDetails": false},
			method:    http.MethodGet,
			path:      "/workflow/" + workflowID,
			query:     map[string]string{},
		},
		{
			name:      "terminate default reason",
			operation: "terminate_workflow",
			args:      map[string]any{"workflowId": workflowID},
			method:    http.MethodDelete,
			path:      "/workflow/" + workflowID,
			query:     map[string]string{"reason": "Terminated via MCP"},
		},
		{
			name:      "restart renames flag",
			operation: "restart_workflow",
			args:      map[string]any{"workflowId": workflowID, "useLatestDefinition": true},
			method:    http.MethodPost,
			path:      "/workflow/" + workflowID + "/restart",
			query:     map[string]string{"useLatestDefinitions": "true"},
		},
		{
			name:      "definition by version",
			operation: "get_workflow_definition",
			args:      map[string]any{"workflowName": "order_flow", "version": float64(3)},
			method:    http.MethodGet,
			path:      "/metadata/workflow/order_flow/3",
			query:     map[string]string{},
		},
		{
			name:      "definition latest",
			operation: "get_workflow_definition",
			args:      map[string]any{"workflowName": "order_flow"},
			method:    http.MethodGet,
			path:      "/metadata/workflow/order_flow",
			query:     map[string]string{},
		},
		{
			name:      "running names are escaped",
			operation: "list_running_workflows",
			args:      map[string]any{"workflowName": "order flow/v2"},
			method:    http.MethodGet,
			path:      "/workflow/running/order%20flow%2Fv2",
			query:     map[string]string{},
		},
		{
			name:      "event handlers active only by default",
			operation: "get_event_handlers",
			args:      nil,
			method:    http.MethodGet,
			path:      "/event",
			query:     map[string]string{"activeOnly": "true"},
		},
		{
			name:      "task logs",
			operation: "get_task_logs",
			args:      map[string]any{"taskId": workflowID},
			method:    http.MethodGet,
			path:      "/tasks/" + workflowID + "/log",
			query:     map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := c.Lookup(tt.operation)
			require.True(t, ok)

			call := op.Bind(NewInput(op.Spec, tt.args))
			assert.Equal(t, tt.operation, call.Operation)
			assert.Equal(t, tt.method, call.Method)
			assert.Equal(t, tt.path, call.Path)

			got := make(map[string]string)
			for k := range call.Query {
				got[k] = call.Query.Get(k)
			}
			assert.Equal(t, tt.query, got)
		})
	}
}

func TestOperation_Bind_bodies(t *testing.T) {
	c := MustLoad()

	op, _ := c.Lookup("start_workflow")
	call := op.Bind(NewInput(op.Spec, map[string]any{"workflowName": "order_flow", "correlationId": "c-1"}))
	body, ok := call.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "order_flow", body["name"])
	assert.Equal(t, map[string]any{}, body["input"])
	assert.Equal(t, float64(0), body["priority"])
	assert.Equal(t, "c-1", body["correlationId"])
	assert.NotContains(t, body, "version")

	op, _ = c.Lookup("create_task_definition")
	def := map[string]any{"name": "charge_card"}
	call = op.Bind(NewInput(op.Spec, map[string]any{"definition": def}))
	assert.Equal(t, []any{def}, call.Body)

	op, _ = c.Lookup("update_task_status")
	call = op.Bind(NewInput(op.Spec, map[string]any{
		"taskId":             workflowID,
		"workflowInstanceId": workflowID,
		"status":             "COMPLETED",
	}))
	body = call.Body.(map[string]any)
	assert.Equal(t, "COMPLETED", body["status"])
	assert.Equal(t, map[string]any{}, body["outputData"])
	assert.Equal(t, []any{}, body["logs"])
}

func TestNewInput_defaultsAreNotShared(t *testing.T) {
	c := MustLoad()
	op, _ := c.Lookup("start_workflow")

	first := NewInput(op.Spec, map[string]any{"workflowName": "a"})
	first.Value("input").(map[string]any)["leak"] = true

	second := NewInput(op.Spec, map[string]any{"workflowName": "b"})
	assert.Empty(t, second.Value("input"))
}

func TestOperation_Result_confirmations(t *testing.T) {
	c := MustLoad()

	tests := []struct {
		operation string
		args      map[string]any
		body      any
		want      string
	}{
		{"start_workflow", map[string]any{"workflowName": "x"}, "new-id", "Workflow started successfully. Workflow ID: new-id"},
		{"pause_workflow", map[string]any{"workflowId": workflowID}, nil, "Workflow " + workflowID + " paused successfully."},
		{"resume_workflow", map[string]any{"workflowId": workflowID}, nil, "Workflow " + workflowID + " resumed successfully."},
		{"terminate_workflow", map[string]any{"workflowId": workflowID, "reason": "stuck"}, nil, "Workflow " + workflowID + " terminated successfully. Reason: stuck"},
		{"retry_workflow", map[string]any{"workflowId": workflowID}, nil, "Workflow " + workflowID + " retry initiated successfully."},
		{"restart_workflow", map[string]any{"workflowId": workflowID}, nil, "Workflow restarted successfully. New Workflow ID: " + workflowID},
		{"update_task_status", map[string]any{"taskId": "t", "workflowInstanceId": "w", "status": "FAILED"}, nil, "Task t status updated to FAILED successfully."},
		{"create_workflow_definition", map[string]any{"definition": map[string]any{}}, nil, "Workflow definition created/updated successfully."},
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			op, _ := c.Lookup(tt.operation)
			env := op.Result(NewInput(op.Spec, tt.args), tt.body, time.Now())
			assert.True(t, env.Succeeded)
			assert.Equal(t, tt.want, env.Text(tt.operation))
		})
	}
}

func TestOperation_Result_workflowSummary(t *testing.T) {
	c := MustLoad()
	op, _ := c.Lookup("get_workflow_status")

	body := map[string]any{
		"workflowName": "order_flow",
		"workflowId":   workflowID,
		"status":       "FAILED",
		"startTime":    float64(1_700_000_000_000),
		"endTime":      float64(1_700_000_090_500),
		"tasks": []any{
			map[string]any{"referenceTaskName": "reserve", "taskType": "SIMPLE", "status": "COMPLETED"},
			map[string]any{"referenceTaskName": "charge", "taskType": "HTTP", "status": "FAILED", "reasonForIncompletion": "502 from gateway"},
		},
	}

	env := op.Result(NewInput(op.Spec, map[string]any{"workflowId": workflowID}), body, time.Now())
	require.True(t, env.Succeeded)
	assert.Equal(t, body, env.Payload)
	assert.Contains(t, env.Summary, "Workflow: order_flow ("+workflowID+")")
	assert.Contains(t, env.Summary, "Status: FAILED")
	assert.Contains(t, env.Summary, "Duration: 1m30.5s")
	assert.Contains(t, env.Summary, "charge (HTTP): 502 from gateway")
	assert.NotContains(t, env.Summary, "reserve")

	text := env.Text("get_workflow_status")
	assert.True(t, strings.HasPrefix(text, env.Summary+"\n\n"))
	assert.Contains(t, text, `"workflowName": "order_flow"`)
}

func TestOperation_Result_runningUsesClock(t *testing.T) {
	c := MustLoad()
	op, _ := c.Lookup("get_workflow_status")

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	body := map[string]any{"workflowId": workflowID, "status": "RUNNING", "startTime": float64(start.UnixMilli())}

	env := op.Result(NewInput(op.Spec, nil), body, start.Add(42*time.Second))
	assert.Contains(t, env.Summary, "Duration: 42s")
	assert.NotContains(t, env.Summary, "Failed tasks")
}

func TestOperation_Result_plainRead(t *testing.T) {
	c := MustLoad()
	op, _ := c.Lookup("list_workflows")

	body := map[string]any{"results": []any{}}
	env := op.Result(NewInput(op.Spec, nil), body, time.Now())
	assert.Empty(t, env.Summary)
	assert.Contains(t, env.Text("list_workflows"), `"results": []`)
}

func TestOperation_ValidateSchema(t *testing.T) {
	c := MustLoad()
	op, _ := c.Lookup("update_task_status")

	assert.NoError(t, op.ValidateSchema(map[string]any{
		"taskId":             workflowID,
		"workflowInstanceId": workflowID,
		"status":             "COMPLETED",
	}))
	assert.Error(t, op.ValidateSchema(map[string]any{
		"taskId":             "not-a-uuid",
		"workflowInstanceId": workflowID,
		"status":             "COMPLETED",
	}))

	schema := op.InputSchema()
	assert.Equal(t, "object", schema["type"])
	assert.ElementsMatch(t, []any{"taskId", "workflowInstanceId", "status"}, schema["required"])
}

func TestParse_rejectsBrokenDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unbound operation",
			doc:  "operations:\n  - name: drop_database\n    description: no\n",
			want: "has no backend binding",
		},
		{
			name: "missing operations",
			doc:  "operations: []\n",
			want: "is bound but not declared",
		},
		{
			name: "unknown field",
			doc:  "operations:\n  - name: list_workflows\n    colour: red\n",
			want: "parsing operations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateParams(t *testing.T) {
	one := 1.0
	zero := 0.0
	spec := model.OperationSpec{
		Name: "x",
		Params: []model.ParamSpec{
			{Name: "id", Type: model.ParamNumber, Identifier: model.IdentifierExecution},
			{Name: "mode", Type: model.ParamString, AllowedValues: []string{"A"}, Default: "B"},
			{Name: "req", Type: model.ParamString, Required: true, Default: "v"},
			{Name: "n", Type: model.ParamNumber, Minimum: &one, Maximum: &zero},
			{Name: "bad", Type: "date"},
		},
	}

	codes := make(map[string]bool)
	for _, e := range validateParams("operations[0]", spec) {
		codes[e.Code] = true
	}
	for _, want := range []string{"INVALID_TYPE", "INVALID_ENUM", "CONFLICT", "INVALID_RANGE"} {
		assert.True(t, codes[want], "expected %s", want)
	}
}

func TestVerifyRoutes(t *testing.T) {
	c := MustLoad()

	require.NoError(t, c.VerifyRoutes(context.Background(), "testdata/conductor-openapi.yaml", "/api"))

	err := c.VerifyRoutes(context.Background(), "testdata/conductor-openapi-partial.yaml", "/api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list_running_workflows")
	assert.Contains(t, err.Error(), "get_event_handlers")

	err = c.VerifyRoutes(context.Background(), "testdata/conductor-openapi.yaml", "/v2")
	require.Error(t, err)
}

func TestExpandAndPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, placeholders("/x/{a}/y/{b}"))
	assert.Nil(t, placeholders("/x"))

	in := Input{values: map[string]any{"a": "1 2", "b": float64(7)}}
	assert.Equal(t, "/x/1%202/y/7", expand("/x/{a}/y/{b}", in))
}
