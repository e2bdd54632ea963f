package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Workflow states whose failed tasks are worth listing.
var failedWorkflowStates = map[string]bool{
	"FAILED":     true,
	"TIMED_OUT":  true,
	"TERMINATED": true,
}

var failedTaskStates = map[string]bool{
	"FAILED":                     true,
	"FAILED_WITH_TERMINAL_ERROR": true,
	"TIMED_OUT":                  true,
	"CANCELED":                   true,
}

func summarizeWorkflow(body any, now time.Time) string {
	wf, ok := body.(map[string]any)
	if !ok {
		return ""
	}

	var lines []string
	name, _ := wf["workflowName"].(string)
	if name == "" {
		name, _ = wf["workflowType"].(string)
	}
	id, _ := wf["workflowId"].(string)
	switch {
	case name != "" && id != "":
		lines = append(lines, fmt.Sprintf("Workflow: %s (%s)", name, id))
	case id != "":
		lines = append(lines, "Workflow: "+id)
	}

	status, _ := wf["status"].(string)
	if status != "" {
		lines = append(lines, "Status: "+status)
	}
	if d, ok := elapsed(wf, now); ok {
		lines = append(lines, "Duration: "+d.String())
	}

	if failedWorkflowStates[status] {
		if reason, _ := wf["reasonForIncompletion"].(string); reason != "" {
			lines = append(lines, "Reason: "+reason)
		}
		tasks, _ := wf["tasks"].([]any)
		var failed []string
		for _, t := range tasks {
			task, ok := t.(map[string]any)
			if !ok {
				continue
			}
			ts, _ := task["status"].(string)
			if !failedTaskStates[ts] {
				continue
			}
			failed = append(failed, "  - "+describeTask(task))
		}
		if len(failed) > 0 {
			lines = append(lines, "Failed tasks:")
			lines = append(lines, failed...)
		}
	}

	return strings.Join(lines, "\n")
}

func summarizeTask(body any, now time.Time) string {
	task, ok := body.(map[string]any)
	if !ok {
		return ""
	}

	var lines []string
	if head := describeTask(task); head != "" {
		lines = append(lines, "Task: "+head)
	}
	if status, _ := task["status"].(string); status != "" {
		lines = append(lines, "Status: "+status)
	}
	if d, ok := elapsed(task, now); ok {
		lines = append(lines, "Duration: "+d.String())
	}
	return strings.Join(lines, "\n")
}

// describeTask renders "ref (TYPE): reason" with whatever parts exist.
func describeTask(task map[string]any) string {
	ref, _ := task["referenceTaskName"].(string)
	if ref == "" {
		ref, _ = task["taskDefName"].(string)
	}
	typ, _ := task["taskType"].(string)
	reason, _ := task["reasonForIncompletion"].(string)

	s := ref
	if typ != "" {
		if s != "" {
			s += " "
		}
		s += "(" + typ + ")"
	}
	if reason != "" {
		if s != "" {
			s += ": "
		}
		s += reason
	}
	return s
}

// elapsed computes the run time from epoch-millisecond start and end
// fields. A missing end time means the execution is still running.
func elapsed(obj map[string]any, now time.Time) (time.Duration, bool) {
	start, ok := millis(obj["startTime"])
	if !ok || start <= 0 {
		return 0, false
	}
	end, ok := millis(obj["endTime"])
	if !ok || end <= 0 {
		end = now.UnixMilli()
	}
	if end < start {
		return 0, false
	}
	return (time.Duration(end-start) * time.Millisecond).Round(time.Millisecond), true
}

func millis(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
