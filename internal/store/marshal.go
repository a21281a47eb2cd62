package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/replan/internal/plan"
)

// Column serialization helpers. Task sets and ID lists are stored as
// JSON; encoding/json sorts map keys, so identical task sets serialize
// to identical bytes. Dates are stored as RFC 3339 strings.

func marshalTasks(tasks map[plan.TaskID]*plan.Task) (string, error) {
	b, err := json.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("marshal tasks: %w", err)
	}
	return string(b), nil
}

func unmarshalTasks(data string) (map[plan.TaskID]*plan.Task, error) {
	var tasks map[plan.TaskID]*plan.Task
	if err := json.Unmarshal([]byte(data), &tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}
	if tasks == nil {
		tasks = make(map[plan.TaskID]*plan.Task)
	}
	return tasks, nil
}

func marshalTaskIDs(ids []plan.TaskID) (string, error) {
	if ids == nil {
		ids = []plan.TaskID{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal task ids: %w", err)
	}
	return string(b), nil
}

func unmarshalTaskIDs(data string) ([]plan.TaskID, error) {
	var ids []plan.TaskID
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal task ids: %w", err)
	}
	return ids, nil
}

func marshalDetail(d plan.TriggerDetail) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal trigger detail: %w", err)
	}
	return string(b), nil
}

func unmarshalDetail(data string) (plan.TriggerDetail, error) {
	var d plan.TriggerDetail
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return d, fmt.Errorf("unmarshal trigger detail: %w", err)
	}
	return d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
