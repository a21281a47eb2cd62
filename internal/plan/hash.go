package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTrigger = "replan/trigger/v1"
	DomainTasks   = "replan/tasks/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TriggerDedupeKey computes the deterministic identity of a trigger
// condition: type + related task IDs + cause. Re-scanning identical facts
// against an unchanged timeline yields the same key, which is how the
// store avoids duplicate active triggers across scans.
//
// DetectedAt and the trigger's own ID are intentionally excluded: the key
// identifies the condition, not the observation.
func TriggerDedupeKey(typ TriggerType, related []TaskID, cause string) (string, error) {
	ids := make([]string, len(related))
	for i, id := range related {
		ids[i] = string(id)
	}
	sort.Strings(ids)

	tasks := make([]any, len(ids))
	for i, id := range ids {
		tasks[i] = id
	}

	obj := map[string]any{
		"type":  string(typ),
		"tasks": tasks,
		"cause": cause,
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal trigger identity: %w", err)
	}
	return hashWithDomain(DomainTrigger, data), nil
}

// TasksFingerprint computes a deterministic hash over a task set's
// schedule (IDs, durations, start/finish days). Two task sets with the
// same schedule fingerprint identically regardless of map order.
func TasksFingerprint(tasks map[TaskID]*Task) (string, error) {
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	rows := make([]any, 0, len(ids))
	for _, id := range ids {
		t := tasks[TaskID(id)]
		rows = append(rows, map[string]any{
			"id":       id,
			"duration": t.DurationDays,
			"start":    t.StartDay,
			"finish":   t.FinishDay,
		})
	}
	data, err := MarshalCanonical(map[string]any{"tasks": rows})
	if err != nil {
		return "", fmt.Errorf("marshal task fingerprint: %w", err)
	}
	return hashWithDomain(DomainTasks, data), nil
}
