package plan

import "time"

// TriggerType categorizes the real-world condition that invalidated the plan.
type TriggerType string

const (
	TriggerDocumentExpiry     TriggerType = "document_expiry"
	TriggerSALDelay           TriggerType = "sal_delay"
	TriggerVendorDisqualified TriggerType = "vendor_disqualified"
	TriggerAwardDelay         TriggerType = "award_delay"
	TriggerManual             TriggerType = "manual"
)

// Severity ranks how urgently a trigger needs a re-plan.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// RequiresConfirmation reports whether triggers of this severity must go
// through an explicit human confirm step. Only low severity may skip it.
func (s Severity) RequiresConfirmation() bool {
	return s != SeverityLow
}

// TriggerDetail carries the type-specific payload of a trigger.
// Only the fields relevant to the trigger's type are set.
type TriggerDetail struct {
	DocumentName      string `json:"document_name,omitempty"`
	DaysUntilExpiry   int    `json:"days_until_expiry,omitempty"`
	VendorID          string `json:"vendor_id,omitempty"`
	ProgressGapPoints int    `json:"progress_gap_points,omitempty"`
	DaysOverdue       int    `json:"days_overdue,omitempty"`
	RFPRef            string `json:"rfp_ref,omitempty"`
}

// Trigger is a detected condition that may invalidate the current
// timeline. Triggers are immutable once created; they either produce
// exactly one re-plan proposal or are dismissed.
type Trigger struct {
	ID             string        `json:"id"`
	ProjectID      string        `json:"project_id"`
	TimelineID     string        `json:"timeline_id"`
	Type           TriggerType   `json:"type"`
	Severity       Severity      `json:"severity"`
	Cause          string        `json:"cause"`
	Detail         TriggerDetail `json:"detail"`
	DetectedAt     time.Time     `json:"detected_at"`
	RelatedTaskIDs []TaskID      `json:"related_task_ids"`

	// DedupeKey is the deterministic identity of the condition
	// (type + related tasks + cause). Re-scanning unchanged facts yields
	// the same key; the store uses it to avoid duplicate active triggers.
	DedupeKey string `json:"dedupe_key"`
}
