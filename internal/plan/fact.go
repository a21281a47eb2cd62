package plan

import "time"

// FactKind tags the payload variant of a Fact.
//
// Facts are the engine's only input: typed records produced by the
// surrounding systems (contract registry, SAL reporting, document vault,
// vendor compliance, RFP/award tracking). The engine never fetches them
// itself - callers pass already-loaded fact sets.
type FactKind string

const (
	// FactContract is an awarded works contract. Generates a task.
	FactContract FactKind = "contract"

	// FactPermit is a permitting/authorization step. Generates a task.
	FactPermit FactKind = "permit"

	// FactMilestone is a planned intermediate deliverable. Generates a task.
	FactMilestone FactKind = "milestone"

	// FactAward is an expected RFP award outcome. Generates a task; flips
	// to overdue when the award has not landed by the task's planned finish.
	FactAward FactKind = "award"

	// FactSAL is a periodic progress record (stato avanzamento lavori).
	// Does not generate a task; updates progress on the task generated
	// from the fact it references.
	FactSAL FactKind = "sal"

	// FactDocument is a compliance document with an expiry date.
	// Does not generate a task; attaches to tasks by vendor or fact ref.
	FactDocument FactKind = "document"

	// FactVendor is a vendor compliance status record.
	// Does not generate a task; disqualification blocks the vendor's tasks.
	FactVendor FactKind = "vendor"
)

// taskKinds are the fact kinds that map to task templates.
var taskKinds = map[FactKind]bool{
	FactContract:  true,
	FactPermit:    true,
	FactMilestone: true,
	FactAward:     true,
}

// GeneratesTask reports whether facts of this kind map to task templates.
func (k FactKind) GeneratesTask() bool { return taskKinds[k] }

// Known reports whether the kind is one of the recognized variants.
func (k FactKind) Known() bool {
	switch k {
	case FactContract, FactPermit, FactMilestone, FactAward, FactSAL, FactDocument, FactVendor:
		return true
	}
	return false
}

// Fact is a tagged union: exactly one payload pointer matching Kind is
// non-nil. Unknown kinds are rejected explicitly (ErrInvalidFactKind in
// strict mode), never coerced.
type Fact struct {
	ID   string   `json:"id" yaml:"id"`
	Kind FactKind `json:"kind" yaml:"kind"`

	// After lists fact IDs this fact's work follows. The WBS generator
	// turns these ordering hints into finish-to-start dependencies
	// between the corresponding tasks.
	After []string `json:"after,omitempty" yaml:"after,omitempty"`

	Contract  *ContractFact  `json:"contract,omitempty" yaml:"contract,omitempty"`
	Permit    *PermitFact    `json:"permit,omitempty" yaml:"permit,omitempty"`
	Milestone *MilestoneFact `json:"milestone,omitempty" yaml:"milestone,omitempty"`
	Award     *AwardFact     `json:"award,omitempty" yaml:"award,omitempty"`
	SAL       *SALFact       `json:"sal,omitempty" yaml:"sal,omitempty"`
	Document  *DocumentFact  `json:"document,omitempty" yaml:"document,omitempty"`
	Vendor    *VendorFact    `json:"vendor,omitempty" yaml:"vendor,omitempty"`
}

// VendorID returns the vendor tied to this fact, if any.
func (f *Fact) VendorID() string {
	switch f.Kind {
	case FactContract:
		if f.Contract != nil {
			return f.Contract.VendorID
		}
	case FactAward:
		if f.Award != nil {
			return f.Award.VendorID
		}
	case FactDocument:
		if f.Document != nil {
			return f.Document.VendorID
		}
	case FactVendor:
		if f.Vendor != nil {
			return f.Vendor.VendorID
		}
	}
	return ""
}

// ContractFact describes an awarded works contract.
type ContractFact struct {
	VendorID     string `json:"vendor_id" yaml:"vendor"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	DurationDays int    `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`
}

// PermitFact describes a permitting step with an authority lead time.
type PermitFact struct {
	Authority    string `json:"authority" yaml:"authority"`
	LeadTimeDays int    `json:"lead_time_days,omitempty" yaml:"lead_days,omitempty"`
}

// MilestoneFact describes a planned deliverable.
type MilestoneFact struct {
	Name         string `json:"name" yaml:"name"`
	DurationDays int    `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`
}

// AwardFact describes an expected RFP/contract award outcome.
type AwardFact struct {
	RFPRef     string    `json:"rfp_ref" yaml:"rfp"`
	VendorID   string    `json:"vendor_id,omitempty" yaml:"vendor,omitempty"`
	Awarded    bool      `json:"awarded" yaml:"awarded"`
	ExpectedBy time.Time `json:"expected_by,omitempty" yaml:"expected_by,omitempty"`
}

// SALFact is a progress record against the task generated from FactRef.
type SALFact struct {
	FactRef         string    `json:"fact_ref" yaml:"ref"`
	ProgressPercent int       `json:"progress_percent" yaml:"progress"`
	ReportedAt      time.Time `json:"reported_at,omitempty" yaml:"reported_at,omitempty"`
}

// DocumentFact is a compliance document with an expiry date.
// It attaches to tasks either by explicit fact references (AppliesTo)
// or by vendor match.
type DocumentFact struct {
	Name      string    `json:"name" yaml:"name"`
	VendorID  string    `json:"vendor_id,omitempty" yaml:"vendor,omitempty"`
	ExpiresOn time.Time `json:"expires_on" yaml:"expires_on"`
	AppliesTo []string  `json:"applies_to,omitempty" yaml:"applies_to,omitempty"`
}

// VendorFact is a vendor compliance status record.
type VendorFact struct {
	VendorID  string `json:"vendor_id" yaml:"vendor"`
	Compliant bool   `json:"compliant" yaml:"compliant"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
}
