package testutil

import (
	"time"

	"github.com/roach88/replan/internal/plan"
)

// Anchor is the fixed project start date used across test scenarios.
var Anchor = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// ContractFact builds a contract fact with an explicit duration.
func ContractFact(id, vendor string, durationDays int, after ...string) plan.Fact {
	return plan.Fact{
		ID:    id,
		Kind:  plan.FactContract,
		After: after,
		Contract: &plan.ContractFact{
			VendorID:     vendor,
			DurationDays: durationDays,
		},
	}
}

// PermitFact builds a permit fact with an authority lead time.
func PermitFact(id, authority string, leadDays int, after ...string) plan.Fact {
	return plan.Fact{
		ID:    id,
		Kind:  plan.FactPermit,
		After: after,
		Permit: &plan.PermitFact{
			Authority:    authority,
			LeadTimeDays: leadDays,
		},
	}
}

// MilestoneFact builds a milestone fact.
func MilestoneFact(id, name string, durationDays int, after ...string) plan.Fact {
	return plan.Fact{
		ID:    id,
		Kind:  plan.FactMilestone,
		After: after,
		Milestone: &plan.MilestoneFact{
			Name:         name,
			DurationDays: durationDays,
		},
	}
}

// SALFact builds a progress report against another fact's task.
func SALFact(id, ref string, progress int, reportedAt time.Time) plan.Fact {
	return plan.Fact{
		ID:   id,
		Kind: plan.FactSAL,
		SAL: &plan.SALFact{
			FactRef:         ref,
			ProgressPercent: progress,
			ReportedAt:      reportedAt,
		},
	}
}

// DocumentFact builds a compliance document for a vendor.
func DocumentFact(id, name, vendor string, expiresOn time.Time, appliesTo ...string) plan.Fact {
	return plan.Fact{
		ID:   id,
		Kind: plan.FactDocument,
		Document: &plan.DocumentFact{
			Name:      name,
			VendorID:  vendor,
			ExpiresOn: expiresOn,
			AppliesTo: appliesTo,
		},
	}
}

// VendorFact builds a vendor compliance record.
func VendorFact(id, vendor string, compliant bool, reason string) plan.Fact {
	return plan.Fact{
		ID:   id,
		Kind: plan.FactVendor,
		Vendor: &plan.VendorFact{
			VendorID:  vendor,
			Compliant: compliant,
			Reason:    reason,
		},
	}
}

// AwardFact builds an expected award outcome.
func AwardFact(id, rfp, vendor string, awarded bool, expectedBy time.Time) plan.Fact {
	return plan.Fact{
		ID:   id,
		Kind: plan.FactAward,
		Award: &plan.AwardFact{
			RFPRef:     rfp,
			VendorID:   vendor,
			Awarded:    awarded,
			ExpectedBy: expectedBy,
		},
	}
}
