// Package trigger detects real-world conditions that invalidate the
// current timeline.
//
// Scan is a pure function of (timeline, facts, now): re-scanning
// identical inputs yields the same trigger set, identified by the same
// dedupe keys. The detector does not deduplicate across scans - that is
// the store's job, keyed on plan.TriggerDedupeKey.
package trigger

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/replan/internal/plan"
)

// Config holds detection thresholds.
type Config struct {
	// ExpiryHorizonDays is how far ahead document expiry is flagged.
	ExpiryHorizonDays int `yaml:"expiry_horizon_days"`

	// SALThresholdPoints is the progress-gap threshold (percentage
	// points behind the time-proportional expectation) above which a
	// SAL delay fires.
	SALThresholdPoints int `yaml:"sal_threshold_points"`
}

// Defaults per the detection rules.
const (
	DefaultExpiryHorizonDays  = 14
	DefaultSALThresholdPoints = 15
)

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		ExpiryHorizonDays:  DefaultExpiryHorizonDays,
		SALThresholdPoints: DefaultSALThresholdPoints,
	}
}

// normalize fills zero values with defaults.
func (c Config) normalize() Config {
	if c.ExpiryHorizonDays <= 0 {
		c.ExpiryHorizonDays = DefaultExpiryHorizonDays
	}
	if c.SALThresholdPoints <= 0 {
		c.SALThresholdPoints = DefaultSALThresholdPoints
	}
	return c
}

// Detector scans timelines for plan-invalidating conditions.
type Detector struct {
	cfg Config
	ids plan.IDGenerator
	now func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithNow overrides the wall clock. Tests pin it for deterministic
// day-distance arithmetic.
func WithNow(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// New creates a Detector. A nil IDGenerator defaults to UUIDv7.
func New(cfg Config, ids plan.IDGenerator, opts ...Option) *Detector {
	if ids == nil {
		ids = plan.UUIDv7Generator{}
	}
	d := &Detector{
		cfg: cfg.normalize(),
		ids: ids,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Scan evaluates all detection rules against a timeline and its facts.
//
// Rules are independent and order-independent; the result is emitted in
// a fixed rule order (expiry, SAL, vendor, award), each rule iterating
// tasks in ID order, so the trigger sequence is deterministic.
func (d *Detector) Scan(tl *plan.Timeline, facts []plan.Fact) ([]plan.Trigger, error) {
	if tl == nil || len(tl.Tasks) == 0 {
		return nil, nil
	}

	factByID := make(map[string]*plan.Fact, len(facts))
	for i := range facts {
		factByID[facts[i].ID] = &facts[i]
	}
	now := plan.DateOnly(d.now())

	var out []plan.Trigger
	collect := func(triggers []plan.Trigger, err error) error {
		if err != nil {
			return err
		}
		out = append(out, triggers...)
		return nil
	}

	if err := collect(d.scanDocumentExpiry(tl, factByID, now)); err != nil {
		return nil, err
	}
	if err := collect(d.scanSALDelay(tl, now)); err != nil {
		return nil, err
	}
	if err := collect(d.scanVendorDisqualified(tl, facts, factByID)); err != nil {
		return nil, err
	}
	if err := collect(d.scanAwardDelay(tl, facts, now)); err != nil {
		return nil, err
	}
	return out, nil
}

// scanDocumentExpiry flags documents referenced by a task's provenance
// that expire within the horizon. Severity scales with days-to-expiry:
// <=3d critical, <=7d high, <=14d (horizon) medium. Already-expired
// documents are critical.
func (d *Detector) scanDocumentExpiry(tl *plan.Timeline, factByID map[string]*plan.Fact, now time.Time) ([]plan.Trigger, error) {
	// One trigger per document, related to every task referencing it.
	related := make(map[string][]plan.TaskID)
	for _, taskID := range tl.TaskIDs() {
		t := tl.Tasks[taskID]
		for _, factID := range t.SourceFactIDs {
			f := factByID[factID]
			if f == nil || f.Kind != plan.FactDocument || f.Document == nil {
				continue
			}
			related[factID] = append(related[factID], taskID)
		}
	}

	var out []plan.Trigger
	for _, factID := range sortedKeys(related) {
		f := factByID[factID]
		daysUntil := plan.DaysBetween(now, f.Document.ExpiresOn)
		if daysUntil > d.cfg.ExpiryHorizonDays {
			continue
		}

		severity := plan.SeverityMedium
		switch {
		case daysUntil <= 3:
			severity = plan.SeverityCritical
		case daysUntil <= 7:
			severity = plan.SeverityHigh
		}

		cause := fmt.Sprintf("document %q (%s) expiring within horizon", f.Document.Name, factID)
		trg, err := d.build(tl, plan.TriggerDocumentExpiry, severity, cause, related[factID], plan.TriggerDetail{
			DocumentName:    f.Document.Name,
			DaysUntilExpiry: daysUntil,
			VendorID:        f.Document.VendorID,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, trg)
	}
	return out, nil
}

// scanSALDelay compares each in-flight task's recorded progress against
// the time-proportional expectation. Severity scales with the gap:
// > threshold medium, >=25 points high, >=40 points critical.
func (d *Detector) scanSALDelay(tl *plan.Timeline, now time.Time) ([]plan.Trigger, error) {
	today := plan.DaysBetween(tl.AnchorDate, now)

	var out []plan.Trigger
	for _, taskID := range tl.TaskIDs() {
		t := tl.Tasks[taskID]
		if t.DurationDays == 0 || t.Status == plan.TaskCompleted {
			continue
		}
		if today <= t.StartDay {
			continue // not yet due to have started
		}

		expected := (today - t.StartDay) * 100 / t.DurationDays
		if expected > 100 {
			expected = 100
		}
		gap := expected - t.ProgressPercent
		if gap <= d.cfg.SALThresholdPoints {
			continue
		}

		severity := plan.SeverityMedium
		switch {
		case gap >= 40:
			severity = plan.SeverityCritical
		case gap >= 25:
			severity = plan.SeverityHigh
		}

		cause := fmt.Sprintf("task %q behind schedule", t.Name)
		trg, err := d.build(tl, plan.TriggerSALDelay, severity, cause, []plan.TaskID{taskID}, plan.TriggerDetail{
			ProgressGapPoints: gap,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, trg)
	}
	return out, nil
}

// scanVendorDisqualified flags tasks tied to a vendor marked
// non-compliant. Always critical: dependent work is blocked until the
// vendor is replaced.
func (d *Detector) scanVendorDisqualified(tl *plan.Timeline, facts []plan.Fact, factByID map[string]*plan.Fact) ([]plan.Trigger, error) {
	var out []plan.Trigger
	for i := range facts {
		f := &facts[i]
		if f.Kind != plan.FactVendor || f.Vendor == nil || f.Vendor.Compliant {
			continue
		}

		var related []plan.TaskID
		for _, taskID := range tl.TaskIDs() {
			t := tl.Tasks[taskID]
			for _, factID := range t.SourceFactIDs {
				src := factByID[factID]
				if src != nil && src.Kind != plan.FactVendor && src.VendorID() == f.Vendor.VendorID {
					related = append(related, taskID)
					break
				}
			}
		}
		if len(related) == 0 {
			continue
		}

		cause := fmt.Sprintf("vendor %q disqualified: %s", f.Vendor.VendorID, f.Vendor.Reason)
		trg, err := d.build(tl, plan.TriggerVendorDisqualified, plan.SeverityCritical, cause, related, plan.TriggerDetail{
			VendorID: f.Vendor.VendorID,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, trg)
	}
	return out, nil
}

// scanAwardDelay flags expected awards that have not landed by their
// task's planned finish. Severity high.
func (d *Detector) scanAwardDelay(tl *plan.Timeline, facts []plan.Fact, now time.Time) ([]plan.Trigger, error) {
	var out []plan.Trigger
	for i := range facts {
		f := &facts[i]
		if f.Kind != plan.FactAward || f.Award == nil || f.Award.Awarded {
			continue
		}

		taskID := plan.DeriveTaskID(f.ID, string(plan.FactAward))
		t, ok := tl.Tasks[taskID]
		if !ok {
			continue
		}

		finishDate := tl.DayToDate(t.FinishDay)
		daysOverdue := plan.DaysBetween(finishDate, now)
		if daysOverdue <= 0 {
			continue
		}

		cause := fmt.Sprintf("award %q overdue", f.Award.RFPRef)
		trg, err := d.build(tl, plan.TriggerAwardDelay, plan.SeverityHigh, cause, []plan.TaskID{taskID}, plan.TriggerDetail{
			RFPRef:      f.Award.RFPRef,
			VendorID:    f.Award.VendorID,
			DaysOverdue: daysOverdue,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, trg)
	}
	return out, nil
}

// Manual creates an operator-initiated trigger against a timeline.
func (d *Detector) Manual(tl *plan.Timeline, severity plan.Severity, cause string, related []plan.TaskID) (plan.Trigger, error) {
	return d.build(tl, plan.TriggerManual, severity, cause, related, plan.TriggerDetail{})
}

// build assembles a trigger with its deterministic dedupe key.
func (d *Detector) build(tl *plan.Timeline, typ plan.TriggerType, severity plan.Severity, cause string, related []plan.TaskID, detail plan.TriggerDetail) (plan.Trigger, error) {
	key, err := plan.TriggerDedupeKey(typ, related, cause)
	if err != nil {
		return plan.Trigger{}, fmt.Errorf("compute dedupe key: %w", err)
	}
	return plan.Trigger{
		ID:             d.ids.Generate(),
		ProjectID:      tl.ProjectID,
		TimelineID:     tl.ID,
		Type:           typ,
		Severity:       severity,
		Cause:          cause,
		Detail:         detail,
		DetectedAt:     d.now().UTC(),
		RelatedTaskIDs: append([]plan.TaskID(nil), related...),
		DedupeKey:      key,
	}, nil
}

func sortedKeys(m map[string][]plan.TaskID) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
