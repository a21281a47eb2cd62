// Package facts loads project fact files.
//
// A fact file is the YAML form of everything the engine needs to know
// about one project: its anchor date, the full fact set, and optional
// per-project tuning overrides. Loading is strict: unknown kinds,
// duplicate IDs, and dangling references are rejected at the boundary
// so the core packages can assume well-formed input.
package facts

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/replan/internal/plan"
	"github.com/roach88/replan/internal/replan"
	"github.com/roach88/replan/internal/trigger"
)

// Config tunes trigger detection and re-planning for one project.
// Zero values fall back to the engine defaults.
type Config struct {
	ExpiryHorizonDays  int  `yaml:"expiry_horizon_days,omitempty"`
	SALThresholdPoints int  `yaml:"sal_threshold_points,omitempty"`
	RecoveryLeadDays   int  `yaml:"recovery_lead_days,omitempty"`
	RenewalLeadDays    int  `yaml:"renewal_lead_days,omitempty"`
	AwardGraceDays     int  `yaml:"award_grace_days,omitempty"`
	AutoApply          bool `yaml:"auto_apply,omitempty"`
	ScanParallelism    int  `yaml:"scan_parallelism,omitempty"`
}

// Trigger returns the detector configuration slice of c.
func (c Config) Trigger() trigger.Config {
	return trigger.Config{
		ExpiryHorizonDays:  c.ExpiryHorizonDays,
		SALThresholdPoints: c.SALThresholdPoints,
	}
}

// RePlan returns the re-plan engine configuration slice of c.
func (c Config) RePlan() replan.Config {
	return replan.Config{
		RecoveryLeadDays: c.RecoveryLeadDays,
		RenewalLeadDays:  c.RenewalLeadDays,
		AwardGraceDays:   c.AwardGraceDays,
	}
}

// File is one project's fact file.
type File struct {
	Project string      `yaml:"project"`
	Anchor  time.Time   `yaml:"anchor"`
	Facts   []plan.Fact `yaml:"facts"`
	Config  Config      `yaml:"config,omitempty"`
}

// Load reads and validates a fact file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load facts %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a fact file.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse facts: %w", err)
	}
	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks structural well-formedness: project and anchor set,
// fact IDs unique, every kind known with its payload present, and every
// cross-fact reference (after, sal ref, document applies_to) resolving
// within the file.
func Validate(f *File) error {
	if f.Project == "" {
		return fmt.Errorf("facts: missing project id")
	}
	if f.Anchor.IsZero() {
		return fmt.Errorf("facts: project %s: missing anchor date", f.Project)
	}

	seen := make(map[string]bool, len(f.Facts))
	for i := range f.Facts {
		fact := &f.Facts[i]
		if fact.ID == "" {
			return fmt.Errorf("facts: fact %d: missing id", i)
		}
		if seen[fact.ID] {
			return fmt.Errorf("facts: duplicate fact id %q", fact.ID)
		}
		seen[fact.ID] = true

		if !fact.Kind.Known() {
			return &plan.Error{
				Code:      plan.CodeInvalidFactKind,
				Message:   fmt.Sprintf("fact %q has unknown kind %q", fact.ID, fact.Kind),
				ProjectID: f.Project,
			}
		}
		if err := validatePayload(fact); err != nil {
			return err
		}
	}

	for i := range f.Facts {
		fact := &f.Facts[i]
		for _, ref := range fact.After {
			if !seen[ref] {
				return fmt.Errorf("facts: fact %q: after references unknown fact %q", fact.ID, ref)
			}
		}
		if fact.Kind == plan.FactSAL && !seen[fact.SAL.FactRef] {
			return fmt.Errorf("facts: sal %q references unknown fact %q", fact.ID, fact.SAL.FactRef)
		}
		if fact.Kind == plan.FactDocument {
			for _, ref := range fact.Document.AppliesTo {
				if !seen[ref] {
					return fmt.Errorf("facts: document %q applies_to unknown fact %q", fact.ID, ref)
				}
			}
		}
	}
	return nil
}

func validatePayload(fact *plan.Fact) error {
	var ok bool
	switch fact.Kind {
	case plan.FactContract:
		ok = fact.Contract != nil
	case plan.FactPermit:
		ok = fact.Permit != nil
	case plan.FactMilestone:
		ok = fact.Milestone != nil
	case plan.FactAward:
		ok = fact.Award != nil
	case plan.FactSAL:
		ok = fact.SAL != nil
		if ok && (fact.SAL.ProgressPercent < 0 || fact.SAL.ProgressPercent > 100) {
			return fmt.Errorf("facts: sal %q: progress %d out of range", fact.ID, fact.SAL.ProgressPercent)
		}
	case plan.FactDocument:
		ok = fact.Document != nil
		if ok && fact.Document.ExpiresOn.IsZero() {
			return fmt.Errorf("facts: document %q: missing expires_on", fact.ID)
		}
	case plan.FactVendor:
		ok = fact.Vendor != nil
	}
	if !ok {
		return fmt.Errorf("facts: fact %q: missing %s payload", fact.ID, fact.Kind)
	}
	return nil
}

// ProjectForFile maps a fact file path to its project id by convention:
// the base name without extension.
func ProjectForFile(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
