package strategy

import (
	"errors"
	"fmt"

	"AssetJudge/internal/model"
)

// Check names one of the five Brain Filter checks.
type Check string

const (
	CheckPEG    Check = "peg"
	CheckTrend  Check = "trend"
	CheckGap    Check = "gap"
	CheckRSI    Check = "rsi"
	CheckGrowth Check = "growth"
)

// Passed reports the outcome of c in f.
func (c Check) Passed(f model.FilterResult) (bool, error) {
	switch c {
	case CheckPEG:
		return f.PEGPass, nil
	case CheckTrend:
		return f.TrendPass, nil
	case CheckGap:
		return f.GapPass, nil
	case CheckRSI:
		return f.RSIPass, nil
	case CheckGrowth:
		return f.GrowthPass, nil
	}
	return false, fmt.Errorf("unknown check %q", string(c))
}

// ARule matches when every Require check passes and every Fail check fails.
type ARule struct {
	Name    string  `yaml:"name" json:"name"`
	Require []Check `yaml:"require" json:"require"`
	Fail    []Check `yaml:"fail" json:"fail"`
}

func (r ARule) matches(f model.FilterResult) bool {
	for _, c := range r.Require {
		if ok, _ := c.Passed(f); !ok {
			return false
		}
	}
	for _, c := range r.Fail {
		if ok, _ := c.Passed(f); ok {
			return false
		}
	}
	return true
}

// GradePolicy decides which non-S combinations still earn an A. Which checks
// count as "fundamentals" versus "technicals" is a policy choice, so the rule
// set is data rather than code.
type GradePolicy struct {
	ARules []ARule `yaml:"a_rules" json:"a_rules"`
}

// DefaultPolicy: good fundamentals (trend+growth) with a failed gap, or good
// technicals (trend+gap) with a failed PEG.
func DefaultPolicy() GradePolicy {
	return GradePolicy{ARules: []ARule{
		{Name: "fundamentals", Require: []Check{CheckTrend, CheckGrowth}, Fail: []Check{CheckGap}},
		{Name: "technicals", Require: []Check{CheckTrend, CheckGap}, Fail: []Check{CheckPEG}},
	}}
}

// Validate rejects rules naming unknown checks or contradicting themselves.
func (p GradePolicy) Validate() error {
	var errs []error
	for i, r := range p.ARules {
		if len(r.Require) == 0 && len(r.Fail) == 0 {
			errs = append(errs, fmt.Errorf("a_rules[%d]: empty rule", i))
			continue
		}
		seen := make(map[Check]bool)
		for _, c := range r.Require {
			if _, err := c.Passed(model.FilterResult{}); err != nil {
				errs = append(errs, fmt.Errorf("a_rules[%d].require: %w", i, err))
			}
			seen[c] = true
		}
		for _, c := range r.Fail {
			if _, err := c.Passed(model.FilterResult{}); err != nil {
				errs = append(errs, fmt.Errorf("a_rules[%d].fail: %w", i, err))
			}
			if seen[c] {
				errs = append(errs, fmt.Errorf("a_rules[%d]: %q both required and failed", i, c))
			}
		}
	}
	return errors.Join(errs...)
}
