package rules

import (
	"fmt"
	"strings"

	"bugsort/internal/services"
)

// Category is a canonical taxonomy identifier.
type Category string

// Taxonomy categories.
const (
	FunctionalErrors        Category = "functional_errors"
	UIUXIssues              Category = "ui_ux_issues"
	PerformanceIssues       Category = "performance_issues"
	ConnectivityProblems    Category = "connectivity_problems"
	AuthenticationAccess    Category = "authentication_access"
	DataIntegrityIssues     Category = "data_integrity_issues"
	CrashStability          Category = "crash_stability"
	IntegrationFailures     Category = "integration_failures"
	ConfigurationSettings   Category = "configuration_settings"
	CompatibilityIssues     Category = "compatibility_issues"
	FeatureRequests         Category = "feature_requests"
	UnclearInsufficientInfo Category = "unclear_insufficient_info"
)

// Fallback is the category reserved for items with no usable signal.
const Fallback = UnclearInsufficientInfo

var taxonomy = []Category{
	FunctionalErrors,
	UIUXIssues,
	PerformanceIssues,
	ConnectivityProblems,
	AuthenticationAccess,
	DataIntegrityIssues,
	CrashStability,
	IntegrationFailures,
	ConfigurationSettings,
	CompatibilityIssues,
	FeatureRequests,
	UnclearInsufficientInfo,
}

// All returns every category in taxonomy order.
func All() []Category {
	out := make([]Category, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// Valid reports whether value names a taxonomy category.
func Valid(value string) bool {
	for _, c := range taxonomy {
		if string(c) == value {
			return true
		}
	}
	return false
}

// Parse converts value to a Category, tolerating case and surrounding space.
func Parse(value string) (Category, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if Valid(v) {
		return Category(v), nil
	}
	return "", services.Wrap(services.ErrInput, "rules", "parse category", fmt.Sprintf("unknown category %q", value), nil)
}

// specificity orders categories for escalation. Feature requests are terminal
// and never escalated.
func specificity(c Category) int {
	switch c {
	case UnclearInsufficientInfo, "":
		return 0
	case FunctionalErrors, UIUXIssues:
		return 1
	case ConnectivityProblems:
		return 3
	case CrashStability:
		return 4
	default:
		return 2
	}
}
