package rules

import (
	"fmt"
	"strings"
	"sync"
)

// Stages, in evaluation order.
const (
	StageComment  = "comment"
	StageOCR      = "ocr"
	StageFilename = "filename"
	StageCustom   = "custom"
	StagePrior    = "prior"
	StageEscalate = "escalate"
	StageWeak     = "weak"
	StageDefault  = "default"
	StageFallback = "fallback"
)

// Rule maps a predicate over prepared signals to a category.
type Rule struct {
	Name     string
	Stage    string
	Category Category
	Match    func(Signals) bool
}

// Decision is the outcome of evaluating the rule list for one item.
type Decision struct {
	Category  Category
	Rule      string
	Stage     string
	Escalated bool
}

// Engine evaluates an ordered rule list; the first match wins. Decisions from
// the comment, OCR, filename, custom and prior stages may be escalated toward
// a more specific category when an explicit crash, connectivity or
// authentication signal is present. The engine is immutable once built.
type Engine struct {
	rules       []Rule
	escalations []Rule
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the engine with only the built-in rules.
func Default() *Engine {
	defaultOnce.Do(func() {
		engine, err := New()
		if err != nil {
			panic(fmt.Sprintf("built-in rules are invalid: %v", err))
		}
		defaultEngine = engine
	})
	return defaultEngine
}

// New builds an engine, compiling custom rules into the custom stage.
func New(custom ...CustomRule) (*Engine, error) {
	compiled, err := compileCustom(custom)
	if err != nil {
		return nil, err
	}
	escalations := escalationRules()

	var list []Rule
	list = append(list, commentRules()...)
	list = append(list, ocrRules()...)
	list = append(list, filenameRules()...)
	list = append(list, compiled...)
	list = append(list, Rule{
		Name:  "prior_prediction",
		Stage: StagePrior,
		Match: func(s Signals) bool { return s.Prior != "" && s.Prior != Fallback },
	})
	list = append(list, escalations...)
	list = append(list, weakRules()...)
	list = append(list,
		Rule{Name: "usable_content", Stage: StageDefault, Category: FunctionalErrors, Match: Signals.Usable},
		Rule{Name: "insufficient_info", Stage: StageFallback, Category: Fallback, Match: func(Signals) bool { return true }},
	)
	return &Engine{rules: list, escalations: escalations}, nil
}

// Rules returns a copy of the ordered rule list.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Categorize returns the category for in. It is never empty.
func (e *Engine) Categorize(in Input) Category {
	return e.Decide(in).Category
}

// Decide evaluates the rule list against in.
func (e *Engine) Decide(in Input) Decision {
	s := Prepare(in)
	for _, rule := range e.rules {
		if !rule.Match(s) {
			continue
		}
		category := rule.Category
		if rule.Stage == StagePrior {
			category = s.Prior
		}
		decision := Decision{Category: category, Rule: rule.Name, Stage: rule.Stage}
		if escalatable(rule.Stage) {
			decision = e.escalate(s, decision)
		}
		return decision
	}
	return Decision{Category: Fallback, Rule: "insufficient_info", Stage: StageFallback}
}

func escalatable(stage string) bool {
	switch stage {
	case StageComment, StageOCR, StageFilename, StageCustom, StagePrior:
		return true
	}
	return false
}

func (e *Engine) escalate(s Signals, d Decision) Decision {
	if d.Category == FeatureRequests {
		return d
	}
	for _, rule := range e.escalations {
		if specificity(rule.Category) > specificity(d.Category) && rule.Match(s) {
			return Decision{Category: rule.Category, Rule: rule.Name, Stage: StageEscalate, Escalated: true}
		}
	}
	return d
}

func commentRules() []Rule {
	out := make([]Rule, 0, len(commentFamilies))
	for _, family := range commentFamilies {
		keywords := family.keywords
		out = append(out, Rule{
			Name:     "comment_" + family.name,
			Stage:    StageComment,
			Category: family.category,
			Match:    func(s Signals) bool { return s.comment(keywords) },
		})
	}
	return out
}

func ocrRules() []Rule {
	return []Rule{
		{Name: "ocr_authentication", Stage: StageOCR, Category: AuthenticationAccess,
			Match: func(s Signals) bool { return s.ocr(ocrAuth) }},
		{Name: "ocr_connectivity", Stage: StageOCR, Category: ConnectivityProblems,
			Match: func(s Signals) bool { return s.ocr(ocrConnectivity) }},
		{Name: "ocr_error_screen", Stage: StageOCR, Category: FunctionalErrors,
			Match: func(s Signals) bool { return s.ocr(ocrError) }},
		{Name: "ocr_stuck_loading", Stage: StageOCR, Category: PerformanceIssues,
			Match: func(s Signals) bool { return s.ocr(ocrLoading) && !s.ocr(ocrLoaded) }},
		{Name: "ocr_configuration", Stage: StageOCR, Category: ConfigurationSettings,
			Match: func(s Signals) bool { return s.ocr(ocrConfiguration) }},
		{Name: "ocr_integration", Stage: StageOCR, Category: IntegrationFailures,
			Match: func(s Signals) bool { return s.ocr(ocrIntegration) }},
		{Name: "ocr_amount_mismatch", Stage: StageOCR, Category: DataIntegrityIssues,
			Match: func(s Signals) bool { return s.ocr(ocrAmounts) && s.ocr(ocrMismatch) }},
	}
}

func filenameRules() []Rule {
	match := func(keywords []string) func(Signals) bool {
		return func(s Signals) bool {
			if s.Filename == "" || evidenceFile(s.Filename) {
				return false
			}
			for _, k := range keywords {
				if strings.Contains(s.Filename, k) {
					return true
				}
			}
			return false
		}
	}
	return []Rule{
		{Name: "filename_error", Stage: StageFilename, Category: FunctionalErrors, Match: match(filenameError)},
		{Name: "filename_authentication", Stage: StageFilename, Category: AuthenticationAccess, Match: match(filenameAuth)},
		{Name: "filename_connectivity", Stage: StageFilename, Category: ConnectivityProblems, Match: match(filenameConnectivity)},
	}
}

// escalationRules are ordered strongest first.
func escalationRules() []Rule {
	return []Rule{
		{Name: "explicit_crash", Stage: StageEscalate, Category: CrashStability,
			Match: func(s Signals) bool { return s.anywhere(explicitCrash) }},
		{Name: "explicit_connectivity", Stage: StageEscalate, Category: ConnectivityProblems,
			Match: func(s Signals) bool { return s.anywhere(explicitConnectivity) }},
		{Name: "explicit_authentication", Stage: StageEscalate, Category: AuthenticationAccess,
			Match: func(s Signals) bool { return s.anywhere(explicitAuth) }},
	}
}

func weakRules() []Rule {
	return []Rule{
		{Name: "weak_amounts", Stage: StageWeak, Category: DataIntegrityIssues, Match: func(s Signals) bool {
			currency := hasToken(s.combinedToks, weakCurrency) || strings.Contains(s.combined, "₹")
			if digitPattern.MatchString(s.combined) && currency {
				return true
			}
			return hasToken(s.combinedToks, weakMismatch) || containsAny(s.combined, s.combinedToks, weakMismatchText)
		}},
		{Name: "weak_error", Stage: StageWeak, Category: FunctionalErrors,
			Match: func(s Signals) bool { return containsAny(s.combined, s.combinedToks, weakError) }},
		{Name: "weak_connectivity", Stage: StageWeak, Category: ConnectivityProblems,
			Match: func(s Signals) bool { return containsAny(s.combined, s.combinedToks, weakConnectivity) }},
		{Name: "weak_authentication", Stage: StageWeak, Category: AuthenticationAccess,
			Match: func(s Signals) bool { return containsAny(s.combined, s.combinedToks, weakAuth) }},
	}
}
