package rules

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"bugsort/internal/config"
	"bugsort/internal/services"
)

// CustomRule is an operator-supplied CEL predicate. The expression sees the
// string variables comment, ocr, filename and prior (normalized as the
// built-in rules see them) and must evaluate to a bool.
type CustomRule struct {
	Name       string
	Category   string
	Expression string
}

// FromConfig builds an engine with the configured custom rules.
func FromConfig(cfg config.Rules) (*Engine, error) {
	custom := make([]CustomRule, 0, len(cfg.Custom))
	for _, c := range cfg.Custom {
		custom = append(custom, CustomRule{Name: c.Name, Category: c.Category, Expression: c.Expression})
	}
	return New(custom...)
}

func compileCustom(custom []CustomRule) ([]Rule, error) {
	if len(custom) == 0 {
		return nil, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("comment", cel.StringType),
		cel.Variable("ocr", cel.StringType),
		cel.Variable("filename", cel.StringType),
		cel.Variable("prior", cel.StringType),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "rules", "custom env", "create CEL environment", err)
	}

	out := make([]Rule, 0, len(custom))
	seen := make(map[string]bool, len(custom))
	for _, c := range custom {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, services.Wrap(services.ErrInput, "rules", "custom rule", "custom rule name is required", nil)
		}
		if seen[name] {
			return nil, services.Wrap(services.ErrInput, "rules", "custom rule", fmt.Sprintf("duplicate custom rule %q", name), nil)
		}
		seen[name] = true

		category, err := Parse(c.Category)
		if err != nil {
			return nil, services.Wrap(services.ErrInput, "rules", "custom rule", fmt.Sprintf("rule %q", name), err)
		}
		if category == Fallback {
			return nil, services.Wrap(services.ErrInput, "rules", "custom rule",
				fmt.Sprintf("rule %q cannot target the fallback category", name), nil)
		}

		ast, issues := env.Compile(c.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, services.Wrap(services.ErrInput, "rules", "custom rule",
				fmt.Sprintf("compile rule %q", name), issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, services.Wrap(services.ErrInput, "rules", "custom rule",
				fmt.Sprintf("rule %q must evaluate to bool, got %s", name, ast.OutputType()), nil)
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, services.Wrap(services.ErrInput, "rules", "custom rule",
				fmt.Sprintf("program for rule %q", name), err)
		}

		out = append(out, Rule{
			Name:     "custom_" + name,
			Stage:    StageCustom,
			Category: category,
			Match:    celMatcher(program),
		})
	}
	return out, nil
}

// celMatcher treats evaluation errors and non-bool results as no match.
func celMatcher(program cel.Program) func(Signals) bool {
	return func(s Signals) bool {
		out, _, err := program.Eval(map[string]any{
			"comment":  s.Comment,
			"ocr":      s.OCR,
			"filename": s.Filename,
			"prior":    string(s.Prior),
		})
		if err != nil {
			return false
		}
		matched, ok := out.Value().(bool)
		return ok && matched
	}
}
