package critique

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/jonathan/menu-critic/internal/groq"
)

// Mode selects the critique voice.
type Mode string

// Supported critique modes.
const (
	ModeFix   Mode = "fix"
	ModeRoast Mode = "roast"
)

// Label returns the user-facing mode name.
func (m Mode) Label() string {
	if m == ModeRoast {
		return "Roast my menu"
	}
	return "Fix my menu"
}

// ParseMode maps user input ("fix", "Fix my menu", "roast", ...) onto a Mode.
// Anything that does not start with "roast" is the serious mode.
func ParseMode(s string) Mode {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "roast") {
		return ModeRoast
	}
	return ModeFix
}

// Goal is the primary optimization target.
type Goal string

// Supported goals.
const (
	GoalConversion Goal = "conversion"
	GoalAOV        Goal = "aov"
	GoalExperience Goal = "experience"
)

// ParseGoal maps user input ("aov", "Increase AOV", ...) onto a Goal. Unknown
// input falls back to conversion, the most common target.
func ParseGoal(s string) Goal {
	switch v := strings.ToLower(strings.TrimSpace(s)); {
	case strings.Contains(v, "aov"):
		return GoalAOV
	case strings.Contains(v, "experience"), strings.Contains(v, "retention"):
		return GoalExperience
	default:
		return GoalConversion
	}
}

// Label returns the user-facing goal name.
func (g Goal) Label() string {
	switch g {
	case GoalAOV:
		return "Increase AOV"
	case GoalExperience:
		return "Improve experience & retention"
	default:
		return "Increase conversion"
	}
}

// Scores holds the five fixed scoring dimensions, each an integer 0-100.
type Scores struct {
	Clarity           int `json:"clarity"`
	PricingPsychology int `json:"pricing_psychology"`
	UpsellPotential   int `json:"upsell_potential"`
	MenuStructure     int `json:"menu_structure"`
	DietarySignals    int `json:"dietary_signals"`
}

// RevenueLevers groups suggestions by the revenue mechanism they pull.
type RevenueLevers struct {
	Conversion []string `json:"conversion"`
	AOV        []string `json:"aov"`
	Margin     []string `json:"margin"`
}

// RewriteExample is a concrete menu line upgrade.
type RewriteExample struct {
	Original   string `json:"original"`
	Rewritten  string `json:"rewritten"`
	WhyItHelps string `json:"why_it_helps"`
}

// ABTest is a restaurant-realistic experiment suggestion.
type ABTest struct {
	Hypothesis    string `json:"hypothesis"`
	VariantA      string `json:"variant_a"`
	VariantB      string `json:"variant_b"`
	SuccessMetric string `json:"success_metric"`
}

// Result is the strictly-shaped critique. Instances only exist after the raw
// model output passed full schema validation.
type Result struct {
	Scores          Scores           `json:"scores"`
	Top5Changes     []string         `json:"top_5_changes"`
	RevenueLevers   RevenueLevers    `json:"revenue_levers"`
	RewriteExamples []RewriteExample `json:"rewrite_examples"`
	ABTests         []ABTest         `json:"ab_tests"`
	RedFlags        []string         `json:"red_flags"`
}

// Metadata describes the request that produced a Result.
type Metadata struct {
	Model          string      `json:"model"`
	ResponseFormat string      `json:"response_format"`
	Usage          *groq.Usage `json:"usage,omitempty"`
	RawOutputChars int         `json:"raw_output_chars"`
}

// PrettyJSON renders a result as indented JSON without HTML escaping.
func PrettyJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
