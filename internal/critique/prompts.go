package critique

import (
	"fmt"
	"strings"
)

func systemPrompt() string {
	return "You are Menu Critic, an expert in restaurant menu conversion optimization, average order value, " +
		"and customer experience. Always respond in English and output JSON only (no markdown).\n" +
		"If mode is Roast, be funny and specific but never cruel. Roast the menu copy/layout/pricing choices, " +
		"not the owner or any people. No harassment, slurs, or personal attacks.\n" +
		"In Roast mode, use sharper humor, vivid metaphors, playful one-liners, and consultant-style sarcasm " +
		"while still being actionable.\n" +
		"Avoid bland corporate wording in Roast mode. Each major point should sound like a real roast, not a polite audit.\n" +
		"Focus on practical, testable improvements."
}

const roastRequirements = `Roast style requirements:
- Make the critique genuinely funny and specific (not generic, not mild).
- Roast the menu writing/structure/pricing like a witty consultant doing stand-up with receipts.
- Every joke must still include a useful fix.
- Keep it playful, not cruel, and never target people.
- ` + "`top_5_changes` and `red_flags`" + ` should read like punchy roasts with actionable advice.
- Prefer lines that combine a roast + fix in one sentence.
- Use colorful phrasing (examples of tone only): 'reads like a tax form', 'buried like a secret menu witness', 'priced like it includes a side of rent'.
- Do not overuse the same joke structure.
- ` + "`rewrite_examples[].why_it_helps`" + ` should keep a witty tone while explaining the conversion logic.
- ` + "`ab_tests[].hypothesis`" + ` can be playful, but ` + "`success_metric`" + ` must stay practical.

`

const fixRequirements = `Fix mode requirements:
- Prioritize clarity, revenue impact, and implementation practicality.
- Be direct and operator-friendly.

`

// userPrompt assembles the mode-sensitive critique prompt. The scoring rubric
// travels inside the prompt so the model scores against the same dimensions
// the schema enforces.
func userPrompt(menuText string, mode Mode, goal Goal, context string) string {
	safeContext := strings.TrimSpace(context)
	if safeContext == "" {
		safeContext = "Not provided"
	}

	modeSpecific := fixRequirements
	if mode == ModeRoast {
		modeSpecific = roastRequirements
	}

	var sb strings.Builder
	sb.WriteString("Analyze this restaurant menu and return a critique using the required JSON schema.\n\n")
	sb.WriteString(fmt.Sprintf("Mode: %s\n", mode.Label()))
	sb.WriteString(fmt.Sprintf("Primary goal: %s\n", goal.Label()))
	sb.WriteString(fmt.Sprintf("Restaurant context: %s\n\n", safeContext))
	sb.WriteString("Scoring guidance:\n")
	sb.WriteString("- clarity: readability, naming, scannability\n")
	sb.WriteString("- pricing_psychology: anchors, decoys, price formatting, value framing\n")
	sb.WriteString("- upsell_potential: combos, add-ons, sizing, pairings\n")
	sb.WriteString("- menu_structure: grouping, flow, hierarchy\n")
	sb.WriteString("- dietary_signals: labels for vegetarian/vegan/gluten-free/allergens\n\n")
	sb.WriteString(modeSpecific)
	sb.WriteString("Requirements:\n")
	sb.WriteString("- Provide exactly 5 top_5_changes if possible.\n")
	sb.WriteString("- Rewrite examples should be concrete menu line upgrades.\n")
	sb.WriteString("- In Roast mode, rewrite_examples should preserve the humor in the explanation but keep the rewritten menu line usable.\n")
	sb.WriteString("- A/B tests should be realistic for a restaurant menu or online ordering page.\n")
	sb.WriteString("- Red flags should call out confusing, risky, or conversion-killing issues.\n")
	sb.WriteString("- Keep all output in English.\n\n")
	sb.WriteString("Roast calibration (only if mode is Roast): aim for 7/10 funny, 10/10 useful.\n\n")
	sb.WriteString("Menu text:\n")
	sb.WriteString(menuText)
	return sb.String()
}
