// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/menu-critic/internal/critique"
	"github.com/jonathan/menu-critic/internal/vision"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCritique outputs a human-readable summary of a validated critique.
func (p *Printer) PrintCritique(result *critique.Result, meta *critique.Metadata) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Clarity:             %3d\n", result.Scores.Clarity))
	sb.WriteString(fmt.Sprintf("Pricing Psychology:  %3d\n", result.Scores.PricingPsychology))
	sb.WriteString(fmt.Sprintf("Upsell Potential:    %3d\n", result.Scores.UpsellPotential))
	sb.WriteString(fmt.Sprintf("Menu Structure:      %3d\n", result.Scores.MenuStructure))
	sb.WriteString(fmt.Sprintf("Dietary Signals:     %3d", result.Scores.DietarySignals))
	p.printBox("Scorecard", sb.String())

	p.printList("Top Changes", result.Top5Changes)
	p.printList("Red Flags", result.RedFlags)

	if meta != nil {
		var ms strings.Builder
		ms.WriteString(fmt.Sprintf("Model:           %s\n", meta.Model))
		ms.WriteString(fmt.Sprintf("Response format: %s\n", meta.ResponseFormat))
		if meta.Usage != nil {
			ms.WriteString(fmt.Sprintf("Tokens:          %d prompt / %d completion\n",
				meta.Usage.PromptTokens, meta.Usage.CompletionTokens))
		}
		ms.WriteString(fmt.Sprintf("Raw output:      %d chars", meta.RawOutputChars))
		p.printBox("Request", ms.String())
	}
}

// PrintVision outputs a summary of a vision extraction result.
func (p *Printer) PrintVision(result *vision.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Confidence:      %.2f\n", result.Confidence))
	sb.WriteString(fmt.Sprintf("Extracted chars: %d\n", len(result.MenuText)))
	notes := result.Notes
	if notes == "" {
		notes = "-"
	}
	sb.WriteString(fmt.Sprintf("Notes:           %s", notes))
	p.printBox("Vision Extraction", sb.String())
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printList(title string, items []string) {
	if len(items) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, items[i]))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more", len(items)-maxItemsToShow))
	}
	p.printBox(title, sb.String())
}
