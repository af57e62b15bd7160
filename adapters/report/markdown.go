// Package report renders run reports as Markdown, with an HTML variant
// for embedding in emails or dashboards.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"emcal/domain/validation"
	"emcal/ports"
)

// MarkdownReporter renders a run summary as Markdown.
type MarkdownReporter struct{}

var _ ports.Reporter = (*MarkdownReporter)(nil)

// New creates a markdown reporter.
func New() *MarkdownReporter {
	return &MarkdownReporter{}
}

// Render produces the Markdown report.
func (r *MarkdownReporter) Render(report *validation.RunReport) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Validation Run %s\n\n", report.RunID)
	fmt.Fprintf(&b, "Passed: %d · Failed: %d · Skipped: %d · Duration: %dms\n\n",
		report.CountPassed, report.CountFailed, report.CountSkipped, report.DurationMs)

	scored := false
	for _, pair := range report.Pairs {
		if pair.Scored() {
			scored = true
			break
		}
	}
	if scored {
		b.WriteString("## Scored pairs\n\n")
		b.WriteString("| Entity | Variable | Metric | Value | Threshold | n | Result |\n")
		b.WriteString("|---|---|---|---:|---:|---:|---|\n")
		for _, pair := range report.Pairs {
			if !pair.Scored() {
				continue
			}
			for _, m := range pair.Metrics {
				result := "pass"
				if !m.Passed {
					result = "fail"
				}
				threshold := "—"
				if m.Threshold != 0 {
					threshold = fmt.Sprintf("%.2f", m.Threshold)
				}
				fmt.Fprintf(&b, "| %s | %s | %s | %.3f | %s | %d | %s |\n",
					m.EntityID, m.VariableID, strings.ToUpper(string(m.Kind)),
					m.Value, threshold, m.NPoints, result)
			}
		}
		b.WriteString("\n")
	}

	if report.CountSkipped > 0 {
		b.WriteString("## Skipped pairs\n\n")
		b.WriteString("| Entity | Variable | Raw label | Stage | Reason | Detail |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, pair := range report.Pairs {
			if pair.Status != validation.StatusSkipped {
				continue
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				orDash(string(pair.EntityID)), orDash(string(pair.VariableID)),
				orDash(pair.RawLabel), pair.LastStage, pair.SkipReason,
				orDash(pair.SkipDetail))
		}
		b.WriteString("\n")
	}

	return []byte(b.String()), nil
}

// RenderHTML converts the Markdown report to a standalone HTML fragment.
func (r *MarkdownReporter) RenderHTML(report *validation.RunReport) ([]byte, error) {
	md, err := r.Render(report)
	if err != nil {
		return nil, err
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return markdown.ToHTML(md, p, renderer), nil
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
