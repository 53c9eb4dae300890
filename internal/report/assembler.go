// Package report renders a job's accepted drafts into the final markdown
// document.
package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jonesrussell/incidentwatch/internal/discovery"
	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/extract"
)

const reportTitle = "Cyber Threats and Risks"

const blockBreak = "<br><br>\n\n"

// Assemble renders the report: a header with the query's date range, an
// at-a-glance summary, and one renumbered section per accepted draft. With
// zero accepted drafts the report is the header plus a note.
func Assemble(query string, drafts []domain.Draft, dateRange *discovery.DateRange) string {
	accepted := make([]domain.Draft, 0, len(drafts))
	for _, d := range drafts {
		if d.Accepted() {
			accepted = append(accepted, d)
		}
	}

	var b strings.Builder

	if headerRange := formatHeaderRange(dateRange); headerRange != "" {
		fmt.Fprintf(&b, "# %s (%s)\n\n", reportTitle, headerRange)
	} else {
		fmt.Fprintf(&b, "# %s\n\n", reportTitle)
	}
	b.WriteString(blockBreak)

	if len(accepted) == 0 {
		b.WriteString("No incidents matching the criteria were identified in this period.\n")
		return b.String()
	}

	b.WriteString(atAGlance(accepted))
	b.WriteString(blockBreak)

	for i, d := range accepted {
		b.WriteString(Snippet(i+1, d))
	}

	return b.String()
}

// atAGlance summarizes the accepted set: total, method histogram, CVE list.
func atAGlance(accepted []domain.Draft) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("**At a glance:** %d incident%s", len(accepted), plural(len(accepted))))

	if histogram := methodHistogram(accepted); histogram != "" {
		parts = append(parts, "Methods: "+histogram)
	}

	if cves := collectCVEs(accepted); len(cves) > 0 {
		parts = append(parts, "CVEs: "+strings.Join(cves, ", "))
	}

	return strings.Join(parts, ". ") + ".\n"
}

// methodHistogram counts methods in first-seen order.
func methodHistogram(accepted []domain.Draft) string {
	counts := make(map[string]int)
	var order []string

	for _, d := range accepted {
		method := strings.TrimSpace(d.Method)
		if method == "" {
			continue
		}

		if counts[method] == 0 {
			order = append(order, method)
		}
		counts[method]++
	}

	entries := make([]string, 0, len(order))
	for _, method := range order {
		entries = append(entries, fmt.Sprintf("%s %d", method, counts[method]))
	}

	return strings.Join(entries, ", ")
}

// collectCVEs gathers identifiers across drafts, first-seen order, deduped.
func collectCVEs(accepted []domain.Draft) []string {
	var combined strings.Builder
	for _, d := range accepted {
		combined.WriteString(d.ExploitUsed)
		combined.WriteString(" ")
	}

	return extract.ExtractCVEs(combined.String())
}

// Snippet renders one numbered report section. Fields the extractor could
// not determine are omitted entirely, never printed as placeholders.
func Snippet(idx int, d domain.Draft) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %d. %s\n\n", idx, d.Title)
	fmt.Fprintf(&b, "**%s**\n\n", d.Summary)

	writeField(&b, "Date of Incident", PrettyDate(d.IncidentDate))
	writeField(&b, "Targets", d.Targets)
	writeField(&b, "Method", d.Method)
	writeField(&b, "Exploit Used", d.ExploitUsed)
	writeField(&b, "Relevance", d.Relevance)
	writeField(&b, "Source", d.SourceURL)

	b.WriteString("\n" + blockBreak)

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}

	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

var isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// PrettyDate renders ISO dates as "April 3, 2025". Anything else passes
// through untouched, since incident dates are often natural language.
func PrettyDate(raw string) string {
	s := strings.TrimSpace(raw)
	if !isoDateRe.MatchString(s) {
		return s
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}

	return fmt.Sprintf("%s %d, %d", t.Month().String(), t.Day(), t.Year())
}

// formatHeaderRange renders the report's date range, collapsing the year
// when the range stays within one.
func formatHeaderRange(dateRange *discovery.DateRange) string {
	if dateRange == nil {
		return ""
	}

	from, errFrom := time.Parse("2006-01-02", dateRange.From)
	to, errTo := time.Parse("2006-01-02", dateRange.To)
	if errFrom != nil || errTo != nil {
		return ""
	}

	if from.Year() == to.Year() {
		return fmt.Sprintf("%s %d - %s %d, %d",
			from.Month().String()[:3], from.Day(),
			to.Month().String()[:3], to.Day(), to.Year())
	}

	return fmt.Sprintf("%s %d, %d - %s %d, %d",
		from.Month().String()[:3], from.Day(), from.Year(),
		to.Month().String()[:3], to.Day(), to.Year())
}

func plural(n int) string {
	if n == 1 {
		return ""
	}

	return "s"
}
