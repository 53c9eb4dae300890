// Package extract distills structured incident fields out of page text via a
// language model, degrading to a heuristic summary when the model call or its
// output cannot be used.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/incidentwatch/internal/llm"
	"github.com/jonesrussell/incidentwatch/internal/logger"
	"github.com/jonesrussell/incidentwatch/internal/metrics"
)

// MethodVocabulary is the closed set of attack-method labels. Model answers
// are normalized into this set by substring match; anything else becomes
// "unspecified" rather than an invented category.
var MethodVocabulary = []string{
	"Ransomware",
	"Phishing",
	"Data breach",
	"DDoS",
	"Vulnerability exploitation",
	"Supply chain compromise",
	"Credential stuffing",
	"Business email compromise",
	"Vishing",
	"Malware/Backdoor",
	"Espionage",
}

// MethodUnspecified is the normalization result for unrecognized methods.
const MethodUnspecified = "unspecified"

// ContentPlaceholder marks where the page text goes in a prompt template.
const ContentPlaceholder = "{content}"

// defaultPromptTemplate asks for strict JSON so parsing stays mechanical.
const defaultPromptTemplate = `You are a cybersecurity analyst extracting discrete incident details.
Return ONLY a JSON object with exactly these keys, no commentary:
{"summary": "<one sentence>", "date": "<YYYY-MM-DD or natural date>", "targets": "<affected entities>", "method": "<one of [Ransomware, Phishing, Data breach, DDoS, Vulnerability exploitation, Supply chain compromise, Credential stuffing, Business email compromise, Vishing, Malware/Backdoor, Espionage]>", "exploit_used": "<CVE IDs and/or exploit mechanism; empty if unknown>", "incident": <true or false, whether the article describes one discrete incident rather than an opinion piece, roundup, policy article, or vendor marketing>}

Article: {content}`

// fallbackSummaryLen bounds the heuristic summary taken from page text when
// the model cannot be used.
const fallbackSummaryLen = 600

// maxPromptContentLen bounds the page text embedded in one prompt.
const maxPromptContentLen = 12000

// Fields is the structured output for one page.
type Fields struct {
	Summary     string
	Date        string
	Targets     string
	Method      string
	ExploitUsed string
	Incident    bool
}

// Extractor turns page text into Fields through a model client.
type Extractor struct {
	client   llm.Client
	template string
	log      logger.Interface
}

// New creates an Extractor. promptTemplate may be empty to use the default;
// a custom template must contain the {content} placeholder.
func New(client llm.Client, promptTemplate string, log logger.Interface) *Extractor {
	if promptTemplate == "" || !strings.Contains(promptTemplate, ContentPlaceholder) {
		promptTemplate = defaultPromptTemplate
	}

	return &Extractor{
		client:   client,
		template: promptTemplate,
		log:      log,
	}
}

// Extract never fails: any model or parse problem yields the heuristic
// fallback (prefix summary, empty fields, Incident=false) so the scorer
// still has something to judge.
func (e *Extractor) Extract(ctx context.Context, pageText string) Fields {
	content := truncateRunes(pageText, maxPromptContentLen)

	prompt := strings.Replace(e.template, ContentPlaceholder, content, 1)

	raw, err := e.client.Invoke(ctx, prompt)
	if err != nil {
		e.log.Warn("model invocation failed", "error", err.Error())
		metrics.LLMRequests.WithLabelValues("error").Inc()

		return fallbackFields(pageText)
	}

	fields, ok := parseResponse(raw)
	if !ok {
		e.log.Warn("model response unparsable", "response_len", len(raw))
		metrics.LLMRequests.WithLabelValues("unparsable").Inc()

		return fallbackFields(pageText)
	}

	metrics.LLMRequests.WithLabelValues("ok").Inc()
	fields.Method = NormalizeMethod(fields.Method)

	return fields
}

// parseResponse tries strict JSON first (tolerating markdown code fences),
// then the labeled-line shape older models tend to produce.
func parseResponse(raw string) (Fields, bool) {
	if fields, ok := parseJSONResponse(raw); ok {
		return fields, true
	}

	return parseLabeledResponse(raw)
}

func parseJSONResponse(raw string) (Fields, bool) {
	body := stripCodeFences(raw)

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return Fields{}, false
	}

	var parsed struct {
		Summary     string          `json:"summary"`
		Date        string          `json:"date"`
		Targets     string          `json:"targets"`
		Method      string          `json:"method"`
		ExploitUsed string          `json:"exploit_used"`
		Incident    json.RawMessage `json:"incident"`
	}

	if err := json.Unmarshal([]byte(body[start:end+1]), &parsed); err != nil {
		return Fields{}, false
	}

	if parsed.Summary == "" {
		return Fields{}, false
	}

	return Fields{
		Summary:     strings.TrimSpace(parsed.Summary),
		Date:        strings.TrimSpace(parsed.Date),
		Targets:     strings.TrimSpace(parsed.Targets),
		Method:      strings.TrimSpace(parsed.Method),
		ExploitUsed: strings.TrimSpace(parsed.ExploitUsed),
		Incident:    truthy(parsed.Incident),
	}, true
}

var labeledLineRes = map[string]*regexp.Regexp{
	"summary":  regexp.MustCompile(`(?m)^Summary:\s*(.*)$`),
	"date":     regexp.MustCompile(`(?m)^Date of Incident:\s*(.*)$`),
	"targets":  regexp.MustCompile(`(?m)^Targets:\s*(.*)$`),
	"method":   regexp.MustCompile(`(?m)^Method:\s*(.*)$`),
	"exploit":  regexp.MustCompile(`(?m)^Exploit Used:\s*(.*)$`),
	"incident": regexp.MustCompile(`(?m)^Incident\??:\s*(.*)$`),
}

func parseLabeledResponse(raw string) (Fields, bool) {
	grab := func(key string) string {
		m := labeledLineRes[key].FindStringSubmatch(raw)
		if m == nil {
			return ""
		}

		return strings.TrimSpace(m[1])
	}

	summary := grab("summary")
	if summary == "" {
		return Fields{}, false
	}

	return Fields{
		Summary:     summary,
		Date:        grab("date"),
		Targets:     grab("targets"),
		Method:      grab("method"),
		ExploitUsed: grab("exploit"),
		Incident:    strings.HasPrefix(strings.ToLower(grab("incident")), "y"),
	}, true
}

// truthy accepts JSON booleans and yes/no-ish strings for the incident flag.
func truthy(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.HasPrefix(s, "y") || s == "true"
	}

	return false
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

func stripCodeFences(raw string) string {
	if m := codeFenceRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}

	return raw
}

// fallbackFields builds the degraded result from the page text itself.
func fallbackFields(pageText string) Fields {
	summary := strings.TrimSpace(pageText)
	if len(summary) > fallbackSummaryLen {
		summary = truncateRunes(summary, fallbackSummaryLen) + "..."
	}

	return Fields{Summary: summary}
}

// truncateRunes cuts s at limit bytes without splitting a UTF-8 rune, so the
// result stays valid for text columns downstream.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}

	return s[:limit]
}

// NormalizeMethod maps a model's free-text method answer into the closed
// vocabulary. Empty answers stay empty so reports can omit the field.
func NormalizeMethod(answer string) string {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return ""
	}

	lowered := strings.ToLower(trimmed)
	for _, method := range MethodVocabulary {
		if strings.Contains(lowered, strings.ToLower(method)) {
			return method
		}
	}

	return MethodUnspecified
}

// cveRe matches CVE identifiers case-insensitively.
var cveRe = regexp.MustCompile(`(?i)\bCVE-\d{4}-\d{4,7}\b`)

// cveLabels annotates identifiers that deserve a reader-facing note.
var cveLabels = map[string]string{
	"CVE-2025-29824": "(now-patched Windows 0-day)",
}

// ExtractCVEs scans raw page content for CVE identifiers. Models are
// unreliable at verbatim identifier recall, so this runs over the page
// independent of extraction. Results are uppercased with first-seen order
// preserved.
func ExtractCVEs(text string) []string {
	matches := cveRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))

	for _, m := range matches {
		upper := strings.ToUpper(m)
		if _, ok := seen[upper]; ok {
			continue
		}

		seen[upper] = struct{}{}
		out = append(out, upper)
	}

	return out
}

// MergeCVEs folds regex-extracted CVEs into the model's exploit answer,
// skipping identifiers the model already mentioned and attaching known
// annotation labels.
func MergeCVEs(exploitUsed string, cves []string) string {
	existing := strings.ToUpper(exploitUsed)
	parts := make([]string, 0, len(cves)+1)

	if strings.TrimSpace(exploitUsed) != "" {
		parts = append(parts, strings.TrimSpace(exploitUsed))
	}

	for _, cve := range cves {
		if strings.Contains(existing, cve) {
			continue
		}

		if label, ok := cveLabels[cve]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", cve, label))
		} else {
			parts = append(parts, cve)
		}
	}

	return strings.Join(parts, ", ")
}
