package extract_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/extract"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

// scriptedModel returns a fixed response or error and records the prompt.
type scriptedModel struct {
	response string
	err      error
	prompt   string
}

func (m *scriptedModel) Invoke(_ context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func (m *scriptedModel) Model() string { return "scripted" }

func TestExtractParsesStrictJSON(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{response: `{"summary": "Hospital hit by LockBit.", "date": "2025-04-03", "targets": "Regional hospital", "method": "ransomware attack", "exploit_used": "", "incident": true}`}
	extractor := extract.New(model, "", logger.Noop())

	fields := extractor.Extract(context.Background(), "page text")
	assert.Equal(t, "Hospital hit by LockBit.", fields.Summary)
	assert.Equal(t, "2025-04-03", fields.Date)
	assert.Equal(t, "Ransomware", fields.Method)
	assert.True(t, fields.Incident)
}

func TestExtractToleratesCodeFences(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{response: "```json\n{\"summary\": \"Vendor breach.\", \"incident\": \"yes\"}\n```"}
	extractor := extract.New(model, "", logger.Noop())

	fields := extractor.Extract(context.Background(), "page text")
	assert.Equal(t, "Vendor breach.", fields.Summary)
	assert.True(t, fields.Incident)
}

func TestExtractFallsBackToLabeledLines(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{response: `Summary: Credential stuffing against a retailer.
Date of Incident: 2025-03-20
Targets: Online retailer
Method: Credential stuffing
Exploit Used:
Incident?: yes`}
	extractor := extract.New(model, "", logger.Noop())

	fields := extractor.Extract(context.Background(), "page text")
	assert.Equal(t, "Credential stuffing against a retailer.", fields.Summary)
	assert.Equal(t, "Credential stuffing", fields.Method)
	assert.True(t, fields.Incident)
}

func TestExtractModelFailureDegrades(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{err: errors.New("connection refused")}
	extractor := extract.New(model, "", logger.Noop())

	long := strings.Repeat("An incident happened. ", 60)

	fields := extractor.Extract(context.Background(), long)
	assert.False(t, fields.Incident)
	assert.Empty(t, fields.Method)
	assert.True(t, strings.HasSuffix(fields.Summary, "..."))
	assert.LessOrEqual(t, len(fields.Summary), 603)
}

func TestExtractFallbackSummaryStaysValidUTF8(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{err: errors.New("connection refused")}
	extractor := extract.New(model, "", logger.Noop())

	// A multibyte rune straddles the summary cutoff; the truncation must back
	// off to the rune boundary instead of splitting it.
	page := strings.Repeat("a", 599) + "漢攻撃" + strings.Repeat(" incident", 30)

	fields := extractor.Extract(context.Background(), page)
	assert.True(t, utf8.ValidString(fields.Summary))
	assert.True(t, strings.HasSuffix(fields.Summary, "..."))
	assert.False(t, strings.ContainsRune(fields.Summary, utf8.RuneError))
}

func TestExtractUnparsableResponseDegrades(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{response: "I cannot help with that."}
	extractor := extract.New(model, "", logger.Noop())

	fields := extractor.Extract(context.Background(), "short page text")
	assert.Equal(t, "short page text", fields.Summary)
	assert.False(t, fields.Incident)
}

func TestExtractCustomTemplate(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{response: `{"summary": "ok", "incident": false}`}
	extractor := extract.New(model, "Classify this: {content}", logger.Noop())

	extractor.Extract(context.Background(), "page body")
	assert.Equal(t, "Classify this: page body", model.prompt)
}

func TestNormalizeMethod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ransomware", extract.NormalizeMethod("a ransomware attack"))
	assert.Equal(t, "Data breach", extract.NormalizeMethod("Data Breach"))
	assert.Equal(t, "unspecified", extract.NormalizeMethod("quantum hacking"))
	assert.Empty(t, extract.NormalizeMethod("  "))
}

func TestExtractCVEs(t *testing.T) {
	t.Parallel()

	text := "Attackers chained cve-2024-3400 with CVE-2025-29824; CVE-2024-3400 was the entry point."

	got := extract.ExtractCVEs(text)
	require.Equal(t, []string{"CVE-2024-3400", "CVE-2025-29824"}, got)

	assert.Nil(t, extract.ExtractCVEs("no identifiers here"))
}

func TestMergeCVEs(t *testing.T) {
	t.Parallel()

	merged := extract.MergeCVEs("CVE-2024-3400 via PAN-OS", []string{"CVE-2024-3400", "CVE-2025-29824"})
	assert.Equal(t, "CVE-2024-3400 via PAN-OS, CVE-2025-29824 (now-patched Windows 0-day)", merged)

	assert.Equal(t, "CVE-2023-1234", extract.MergeCVEs("", []string{"CVE-2023-1234"}))
}
