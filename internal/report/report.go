package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/findings"
)

// SystemPrompt frames the report writer.
const SystemPrompt = "You are Vulminator, an AI security engineer."

const (
	fallbackHeading = "# Vulminator Security Report (fallback)"
	fallbackIntro   = "Report model credentials missing or summarization failed. Here is a direct listing of findings:"
	noFindingsLine  = "- No findings were recorded for this run."

	synthesisErrorHeading = "## Report synthesis error"
)

// ErrEmptyReport is returned when the report model answers with blank text.
var ErrEmptyReport = errors.New("report model returned an empty report")

// Writer turns a prompt into report text.
type Writer interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Synthesizer builds the Markdown report of a run.
type Synthesizer struct {
	writer Writer
	logger hclog.Logger
}

// NewSynthesizer creates a Synthesizer. A nil writer always selects the deterministic listing.
func NewSynthesizer(writer Writer, logger hclog.Logger) *Synthesizer {
	return &Synthesizer{
		writer: writer,
		logger: logger,
	}
}

// Generate returns the report text. When the assisted path is selected and fails, the
// deterministic listing is returned with the failure appended, together with the error.
func (s *Synthesizer) Generate(ctx context.Context, fs []findings.Finding, assisted bool) (string, error) {
	if !assisted || s.writer == nil {
		return Fallback(fs), nil
	}

	text, err := s.writer.GenerateWithSystem(ctx, SystemPrompt, Prompt(fs))
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyReport
	}
	if err != nil {
		s.logger.Warn("assisted report failed, using fallback listing", "error", err)
		return withError(Fallback(fs), err), err
	}
	return text, nil
}

func withError(listing string, err error) string {
	return listing + "\n\n" + synthesisErrorHeading + "\n\n" + err.Error()
}

// Fallback renders one bullet per finding in order, or a single "no findings" bullet.
func Fallback(fs []findings.Finding) string {
	lines := []string{fallbackHeading, "", fallbackIntro, ""}
	if len(fs) == 0 {
		lines = append(lines, noFindingsLine)
	}
	for _, f := range fs {
		location := ""
		if f.Path() != "" {
			location = fmt.Sprintf(" (%s)", singleLine(f.Path()))
		}
		lines = append(lines, fmt.Sprintf("- **%s** | %s%s: %s", f.Severity.Upper(), singleLine(f.Title), location, singleLine(f.Summary)))
	}
	return strings.Join(lines, "\n")
}

// singleLine collapses every whitespace run of s, line breaks included, into one space.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Prompt builds the report request sent to the model.
func Prompt(fs []findings.Finding) string {
	payload := make([]string, 0, len(fs))
	for _, f := range fs {
		payload = append(payload, fmt.Sprintf("- [%s] %s: %s", f.Severity.Upper(), f.Title, f.Summary))
	}
	listing := strings.Join(payload, "\n")
	if listing == "" {
		listing = "No findings generated."
	}

	return strings.Join([]string{
		"Using the findings below, craft a Markdown report with sections for:",
		"1. TL;DR",
		"2. Risk Overview",
		"3. Recommended Remediations",
		"4. Finding Details (include file paths when present)",
		"",
		"Findings:",
		listing,
	}, "\n")
}
