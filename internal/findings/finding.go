package findings

import "strings"

// Severity is the normalized severity of a Finding. Tools emit open-ended vocabularies,
// so unknown values are kept as-is and reported through Known.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
)

var aliases = map[string]Severity{
	"info":     SeverityInfo,
	"warning":  SeverityWarning,
	"warn":     SeverityWarning,
	"moderate": SeverityModerate,
	"high":     SeverityHigh,
	"critical": SeverityCritical,
	"error":    SeverityError,
}

// ParseSeverity lowercases raw and maps it onto the known set when possible.
// An empty value becomes info.
func ParseSeverity(raw string) Severity {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return SeverityInfo
	}
	if known, ok := aliases[s]; ok {
		return known
	}
	return Severity(s)
}

// Known reports whether s belongs to the fixed severity set.
func (s Severity) Known() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityModerate, SeverityHigh, SeverityCritical, SeverityError:
		return true
	}
	return false
}

// Upper returns the severity in upper case, as rendered in reports.
func (s Severity) Upper() string {
	return strings.ToUpper(string(s))
}

// In reports whether s is one of set, compared case-insensitively.
func (s Severity) In(set []string) bool {
	for _, v := range set {
		if strings.EqualFold(string(s), v) {
			return true
		}
	}
	return false
}

// Finding is one reported issue or informational note from any stage of a run.
type Finding struct {
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	FilePath *string  `json:"file_path"`
	Summary  string   `json:"summary"`
}

// New builds a Finding without a file reference.
func New(title string, severity Severity, summary string) Finding {
	return Finding{Title: title, Severity: severity, Summary: summary}
}

// NewForFile builds a Finding referencing path relative to the clone root.
func NewForFile(title string, severity Severity, path, summary string) Finding {
	f := New(title, severity, summary)
	if path != "" {
		f.FilePath = &path
	}
	return f
}

// Path returns the referenced file path or an empty string.
func (f Finding) Path() string {
	if f.FilePath == nil {
		return ""
	}
	return *f.FilePath
}
