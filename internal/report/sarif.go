package report

import (
	"github.com/vulminator-io/vulminator/internal/findings"
	"github.com/vulminator-io/vulminator/internal/sarif"
)

// WriteSARIF exports the findings as a SARIF 2.1.0 log at path, most severe results first.
func (s *Synthesizer) WriteSARIF(path string, fs []findings.Finding) error {
	report, err := sarif.FromFindings(s.logger, fs)
	if err != nil {
		return err
	}
	report.SortResultsByLevel()
	return report.WriteFile(path)
}
