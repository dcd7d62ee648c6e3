package qa

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

var (
	problemsPattern    = regexp.MustCompile(`[✖×]\s*(\d+)\s+problems?\s*\((\d+)\s+errors?,\s*(\d+)\s+warnings?\)`)
	errorsAndWarnings  = regexp.MustCompile(`(\d+)\s+errors?\s+and\s+(\d+)\s+warnings?`)
	stylishSeverityRow = regexp.MustCompile(`^\s*\d+:\d+\s+(error|warning)\s`)
	compactSeverityTag = regexp.MustCompile(`\[(Error|Warning)/`)
)

// ParseEslintOutput parses eslint console output. Missing output is a
// pass, and output that cannot be recognised is reported as unparsed but
// still passing: a lint report must never block on its own format.
func ParseEslintOutput(raw string) models.LintParseResult {
	clean := StripANSI(raw)
	result := models.LintParseResult{Raw: excerpt(clean)}

	if strings.TrimSpace(clean) == "" {
		result.Parsed = true
		result.Passed = true
		return result
	}

	if m := problemsPattern.FindStringSubmatch(clean); m != nil {
		result.ErrorCount = atoi(m[2])
		result.WarningCount = atoi(m[3])
		result.Parsed = true
	} else if m := errorsAndWarnings.FindStringSubmatch(clean); m != nil {
		result.ErrorCount = atoi(m[1])
		result.WarningCount = atoi(m[2])
		result.Parsed = true
	} else {
		errCount, warnCount := countSeverityLines(clean)
		if errCount+warnCount > 0 {
			result.ErrorCount = errCount
			result.WarningCount = warnCount
			result.Parsed = true
		}
	}

	result.Passed = result.ErrorCount == 0
	return result
}

func countSeverityLines(clean string) (int, int) {
	var errCount, warnCount int
	for _, line := range strings.Split(clean, "\n") {
		severity := ""
		if m := stylishSeverityRow.FindStringSubmatch(line); m != nil {
			severity = m[1]
		} else if m := compactSeverityTag.FindStringSubmatch(line); m != nil {
			severity = strings.ToLower(m[1])
		}
		switch severity {
		case "error":
			errCount++
		case "warning":
			warnCount++
		}
	}
	return errCount, warnCount
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
