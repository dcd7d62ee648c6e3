package qa

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

var (
	testsLinePattern     = regexp.MustCompile(`(?m)^\s*Tests\s+(\d.*)$`)
	testFilesLinePattern = regexp.MustCompile(`(?m)^\s*Test Files\s+(\d.*)$`)
	passedPattern        = regexp.MustCompile(`(\d+)\s+passed`)
	failedPattern        = regexp.MustCompile(`(\d+)\s+failed`)
	skippedPattern       = regexp.MustCompile(`(\d+)\s+skipped`)
	totalPattern         = regexp.MustCompile(`\((\d+)\)`)

	stmtsHeaderPattern = regexp.MustCompile(`%\s*Stmts\s*\|`)
	allFilesRowPattern = regexp.MustCompile(`(?m)^\s*All files\s*\|\s*([\d.]+)`)
	istanbulPattern    = regexp.MustCompile(`(?m)^\s*Statements\s*:\s*([\d.]+)%`)
)

// ParseVitestOutput parses vitest console output. The "Tests" summary line
// is preferred; the "Test Files" line is the fallback. Coverage is read
// independently and is -1 when no report is present.
func ParseVitestOutput(raw string) models.QAParseResult {
	clean := StripANSI(raw)
	result := models.QAParseResult{
		Coverage: -1,
		Raw:      excerpt(clean),
	}
	if strings.TrimSpace(clean) == "" {
		return result
	}

	summary := ""
	if m := testsLinePattern.FindStringSubmatch(clean); m != nil {
		summary = m[1]
	} else if m := testFilesLinePattern.FindStringSubmatch(clean); m != nil {
		summary = m[1]
	}

	if summary != "" {
		passed, okP := firstInt(passedPattern, summary)
		failed, okF := firstInt(failedPattern, summary)
		skipped, okS := firstInt(skippedPattern, summary)
		if okP || okF || okS {
			result.Parsed = true
			result.Passed = passed
			result.Failed = failed
			result.Skipped = skipped
			if total, ok := firstInt(totalPattern, summary); ok {
				result.Total = total
			} else {
				result.Total = passed + failed + skipped
			}
		}
	}

	result.Coverage = parseCoverage(clean)
	return result
}

// parseCoverage reads the "% Stmts" column of the text-table "All files"
// row, falls back to that row's first number when the header is missing,
// and then tries the Istanbul text-summary line.
func parseCoverage(clean string) float64 {
	if v, ok := stmtsColumn(clean); ok {
		return v
	}
	if v, ok := firstFloat(allFilesRowPattern, clean); ok {
		return v
	}
	if v, ok := firstFloat(istanbulPattern, clean); ok {
		return v
	}
	return -1
}

// stmtsColumn finds the "% Stmts" header cell and reads the same cell of
// the "All files" row.
func stmtsColumn(clean string) (float64, bool) {
	col := -1
	for _, line := range strings.Split(clean, "\n") {
		cells := strings.Split(line, "|")
		if col < 0 {
			if !stmtsHeaderPattern.MatchString(line) {
				continue
			}
			for i, cell := range cells {
				if strings.Join(strings.Fields(cell), "") == "%Stmts" {
					col = i
					break
				}
			}
			continue
		}
		if strings.TrimSpace(cells[0]) != "All files" || col >= len(cells) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cells[col]), 64)
		return v, err == nil
	}
	return 0, false
}

func firstInt(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstFloat(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
