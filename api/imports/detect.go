package imports

import (
	"regexp"
	"sort"
	"strings"

	"FinSightSaas/internal/config"
)

// Ordered date patterns. Order matters: MM/DD wins over DD/MM for values
// that satisfy both, and the first matching pattern names the layout used
// by the normalizer.
var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`), "2006-01-02"},
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "01/02/2006"},
	{regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), "01-02-2006"},
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "02/01/2006"},
	{regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), "02-01-2006"},
}

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`),
	regexp.MustCompile(`^\(\d+(\.\d{1,2})?\)$`),
	regexp.MustCompile(`^\d+(\.\d{1,2})?-$`),
}

func looksLikeDate(value string) bool {
	v := strings.TrimSpace(value)
	for _, p := range datePatterns {
		if p.re.MatchString(v) {
			return true
		}
	}
	return false
}

func looksLikeAmount(value string) bool {
	v := strings.TrimSpace(value)
	v = strings.ReplaceAll(v, "$", "")
	v = strings.ReplaceAll(v, ",", "")
	for _, p := range amountPatterns {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}

// sampleValues returns up to max non-empty values of one column.
func sampleValues(rows [][]string, col, max int) []string {
	out := make([]string, 0, max)
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		out = append(out, v)
		if len(out) == max {
			break
		}
	}
	return out
}

// DetectColumns infers the column mapping from a sample of raw rows. Pure
// function of the sample: identical input always yields an identical
// result.
func DetectColumns(header []string, rows [][]string, sampleSize int) DetectionResult {
	if sampleSize <= 0 || sampleSize > config.DetectionSampleMax {
		sampleSize = config.DetectionSampleMax
	}
	if len(rows) > sampleSize {
		rows = rows[:sampleSize]
	}

	detected := make(map[string]FieldDetection)
	claimed := make(map[int]bool)

	// Date column: highest regex match rate over the sample, no floor. A
	// weak winner lowers the overall confidence instead of vanishing.
	bestDate, bestDateConf := -1, 0.0
	for col := range header {
		values := sampleValues(rows, col, config.ValueSampleMax)
		if len(values) == 0 {
			continue
		}
		matches := 0
		for _, v := range values {
			if looksLikeDate(v) {
				matches++
			}
		}
		conf := float64(matches) / float64(len(values))
		if conf > 0 && conf > bestDateConf {
			bestDate, bestDateConf = col, conf
		}
	}
	if bestDate >= 0 {
		claimed[bestDate] = true
		detected[FieldDate] = FieldDetection{
			SourceColumn: header[bestDate],
			Confidence:   bestDateConf,
			Format:       detectDateFormat(sampleValues(rows, bestDate, config.ValueSampleMax)),
		}
	}

	// Description column: longest mean text length among unclaimed columns.
	bestDesc, bestDescLen := -1, config.DescriptionMinMeanLen
	for col := range header {
		if claimed[col] {
			continue
		}
		values := sampleValues(rows, col, config.ValueSampleMax)
		if len(values) == 0 {
			continue
		}
		total := 0
		for _, v := range values {
			total += len(v)
		}
		mean := float64(total) / float64(len(values))
		if mean > bestDescLen {
			bestDesc, bestDescLen = col, mean
		}
	}
	if bestDesc >= 0 {
		claimed[bestDesc] = true
		conf := bestDescLen / 50
		if conf > 1.0 {
			conf = 1.0
		}
		detected[FieldDescription] = FieldDetection{SourceColumn: header[bestDesc], Confidence: conf}
	}

	// Amount columns: match rate > 0.7, classified by column name.
	var amountCols, debitCols, creditCols []int
	for col := range header {
		if claimed[col] {
			continue
		}
		values := sampleValues(rows, col, config.ValueSampleMax)
		if len(values) == 0 {
			continue
		}
		matches := 0
		for _, v := range values {
			if looksLikeAmount(v) {
				matches++
			}
		}
		if float64(matches)/float64(len(values)) <= config.MatchRateMin {
			continue
		}
		name := strings.ToLower(header[col])
		switch {
		case strings.Contains(name, "debit") || strings.Contains(name, "withdraw"):
			debitCols = append(debitCols, col)
		case strings.Contains(name, "credit") || strings.Contains(name, "deposit"):
			creditCols = append(creditCols, col)
		default:
			amountCols = append(amountCols, col)
		}
	}
	switch {
	case len(debitCols) > 0 && len(creditCols) > 0:
		claimed[debitCols[0]] = true
		claimed[creditCols[0]] = true
		detected[FieldDebit] = FieldDetection{SourceColumn: header[debitCols[0]], Confidence: 0.9}
		detected[FieldCredit] = FieldDetection{SourceColumn: header[creditCols[0]], Confidence: 0.9}
	case len(amountCols) > 0:
		claimed[amountCols[0]] = true
		detected[FieldAmount] = FieldDetection{SourceColumn: header[amountCols[0]], Confidence: 0.85}
	}

	// Balance: remaining numeric-like column named "balance".
	for col := range header {
		if claimed[col] {
			continue
		}
		if !strings.Contains(strings.ToLower(header[col]), "balance") {
			continue
		}
		values := sampleValues(rows, col, config.ValueSampleMax)
		if len(values) == 0 || !looksLikeAmount(values[0]) {
			continue
		}
		claimed[col] = true
		detected[FieldBalance] = FieldDetection{SourceColumn: header[col], Confidence: 0.8}
		break
	}

	var unmapped []string
	for col, name := range header {
		if !claimed[col] {
			unmapped = append(unmapped, name)
		}
	}
	sort.Strings(unmapped)

	// Overall confidence averages only the fields that were detected.
	overall := 0.0
	if len(detected) > 0 {
		for _, f := range detected {
			overall += f.Confidence
		}
		overall /= float64(len(detected))
	}

	return DetectionResult{
		Columns:             detected,
		UnmappedColumns:     unmapped,
		DetectionConfidence: overall,
		RequiresManualInput: overall < config.ManualInputThreshold,
	}
}

// detectDateFormat names the layout of the first value that matches one of
// the ordered patterns.
func detectDateFormat(values []string) string {
	for _, v := range values {
		for _, p := range datePatterns {
			if p.re.MatchString(strings.TrimSpace(v)) {
				return p.layout
			}
		}
	}
	return ""
}
