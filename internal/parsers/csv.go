package parsers

import (
	"encoding/csv"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/contex/internal/interfaces"
	"github.com/ternarybob/contex/internal/models"
)

var (
	csvCodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^\s*(def|class|import|from|function|const|let|var)\s+`),
		regexp.MustCompile(`(?m)^\s*#include`),
		regexp.MustCompile(`(?m)^\s*package\s+`),
	}
	csvMarkdownHeaderPattern = regexp.MustCompile(`(?m)^#{1,6}\s`)
	csvYAMLIndentPattern     = regexp.MustCompile(`(?m)^\s{2,}\w+:\s`)
)

var csvCandidateDelims = []rune{',', '\t', ';', '|'}

// CSVParser sniffs a delimiter from the first 1KB and infers column types
// from the first 100 data rows, requiring tabular consistency before
// accepting the input (§4.1).
type CSVParser struct{}

func NewCSVParser() *CSVParser { return &CSVParser{} }

func (p *CSVParser) FormatName() models.Format { return models.FormatCSV }

func (p *CSVParser) Priority() int { return 11 }

func (p *CSVParser) CanParse(raw any, hint string) bool {
	if hint == "csv" || hint == "tsv" {
		return true
	}
	s, ok := raw.(string)
	if !ok {
		return false
	}

	for _, re := range csvCodePatterns {
		if re.MatchString(s) {
			return false
		}
	}
	if csvMarkdownHeaderPattern.MatchString(s) {
		return false
	}
	if csvYAMLIndentPattern.MatchString(s) {
		return false
	}

	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) < 2 {
		return false
	}

	sample := s
	if len(sample) > 1024 {
		sample = sample[:1024]
	}

	delim, rows, ok := sniffDialect(sample)
	if !ok {
		return false
	}
	_ = delim

	if len(rows) < 2 {
		return false
	}

	colCounts := make([]int, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			colCounts = append(colCounts, len(row))
		}
	}
	if len(colCounts) == 0 {
		return false
	}

	modal, consistent := modalCount(colCounts)
	if float64(consistent)/float64(len(colCounts)) < 0.7 {
		return false
	}
	if modal < 2 {
		return false
	}

	return true
}

func (p *CSVParser) Parse(raw any) interfaces.ParseResult {
	s, ok := raw.(string)
	if !ok {
		return interfaces.ParseResult{Success: false, Error: errNotString("CSV")}
	}

	sample := s
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	delim, _, ok := sniffDialect(sample)
	if !ok {
		delim = ','
	}

	reader := csv.NewReader(strings.NewReader(s))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return interfaces.ParseResult{Success: false, Error: err}
	}
	if len(rows) == 0 {
		return interfaces.ParseResult{Success: false, Error: errEmptyCSV}
	}

	hasHeader := looksLikeHeader(rows[0], rows[1:])

	var headers []string
	var dataRows [][]string
	if hasHeader && len(rows) > 1 {
		headers = rows[0]
		dataRows = rows[1:]
	} else {
		headers = make([]string, len(rows[0]))
		for i := range headers {
			headers[i] = "col_" + strconv.Itoa(i)
		}
		dataRows = rows
	}

	records := make([]map[string]string, 0, len(dataRows))
	for _, row := range dataRows {
		if len(row) != len(headers) {
			continue
		}
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			rec[h] = row[i]
		}
		records = append(records, rec)
	}

	schema := detectSchema(records, headers)
	typedRecords := applySchema(records, schema, headers)

	normalized := map[string]any{
		"records":      typedRecords,
		"schema":       schema,
		"row_count":    len(typedRecords),
		"column_count": len(headers),
	}

	return interfaces.ParseResult{
		Success:      true,
		Normalized:   normalized,
		IsStructured: true,
		Metadata: map[string]any{
			"dialect":    string(delim),
			"has_header": hasHeader,
			"columns":    headers,
		},
	}
}

var errEmptyCSV = errors.New("CSV is empty")

// sniffDialect picks the delimiter among a small candidate set that
// produces the most consistent column count across the sample's rows,
// standing in for Python's csv.Sniffer on a fixed 1KB sample.
func sniffDialect(sample string) (rune, [][]string, bool) {
	var bestDelim rune
	var bestRows [][]string
	bestScore := -1

	for _, d := range csvCandidateDelims {
		reader := csv.NewReader(strings.NewReader(sample))
		reader.Comma = d
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		rows, err := reader.ReadAll()
		if err != nil || len(rows) < 2 {
			continue
		}
		counts := make([]int, 0, len(rows))
		for _, r := range rows {
			if len(r) > 0 {
				counts = append(counts, len(r))
			}
		}
		if len(counts) == 0 {
			continue
		}
		modal, consistent := modalCount(counts)
		if modal < 2 {
			continue
		}
		score := consistent
		if score > bestScore {
			bestScore = score
			bestDelim = d
			bestRows = rows
		}
	}

	if bestScore < 0 {
		return 0, nil, false
	}
	return bestDelim, bestRows, true
}

func modalCount(counts []int) (modal int, consistent int) {
	freq := make(map[int]int)
	for _, c := range counts {
		freq[c]++
	}
	best := -1
	for c, n := range freq {
		if n > best {
			best = n
			modal = c
		}
	}
	consistent = freq[modal]
	return
}

// looksLikeHeader guesses whether the first row is a header by checking
// whether its values fail to type-convert the way the sampled data rows do
// (e.g. header cells are non-numeric while a data column is numeric).
func looksLikeHeader(first []string, rest [][]string) bool {
	if len(rest) == 0 {
		return true
	}
	for col := range first {
		if _, err := strconv.ParseFloat(first[col], 64); err == nil {
			// Header cell parses as a number: this column gives no
			// evidence of a header.
			continue
		}
		for _, row := range rest {
			if col < len(row) {
				if _, err := strconv.ParseFloat(row[col], 64); err == nil {
					return true
				}
			}
		}
	}
	return false
}

func detectSchema(records []map[string]string, headers []string) map[string]string {
	schema := make(map[string]string, len(headers))
	for _, h := range headers {
		values := make([]string, 0, len(records))
		for i, r := range records {
			if i >= 100 {
				break
			}
			values = append(values, r[h])
		}
		schema[h] = inferType(values)
	}
	return schema
}

var csvBoolValues = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true,
	"1": true, "0": true, "t": true, "f": true, "y": true, "n": true,
}

var csvTrueValues = map[string]bool{
	"true": true, "yes": true, "1": true, "t": true, "y": true,
}

func inferType(values []string) string {
	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		t := strings.TrimSpace(v)
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	if len(nonEmpty) == 0 {
		return "string"
	}

	allInt := true
	for _, v := range nonEmpty {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
			break
		}
	}
	if allInt {
		return "int"
	}

	allFloat := true
	for _, v := range nonEmpty {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allFloat = false
			break
		}
	}
	if allFloat {
		return "float"
	}

	allBool := true
	for _, v := range nonEmpty {
		if !csvBoolValues[strings.ToLower(v)] {
			allBool = false
			break
		}
	}
	if allBool {
		return "bool"
	}

	return "string"
}

func applySchema(records []map[string]string, schema map[string]string, headers []string) []map[string]any {
	typed := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		tr := make(map[string]any, len(headers))
		for _, h := range headers {
			tr[h] = convertValue(rec[h], schema[h])
		}
		typed = append(typed, tr)
	}
	return typed
}

func convertValue(value, colType string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	switch colType {
	case "int":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		return value
	case "float":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		return value
	case "bool":
		return csvTrueValues[strings.ToLower(value)]
	default:
		return value
	}
}
