// Package evaluate scores classified products against a hand-labeled golden
// set. Products are joined to golden labels by normalized product name, so
// the golden file does not need to track crawler-internal ids.
package evaluate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/FrenchMajesty/product-classifier/export"
)

// GoldenEntry is one hand-labeled product.
type GoldenEntry struct {
	ProductName    string
	ExpectedTypeID int
}

// Miss records a matched product whose prediction disagreed with the label.
type Miss struct {
	ProductName string
	Expected    int
	Got         *int
}

// Report summarizes one evaluation run.
type Report struct {
	// Total is the number of classified records scored.
	Total int
	// Matched is how many records had a golden label.
	Matched int
	// Correct is how many matched records carried the expected type id. An
	// unclassified record (nil type id) never counts as correct, even when
	// the golden label is disputed.
	Correct int

	Misses []Miss
}

// Accuracy is Correct over Matched. Zero matches yields zero, not NaN.
func (r *Report) Accuracy() float64 {
	if r.Matched == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Matched)
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "evaluated %d records, %d matched golden set, %d correct (accuracy %.1f%%)\n",
		r.Total, r.Matched, r.Correct, r.Accuracy()*100)
	for _, m := range r.Misses {
		got := "unclassified"
		if m.Got != nil {
			got = strconv.Itoa(*m.Got)
		}
		fmt.Fprintf(&b, "  miss: %q expected %d, got %s\n", m.ProductName, m.Expected, got)
	}
	return b.String()
}

// Evaluate joins records to golden labels by normalized product name and
// scores the matches. Records without a golden label are counted in Total
// but otherwise ignored.
func Evaluate(records []export.Record, golden []GoldenEntry) *Report {
	labels := make(map[string]int, len(golden))
	for _, g := range golden {
		labels[normalizeName(g.ProductName)] = g.ExpectedTypeID
	}

	report := &Report{Total: len(records)}
	for i := range records {
		p := &records[i].Product
		expected, ok := labels[normalizeName(p.ProductName)]
		if !ok {
			continue
		}
		report.Matched++
		if p.TypeID != nil && *p.TypeID == expected {
			report.Correct++
			continue
		}
		report.Misses = append(report.Misses, Miss{
			ProductName: p.ProductName,
			Expected:    expected,
			Got:         p.TypeID,
		})
	}
	return report
}

// LoadGoldenCSV reads a golden set with a product_name,type_id header.
func LoadGoldenCSV(r io.Reader) ([]GoldenEntry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("evaluate: read golden header: %w", err)
	}
	nameCol, idCol := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.ToLower(col)) {
		case "product_name":
			nameCol = i
		case "type_id":
			idCol = i
		}
	}
	if nameCol < 0 || idCol < 0 {
		return nil, fmt.Errorf("evaluate: golden set needs product_name and type_id columns")
	}

	var entries []GoldenEntry
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("evaluate: golden line %d: %w", line, err)
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[idCol]))
		if err != nil {
			return nil, fmt.Errorf("evaluate: golden line %d: bad type_id %q", line, row[idCol])
		}
		entries = append(entries, GoldenEntry{
			ProductName:    row[nameCol],
			ExpectedTypeID: id,
		})
	}
	return entries, nil
}

// LoadGoldenCSVFile reads a golden set from disk.
func LoadGoldenCSVFile(path string) ([]GoldenEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("evaluate: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadGoldenCSV(f)
}

// normalizeName makes the join key tolerant of case and whitespace drift
// between the crawl and the hand-labeled file.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
