package taxonomy

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads a taxonomy definition in the scraper's interchange format:
// a header row followed by `id,name,parent_id,path` records. An empty
// parent_id denotes a root. The path column is advisory; the loader always
// rebuilds ancestor chains itself and rejects a stored path that disagrees
// with the parent links.
func LoadCSV(r io.Reader) (*Tree, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, &MalformedTaxonomyError{Reason: "empty definition"}
	}

	header := records[0]
	col := columnIndex(header)
	for _, name := range []string{"id", "name", "parent_id"} {
		if _, ok := col[name]; !ok {
			return nil, &MalformedTaxonomyError{Reason: fmt.Sprintf("missing %q column", name)}
		}
	}

	rows := make([]Row, 0, len(records)-1)
	declaredPaths := make(map[int]string)
	for i, rec := range records[1:] {
		line := i + 2
		id, err := strconv.Atoi(strings.TrimSpace(rec[col["id"]]))
		if err != nil {
			return nil, &MalformedTaxonomyError{Reason: fmt.Sprintf("line %d: bad id %q", line, rec[col["id"]])}
		}

		parentID := 0
		if raw := strings.TrimSpace(rec[col["parent_id"]]); raw != "" {
			p, err := parseParentID(raw)
			if err != nil {
				return nil, &MalformedTaxonomyError{ID: id, Reason: fmt.Sprintf("line %d: bad parent_id %q", line, raw)}
			}
			parentID = p
		}

		rows = append(rows, Row{ID: id, Name: strings.TrimSpace(rec[col["name"]]), ParentID: parentID})

		if pc, ok := col["path"]; ok && pc < len(rec) {
			if p := strings.TrimSpace(rec[pc]); p != "" {
				declaredPaths[id] = p
			}
		}
	}

	tree, err := Load(rows)
	if err != nil {
		return nil, err
	}

	// Cross-check declared paths against the materialized chains.
	for id, declared := range declaredPaths {
		if got := tree.Node(id).PathString(); got != declared {
			return nil, &MalformedTaxonomyError{ID: id, Reason: fmt.Sprintf("declared path %q does not match parent chain %q", declared, got)}
		}
	}

	return tree, nil
}

// LoadCSVFile opens path and loads the taxonomy definition from it.
func LoadCSVFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: open definition: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// parseParentID accepts both integer and float renditions of parent_id.
// Spreadsheet exports routinely turn a nullable integer column into floats
// ("2.0"), so we tolerate the float form as long as it is whole.
func parseParentID(raw string) (int, error) {
	if p, err := strconv.Atoi(raw); err == nil {
		return p, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return int(f), nil
}

func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return col
}
