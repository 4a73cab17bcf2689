// Package export reads crawler output and writes classified products back
// out, both as JSON Lines. Input lines are kept verbatim and only the
// classification fields are patched in on the way out, so fields this
// program does not model survive the round trip untouched.
package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tidwall/sjson"

	classifier "github.com/FrenchMajesty/product-classifier"
)

// maxLineBytes accommodates products with very long scraped descriptions.
const maxLineBytes = 4 << 20

// Record pairs a decoded product with the raw JSON line it came from.
type Record struct {
	Product classifier.ProductRecord

	raw []byte
}

// Apply copies a classification result onto the record.
func (r *Record) Apply(result *classifier.Result) {
	r.Product.TypeID = result.TypeID
	r.Product.ClassificationPath = result.Path
}

// ReadJSONL decodes one product per line. Blank lines are skipped; a line
// that is not valid JSON fails the whole read with its line number, since a
// torn input file usually means a truncated crawl worth noticing.
func ReadJSONL(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var records []Record
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var product classifier.ProductRecord
		if err := json.Unmarshal(raw, &product); err != nil {
			return nil, fmt.Errorf("export: line %d: %w", line, err)
		}

		rec := Record{Product: product, raw: append([]byte(nil), raw...)}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("export: read: %w", err)
	}
	return records, nil
}

// ReadJSONLFile reads records from a file on disk.
func ReadJSONLFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSONL(f)
}

// WriteJSONL writes one patched JSON line per record, in input order.
func WriteJSONL(w io.Writer, records []Record) error {
	buffered := bufio.NewWriter(w)
	for i := range records {
		line, err := records[i].encode()
		if err != nil {
			return fmt.Errorf("export: encode record %d: %w", i, err)
		}
		if _, err := buffered.Write(line); err != nil {
			return fmt.Errorf("export: write: %w", err)
		}
		if err := buffered.WriteByte('\n'); err != nil {
			return fmt.Errorf("export: write: %w", err)
		}
	}
	return buffered.Flush()
}

// WriteJSONLFile writes records to path atomically: the content lands under
// a temporary name first and is renamed into place, so a crash never leaves
// a half-written export next to good data.
func WriteJSONLFile(path string, records []Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("export: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteJSONL(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export: rename into place: %w", err)
	}
	return nil
}

// encode patches the classification fields into the original line. Records
// constructed in memory (no raw line) are marshaled from scratch.
func (r *Record) encode() ([]byte, error) {
	if r.raw == nil {
		return json.Marshal(r.Product)
	}

	out := r.raw
	var err error
	if r.Product.TypeID != nil {
		if out, err = sjson.SetBytes(out, "type_id", *r.Product.TypeID); err != nil {
			return nil, err
		}
	} else {
		if out, err = sjson.SetBytes(out, "type_id", nil); err != nil {
			return nil, err
		}
	}
	if r.Product.ClassificationPath != nil {
		if out, err = sjson.SetBytes(out, "classification_path", *r.Product.ClassificationPath); err != nil {
			return nil, err
		}
	} else {
		if out, err = sjson.SetBytes(out, "classification_path", nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

