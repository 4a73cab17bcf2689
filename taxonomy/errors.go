package taxonomy

import "fmt"

// MalformedTaxonomyError reports a structural problem in the taxonomy
// definition. These are fatal at startup: the engine refuses to classify
// against a partial or inconsistent tree.
type MalformedTaxonomyError struct {
	ID     int    // offending node id, 0 when not tied to a single node
	Reason string
}

func (e *MalformedTaxonomyError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("malformed taxonomy: node %d: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("malformed taxonomy: %s", e.Reason)
}
