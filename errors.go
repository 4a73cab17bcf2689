package classifier

import "errors"

var (
	// ErrNoConfidenceFloor is returned by New when the config omits a
	// confidence floor. The floor is a product decision, not a tunable with
	// a sensible universal default, so callers must set it explicitly.
	ErrNoConfidenceFloor = errors.New("classifier: confidence floor must be set")

	// ErrEmbeddingUnavailable is returned by Classify when the embedding
	// provider fails for the query. Retrieval cannot proceed without a
	// query vector, so this is fatal for the product (but only for the
	// product: callers typically log it and move to the next record).
	ErrEmbeddingUnavailable = errors.New("classifier: embedding provider unavailable")

	// ErrEmptyProduct is returned by Classify when the record has no usable
	// text at all.
	ErrEmptyProduct = errors.New("classifier: product has no text to classify")
)
