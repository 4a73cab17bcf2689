package classifier

// ProductRecord is one scraped product as delivered by the crawler. The
// engine reads the descriptive fields to build its query text and writes
// TypeID/ClassificationPath on the way out; everything else passes through
// untouched.
type ProductRecord struct {
	Brand                   string            `json:"brand,omitempty"`
	ProductName             string            `json:"product_name"`
	ModelArticleNumber      string            `json:"model_article_number,omitempty"`
	ShortDescription        string            `json:"short_description,omitempty"`
	LongDescription         string            `json:"long_description,omitempty"`
	ProductImageURL         string            `json:"product_image_url,omitempty"`
	DatasheetURL            string            `json:"datasheet_url,omitempty"`
	TechnicalSpecifications map[string]string `json:"technical_specifications,omitempty"`
	ProductURL              string            `json:"product_url,omitempty"`

	TypeID             *int    `json:"type_id"`
	ClassificationPath *string `json:"classification_path"`
}

// Result is the outcome of classifying one product. TypeID and Path are nil
// when no candidate cleared the confidence floor.
type Result struct {
	// TypeID is the chosen taxonomy node id.
	TypeID *int

	// Path is the display path of the chosen node, e.g.
	// "Construction > Grouting > Cementitious Grouts".
	Path *string

	// Confidence is the embedding similarity of the top candidate, kept
	// even when the reranker chose a different node.
	Confidence float32

	// Reranked reports whether the generative reranker picked the node (as
	// opposed to embedding similarity alone).
	Reranked bool
}
