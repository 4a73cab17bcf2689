package classifier_test

import (
	"context"
	"fmt"
	"log"
	"os"

	classifier "github.com/FrenchMajesty/product-classifier"
	"github.com/FrenchMajesty/product-classifier/adapters"
	"github.com/FrenchMajesty/product-classifier/clients/openai"
)

// Example shows classifying a single product with embedding retrieval only
func Example_basic() {
	embedding, err := adapters.VoyageFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	engine, err := classifier.New(context.Background(), classifier.Config{
		TaxonomyPath:    "taxonomy.csv",
		Embedding:       embedding,
		ConfidenceFloor: classifier.Float32(0.45),
	})
	if err != nil {
		log.Fatal(err)
	}

	result, err := engine.Classify(context.Background(), &classifier.ProductRecord{
		ProductName:      "Sikagrout 212",
		ShortDescription: "Cementitious, pourable, non-shrink grout",
	}, false)
	if err != nil {
		log.Fatal(err)
	}

	if result.TypeID == nil {
		fmt.Println("no confident match")
		return
	}
	fmt.Printf("Category: %s (%.2f)\n", *result.Path, result.Confidence)
}

// Example shows enabling the generative reranker on top of retrieval
func Example_withReranker() {
	embedding, err := adapters.VoyageFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	chat := openai.NewClient(os.Getenv("OPENAI_API_KEY"), "")

	engine, err := classifier.New(context.Background(), classifier.Config{
		TaxonomyPath:    "taxonomy.csv",
		Embedding:       embedding,
		Reranker:        adapters.NewLLMReranker(chat, ""),
		ConfidenceFloor: classifier.Float32(0.45),
		TopK:            5,
	})
	if err != nil {
		log.Fatal(err)
	}

	result, err := engine.Classify(context.Background(), &classifier.ProductRecord{
		ProductName:      "Sikadur 31 CF",
		ShortDescription: "Two-part epoxy adhesive and repair mortar",
	}, true)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.Reranked)
}
