package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTextStripsMarkupAndCollapsesWhitespace(t *testing.T) {
	in := "<p>High-strength\n\tgrout   for <b>precision</b> work</p>"
	assert.Equal(t, "High-strength grout for precision work", cleanText(in))
}

func TestBuildQueryTextOrdersFields(t *testing.T) {
	p := &ProductRecord{
		ProductName:      "Sikagrout 212",
		ShortDescription: "Cementitious grout",
		LongDescription:  "Pourable, non-shrink grout for structural applications.",
		TechnicalSpecifications: map[string]string{
			"compressive_strength": "50 MPa",
			"color":                "grey",
		},
	}

	got := buildQueryText(p, DefaultQueryBudget)
	assert.Equal(t,
		"Sikagrout 212. Cementitious grout. "+
			"Pourable, non-shrink grout for structural applications. "+
			"color: grey, compressive_strength: 50 MPa",
		got)
}

func TestBuildQueryTextIsDeterministic(t *testing.T) {
	p := &ProductRecord{
		ProductName: "Widget",
		TechnicalSpecifications: map[string]string{
			"a": "1", "b": "2", "c": "3", "d": "4", "e": "5",
		},
	}
	first := buildQueryText(p, DefaultQueryBudget)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, buildQueryText(p, DefaultQueryBudget))
	}
}

func TestBuildQueryTextBoundsLongDescription(t *testing.T) {
	p := &ProductRecord{
		ProductName:     "Widget",
		LongDescription: strings.Repeat("boilerplate ", 200),
	}
	got := buildQueryText(p, 100)
	assert.LessOrEqual(t, len(got), len("Widget. ")+100)
}

func TestBuildQueryTextEmptyRecord(t *testing.T) {
	assert.Equal(t, "", buildQueryText(&ProductRecord{}, DefaultQueryBudget))
	assert.Equal(t, "", buildQueryText(&ProductRecord{LongDescription: "<div>  </div>"}, DefaultQueryBudget))
}
