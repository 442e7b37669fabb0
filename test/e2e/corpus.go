// Package e2e provides end-to-end tests over a generated regulatory corpus.
package e2e

import (
	"fmt"

	"github.com/hyperjump/eximrag/internal/models"
)

// CorpusDocument is one entry in the generated corpus.
type CorpusDocument struct {
	ID      string
	Source  string
	Country string
	Year    int
	Content string
}

// corpusTopics supplies the subject of each generated notification.
var corpusTopics = []struct {
	Subject string
	Body    string
}{
	{"duty drawback", "revised all industry rates of duty drawback for exported goods"},
	{"advance authorisation", "duty free import of inputs physically incorporated in export products"},
	{"export obligation", "extension of the export obligation period for capital goods"},
	{"rice exports", "minimum export price and registration of contracts for basmati rice"},
	{"food facility registration", "biennial renewal of food facility registration before shipment"},
	{"prior notice", "prior notice of imported food shipments submitted electronically"},
	{"import alert", "detention without physical examination of products from listed firms"},
	{"rules of origin", "certificate of origin requirements under the preferential trade agreement"},
	{"customs valuation", "determination of transaction value for related party imports"},
	{"anti dumping duty", "definitive anti dumping duty on imports of specified steel products"},
	{"export licensing", "licence requirement for dual use items under the export control list"},
	{"labeling requirements", "country of origin marking and nutrition labeling of packaged foods"},
}

var (
	corpusSources   = []string{"DGFT", "FDA", "CBIC"}
	corpusCountries = []string{"IN", "US", "CN"}
)

// BuildCorpus returns n notifications cycling through sources, countries and
// topics. Every content string is unique so an exact-text query identifies its
// document.
func BuildCorpus(n int) []CorpusDocument {
	docs := make([]CorpusDocument, n)
	for i := range docs {
		topic := corpusTopics[i%len(corpusTopics)]
		source := corpusSources[i%len(corpusSources)]
		country := corpusCountries[(i/len(corpusSources))%len(corpusCountries)]
		docs[i] = CorpusDocument{
			ID:      fmt.Sprintf("notif-%03d", i),
			Source:  source,
			Country: country,
			Year:    2020 + i%5,
			Content: fmt.Sprintf("%s notification %03d on %s: %s.", source, i, topic.Subject, topic.Body),
		}
	}
	return docs
}

// ToDocumentInputs converts the corpus to ingestion inputs with source,
// country and year metadata.
func ToDocumentInputs(docs []CorpusDocument) []*models.DocumentInput {
	inputs := make([]*models.DocumentInput, len(docs))
	for i, d := range docs {
		inputs[i] = &models.DocumentInput{
			ID:      d.ID,
			Content: d.Content,
			Metadata: map[string]interface{}{
				"source":  d.Source,
				"country": d.Country,
				"year":    d.Year,
			},
		}
	}
	return inputs
}
