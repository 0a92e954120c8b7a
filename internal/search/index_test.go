// internal/search/index_test.go
package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	stderrors "comms-portal/internal/common/errors"
)

func TestBuildQuery_MatchAllWhenEmpty(t *testing.T) {
	body := buildQuery(Query{})

	assert.Contains(t, body["query"].(map[string]interface{}), "match_all")
}

func TestBuildQuery_KeywordsAndFilters(t *testing.T) {
	body := buildQuery(Query{
		Keywords: "fall kickoff",
		Status:   "pending",
		Ministry: "Youth Ministry",
	})

	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})

	must := boolQuery["must"].([]interface{})
	assert.Len(t, must, 1)
	multiMatch := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "fall kickoff", multiMatch["query"])

	filters := boolQuery["filter"].([]interface{})
	assert.Len(t, filters, 2)
}

func TestBuildQuery_FiltersOnly(t *testing.T) {
	body := buildQuery(Query{Status: "approved"})

	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.NotContains(t, boolQuery, "must")
	assert.Len(t, boolQuery["filter"].([]interface{}), 1)
}

func TestSearch_UnconfiguredIndex(t *testing.T) {
	var idx *Index

	_, err := idx.Search(context.Background(), Query{Keywords: "picnic"})

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeSearchUnavailable))
}
