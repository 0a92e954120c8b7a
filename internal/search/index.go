// internal/search/index.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"comms-portal/internal/common/errors"
	"comms-portal/internal/common/logger"
	"comms-portal/internal/models"
)

// Index maintains the admin search index for submissions. Writes are
// best-effort: the database stays the source of truth, so indexing
// failures are logged and never surfaced to the submitter.
type Index struct {
	client     *elasticsearch.Client
	indexName  string
	maxResults int
	logger     logger.Logger
}

func New(client *elasticsearch.Client, indexName string, maxResults int, log logger.Logger) *Index {
	if maxResults <= 0 {
		maxResults = 50
	}
	return &Index{
		client:     client,
		indexName:  indexName,
		maxResults: maxResults,
		logger:     log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

// Index upserts a submission document keyed by its record ID.
func (i *Index) Index(ctx context.Context, sub *models.Submission) {
	if i == nil || i.client == nil || sub == nil {
		return
	}

	body, err := json.Marshal(sub)
	if err != nil {
		i.logger.Warn("failed to marshal submission for indexing", map[string]interface{}{
			"recordId": sub.ID,
			"error":    err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      i.indexName,
		DocumentID: sub.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		i.logger.Warn("failed to index submission", map[string]interface{}{
			"recordId": sub.ID,
			"error":    err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.logger.Warn("index request rejected", map[string]interface{}{
			"recordId": sub.ID,
			"status":   res.Status(),
		})
	}
}

// Ping reports whether the backing cluster is reachable.
func (i *Index) Ping(ctx context.Context) error {
	if i == nil || i.client == nil {
		return fmt.Errorf("search index is not configured")
	}
	res, err := i.client.Ping(i.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// Query is the admin search request.
type Query struct {
	Keywords string
	Status   string
	Ministry string
	From     int
	Size     int
}

// Result holds matching documents plus search metadata.
type Result struct {
	Data      []map[string]interface{} `json:"data"`
	TotalHits int64                    `json:"totalHits"`
	MaxScore  float64                  `json:"maxScore"`
	Took      int64                    `json:"took"`
}

// Search runs a keyword and filter query against the submission index.
func (i *Index) Search(ctx context.Context, q Query) (*Result, error) {
	if i == nil || i.client == nil {
		return nil, errors.NewSearchUnavailableError(fmt.Errorf("search index is not configured"))
	}

	if q.Size < 1 || q.Size > i.maxResults {
		q.Size = i.maxResults
	}
	if q.From < 0 {
		q.From = 0
	}

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	req := esapi.SearchRequest{
		Index: []string{i.indexName},
		Body:  bytes.NewReader(body),
		From:  &q.From,
		Size:  &q.Size,
	}

	start := time.Now()
	res, err := req.Do(ctx, i.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewSearchUnavailableError(context.DeadlineExceeded)
		}
		return nil, errors.NewSearchUnavailableError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(fmt.Errorf("search query failed: %s", res.Status()))
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	result := &Result{Took: time.Since(start).Milliseconds()}

	hits, ok := r["hits"].(map[string]interface{})
	if !ok {
		return result, nil
	}
	if total, ok := hits["total"].(map[string]interface{}); ok {
		if v, ok := total["value"].(float64); ok {
			result.TotalHits = int64(v)
		}
	}
	if ms, ok := hits["max_score"].(float64); ok {
		result.MaxScore = ms
	}
	if docs, ok := hits["hits"].([]interface{}); ok {
		for _, hit := range docs {
			h, ok := hit.(map[string]interface{})
			if !ok {
				continue
			}
			if source, ok := h["_source"].(map[string]interface{}); ok {
				result.Data = append(result.Data, source)
			}
		}
	}

	return result, nil
}

func buildQuery(q Query) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if q.Keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Keywords,
				"fields": []string{"announcementBody^3", "ministry^2", "submitterName"},
				"type":   "best_fields",
			},
		})
	}
	if q.Status != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"approvalStatus": q.Status},
		})
	}
	if q.Ministry != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"ministry": q.Ministry},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(mustClauses) > 0 {
		boolQuery["must"] = mustClauses
	}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}
	if len(boolQuery) == 0 {
		return map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
			"sort":  []interface{}{map[string]interface{}{"submittedAt": "asc"}},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
}
