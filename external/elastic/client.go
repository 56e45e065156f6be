package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/qubic/go-ledger-simulator/entities"
)

type Client struct {
	index    string
	esClient *elasticsearch.Client
}

func NewClient(address, index string, timeout time.Duration) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{address},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: timeout,
		},
	}

	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %v", err)
	}

	return &Client{
		index:    index,
		esClient: esClient,
	}, nil
}

// NewClientFromES wraps an already configured elasticsearch client, for callers that need
// credentials or retry settings.
func NewClientFromES(esClient *elasticsearch.Client, index string) *Client {
	return &Client{
		index:    index,
		esClient: esClient,
	}
}

type bulkResponse struct {
	Errors bool `json:"errors"`
}

func (es *Client) PublishTransactions(ctx context.Context, txs []entities.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, tx := range txs {
		// Metadata line for each document
		meta := []byte(fmt.Sprintf(`{ "index": { "_index": "%s", "_id": "%s" } }%s`, es.index, tx.ViewingID, "\n"))
		buf.Write(meta)

		data, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("error serializing transaction: %w", err)
		}
		buf.Write(data)
		buf.Write([]byte("\n"))
	}

	res, err := es.esClient.Bulk(bytes.NewReader(buf.Bytes()), es.esClient.Bulk.WithContext(ctx), es.esClient.Bulk.WithRefresh("true"))
	if err != nil {
		return fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk request error: %s", res.String())
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return fmt.Errorf("decoding bulk response: %w", err)
	}
	if br.Errors {
		return fmt.Errorf("bulk request contained failed items")
	}

	return nil
}
