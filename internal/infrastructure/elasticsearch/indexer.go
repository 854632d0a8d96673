// Package elasticsearch keeps the searchable account projection.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/account-service/internal/domain/entity"
)

// Mapping is the index definition applied at startup.
const Mapping = `{
  "mappings": {
    "properties": {
      "id":             {"type": "keyword"},
      "email":          {"type": "keyword"},
      "first_name":     {"type": "text"},
      "last_name":      {"type": "text"},
      "status":         {"type": "keyword"},
      "active":         {"type": "boolean"},
      "email_verified": {"type": "boolean"},
      "created_at":     {"type": "date"},
      "updated_at":     {"type": "date"}
    }
  }
}`

type Indexer struct {
	es      *elasticsearch.Client
	index   string
	timeout time.Duration
}

func NewIndexer(es *elasticsearch.Client, index string, timeout time.Duration) *Indexer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Indexer{es: es, index: index, timeout: timeout}
}

type document struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Status        string `json:"status"`
	Active        bool   `json:"active"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toDocument(a *entity.Account) document {
	return document{
		ID:            a.ID,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Status:        string(a.Status),
		Active:        a.Active,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:     a.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (i *Indexer) Index(ctx context.Context, a *entity.Account) error {
	b, err := json.Marshal(toDocument(a))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	req := esapi.IndexRequest{Index: i.index, DocumentID: a.ID, Body: bytes.NewReader(b), Refresh: "false"}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index response: %s", res.Status())
	}
	return nil
}

func (i *Indexer) Remove(ctx context.Context, accountID string) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	res, err := esapi.DeleteRequest{Index: i.index, DocumentID: accountID}.Do(ctx, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete response: %s", res.Status())
	}
	return nil
}
