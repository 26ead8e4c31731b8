package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// maxSnippetLen caps snippet size before fusion; longer hits are dropped.
const maxSnippetLen = 2000

// #region service
// Service is the transport-level interface to the hybrid search service.
// An implementation exists over HTTP; tests inject their own.
type Service interface {
	Search(ctx context.Context, query string, keywords []string, topK int) ([]ScoredDoc, error)
	Health(ctx context.Context) error
}

// #endregion service

// #region client-struct
// Client wraps the search service. Queries go out with pre-extracted
// keywords for the lexical side, and hits come back sanitized: empty or
// overlong snippets and duplicate IDs are dropped.
type Client struct {
	svc Service
}

// #endregion client-struct

// #region constructor
// NewClient creates a Client talking HTTP to the search service.
func NewClient(addr string) *Client {
	return &Client{svc: &httpService{
		baseURL: normalizeAddr(addr),
		client:  &http.Client{Timeout: 15 * time.Second},
	}}
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a running search service.
func NewClientWithService(svc Service) *Client {
	return &Client{svc: svc}
}

// #endregion constructor

// #region search
// Search returns up to topK raw hits for a query. Scores arrive unfused.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]ScoredDoc, error) {
	docs, err := c.svc.Search(ctx, query, Keywords(query), topK)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	return sanitize(docs), nil
}

// sanitize drops hits that cannot back an answer: empty or overlong
// snippets, and duplicate document IDs (first hit wins).
func sanitize(docs []ScoredDoc) []ScoredDoc {
	seen := make(map[string]bool)
	var valid []ScoredDoc
	for _, d := range docs {
		if d.Snippet == "" {
			continue
		}
		if len(d.Snippet) > maxSnippetLen {
			continue
		}
		if seen[d.DocID] {
			continue
		}
		seen[d.DocID] = true
		valid = append(valid, d)
	}
	return valid
}

// #endregion search

// #region health
// Health checks whether the search service is reachable and ready.
func (c *Client) Health(ctx context.Context) error {
	if err := c.svc.Health(ctx); err != nil {
		return fmt.Errorf("search health: %w", err)
	}
	return nil
}

// #endregion health

// #region http-service
type httpService struct {
	baseURL string
	client  *http.Client
}

type searchRequest struct {
	Query    string   `json:"query"`
	Keywords []string `json:"keywords,omitempty"`
	TopK     int      `json:"top_k"`
}

type searchResponse struct {
	Docs []ScoredDoc `json:"docs"`
}

func (s *httpService) Search(ctx context.Context, query string, keywords []string, topK int) ([]ScoredDoc, error) {
	body, err := json.Marshal(searchRequest{Query: query, Keywords: keywords, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search service returned status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return out.Docs, nil
}

func (s *httpService) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search service returned status %d", resp.StatusCode)
	}
	return nil
}

func normalizeAddr(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	return "http://" + strings.TrimSuffix(addr, "/")
}

// #endregion http-service
