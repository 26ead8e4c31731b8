package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// #region service
// Service is the transport-level interface to the NLU model server.
// An implementation exists over HTTP; tests inject their own.
type Service interface {
	Intent(ctx context.Context, text string) ([]IntentCandidate, error)
	Entities(ctx context.Context, text string) ([]EntityMatch, error)
	Health(ctx context.Context) error
}

// #endregion service

// #region client-struct
// Client wraps the NLU service and normalizes its raw output: intent
// candidates sorted best-first, entity spans deduplicated and ordered.
type Client struct {
	svc Service
}

// #endregion client-struct

// #region constructor
// NewClient creates a Client talking HTTP to the NLU model server.
func NewClient(addr string) *Client {
	return &Client{svc: &httpService{
		baseURL: normalizeAddr(addr),
		client:  &http.Client{Timeout: 15 * time.Second},
	}}
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a running model server.
func NewClientWithService(svc Service) *Client {
	return &Client{svc: svc}
}

// #endregion constructor

// #region classify
// Classify returns the ranked intent candidates for a message. Candidates
// come back sorted by confidence descending, ties broken by intent name, so
// equal inputs always produce the same ordering.
func (c *Client) Classify(ctx context.Context, text string) (IntentResult, error) {
	candidates, err := c.svc.Intent(ctx, text)
	if err != nil {
		return IntentResult{}, fmt.Errorf("intent request: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Intent < candidates[j].Intent
	})
	return IntentResult{Candidates: candidates}, nil
}

// #endregion classify

// #region extract
// Extract returns the entity spans for a message. Overlapping spans are
// resolved highest-confidence-first, and the survivors come back ordered by
// start offset.
func (c *Client) Extract(ctx context.Context, text string) ([]EntityMatch, error) {
	raw, err := c.svc.Entities(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("entities request: %w", err)
	}
	return resolveSpans(raw), nil
}

// resolveSpans drops every span that overlaps an already-accepted span of
// higher confidence, then orders the rest by position.
func resolveSpans(raw []EntityMatch) []EntityMatch {
	byConfidence := make([]EntityMatch, len(raw))
	copy(byConfidence, raw)
	sort.SliceStable(byConfidence, func(i, j int) bool {
		if byConfidence[i].Confidence != byConfidence[j].Confidence {
			return byConfidence[i].Confidence > byConfidence[j].Confidence
		}
		if byConfidence[i].Start != byConfidence[j].Start {
			return byConfidence[i].Start < byConfidence[j].Start
		}
		return byConfidence[i].Type < byConfidence[j].Type
	})

	var accepted []EntityMatch
	for _, cand := range byConfidence {
		overlaps := false
		for _, a := range accepted {
			if cand.Start < a.End && a.Start < cand.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, cand)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].Start != accepted[j].Start {
			return accepted[i].Start < accepted[j].Start
		}
		return accepted[i].End < accepted[j].End
	})
	return accepted
}

// #endregion extract

// #region health
// Health checks whether the model server is reachable and ready.
func (c *Client) Health(ctx context.Context) error {
	if err := c.svc.Health(ctx); err != nil {
		return fmt.Errorf("nlu health: %w", err)
	}
	return nil
}

// #endregion health

// #region http-service
type httpService struct {
	baseURL string
	client  *http.Client
}

type textRequest struct {
	Text string `json:"text"`
}

type intentResponse struct {
	Candidates []IntentCandidate `json:"candidates"`
}

type entitiesResponse struct {
	Entities []EntityMatch `json:"entities"`
}

func (s *httpService) Intent(ctx context.Context, text string) ([]IntentCandidate, error) {
	var out intentResponse
	if err := s.post(ctx, "/v1/intent", textRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return out.Candidates, nil
}

func (s *httpService) Entities(ctx context.Context, text string) ([]EntityMatch, error) {
	var out entitiesResponse
	if err := s.post(ctx, "/v1/entities", textRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
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
		return fmt.Errorf("model server returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *httpService) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
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
