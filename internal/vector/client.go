package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/weaviate/weaviate/entities/models"
)

const maxResponseBytes = 4 << 20

// Client talks to the destination through the endpoints of one contract.
type Client struct {
	http            Doer
	contract        Contract
	collection      Collection
	registerTimeout time.Duration
	insertTimeout   time.Duration
}

func NewClient(doer Doer, contract Contract, col Collection, registerTimeout, insertTimeout time.Duration) *Client {
	if registerTimeout <= 0 {
		registerTimeout = 30 * time.Second
	}
	if insertTimeout <= 0 {
		insertTimeout = 90 * time.Second
	}
	return &Client{
		http:            doer,
		contract:        contract,
		collection:      col,
		registerTimeout: registerTimeout,
		insertTimeout:   insertTimeout,
	}
}

func (c *Client) Contract() Contract {
	return c.contract
}

// Register creates the collection, treating an existing one as success.
// It reports whether the collection already existed.
func (c *Client) Register(ctx context.Context) (bool, error) {
	body, err := EncodeRegister(c.contract.Variant, c.collection)
	if err != nil {
		return false, err
	}

	status, respBody, err := c.post(ctx, c.contract.RegisterURL, body, c.registerTimeout)
	if err != nil {
		return false, fmt.Errorf("register collection: %w", err)
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		return false, nil
	case status == http.StatusConflict:
		return true, nil
	case c.contract.Variant == VariantWeaviate && status == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(string(respBody)), "already exists"):
		// Weaviate reports an existing class as 422; other 422s are invalid classes.
		return true, nil
	default:
		return false, fmt.Errorf("register collection: status %d: %s", status, snippet(respBody))
	}
}

// EncodeInsert serializes chunks for the contract's variant.
func (c *Client) EncodeInsert(chunks []Chunk) ([]byte, error) {
	return EncodeInsert(c.contract.Variant, c.collection, chunks)
}

// Submit posts an already encoded insert body.
// A missing route yields ErrInsertRouteNotFound; any other failure yields
// ErrInsertRejected.
func (c *Client) Submit(ctx context.Context, payload []byte) error {
	status, respBody, err := c.post(ctx, c.contract.InsertURL, payload, c.insertTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInsertRejected, err)
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
		if c.contract.Variant == VariantWeaviate {
			return batchErrors(respBody)
		}
		return nil
	case http.StatusConflict:
		slog.DebugContext(ctx, "insert reported existing chunks", "status", status)
		return nil
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return fmt.Errorf("%w: status %d: %s", ErrInsertRouteNotFound, status, c.contract.InsertURL)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrInsertRejected, status, snippet(respBody))
	}
}

// batchErrors inspects a weaviate batch response, which answers 200 even
// when individual objects fail.
func batchErrors(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var results []models.ObjectsGetResponse
	if err := json.Unmarshal(body, &results); err != nil {
		return fmt.Errorf("%w: decode batch response: %v", ErrInsertRejected, err)
	}

	var failed int
	var first string
	for _, r := range results {
		if r.Result == nil || r.Result.Errors == nil || len(r.Result.Errors.Error) == 0 {
			continue
		}
		if failed == 0 && r.Result.Errors.Error[0] != nil {
			first = r.Result.Errors.Error[0].Message
		}
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d objects failed: %s", ErrInsertRejected, failed, len(results), first)
	}
	return nil
}

// Insert encodes and submits one sub-batch.
func (c *Client) Insert(ctx context.Context, chunks []Chunk) error {
	payload, err := c.EncodeInsert(chunks)
	if err != nil {
		return err
	}
	return c.Submit(ctx, payload)
}

func (c *Client) post(ctx context.Context, url string, body []byte, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func snippet(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > 512 {
		b = b[:512]
	}
	return string(b)
}
