package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrCapabilityNotFound means no supported variant could be discovered.
	ErrCapabilityNotFound = errors.New("vector api capability not found")
	// ErrInsertRouteNotFound means the fixed insert endpoint does not exist.
	ErrInsertRouteNotFound = errors.New("vector insert route not found")
	// ErrInsertRejected means the destination refused one sub-batch.
	ErrInsertRejected = errors.New("vector insert rejected")
)

// DefaultOpenAPIPath is where the destination publishes its route table.
const DefaultOpenAPIPath = "/openapi.json"

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Probe struct {
	client  Doer
	path    string
	timeout time.Duration
}

func NewProbe(client Doer, openAPIPath string, timeout time.Duration) *Probe {
	if openAPIPath == "" {
		openAPIPath = DefaultOpenAPIPath
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Probe{client: client, path: openAPIPath, timeout: timeout}
}

// Discover reads the destination route table once and fixes the contract.
// Every failure is reported as ErrCapabilityNotFound.
func (p *Probe) Discover(ctx context.Context, baseURL string) (Contract, error) {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return Contract{}, fmt.Errorf("%w: base url is empty", ErrCapabilityNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+p.path, nil)
	if err != nil {
		return Contract{}, fmt.Errorf("%w: %v", ErrCapabilityNotFound, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Contract{}, fmt.Errorf("%w: %v", ErrCapabilityNotFound, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Contract{}, fmt.Errorf("%w: introspection returned status %d", ErrCapabilityNotFound, resp.StatusCode)
	}

	var doc struct {
		Paths json.RawMessage `json:"paths"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Contract{}, fmt.Errorf("%w: decode route table: %v", ErrCapabilityNotFound, err)
	}

	var paths map[string]json.RawMessage
	if err := json.Unmarshal(doc.Paths, &paths); err != nil || paths == nil {
		return Contract{}, fmt.Errorf("%w: route table has no paths object", ErrCapabilityNotFound)
	}

	routes := make(map[string]struct{}, len(paths))
	for path := range paths {
		routes[path] = struct{}{}
	}

	contract, ok := MatchRoutes(base, routes)
	if !ok {
		return Contract{}, fmt.Errorf("%w: no known signature among %d routes", ErrCapabilityNotFound, len(routes))
	}

	slog.InfoContext(ctx, "vector api variant detected",
		"variant", contract.Variant,
		"register_url", contract.RegisterURL,
		"insert_url", contract.InsertURL,
	)
	return contract, nil
}
