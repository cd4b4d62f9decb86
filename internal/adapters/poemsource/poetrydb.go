// Package poemsource provides PoemSource adapters.
package poemsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/adapters/loader"
	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

// DefaultMaxFragments caps how many poems feed the per-run index.
const DefaultMaxFragments = 20

// PoetryDB implements ports.PoemSource with the PoetryDB lines search.
type PoetryDB struct {
	baseURL      string
	maxFragments int
	client       *http.Client
	logger       *zap.Logger
}

// NewPoetryDB creates a PoetryDB client.
func NewPoetryDB(baseURL string, maxFragments int, logger *zap.Logger) *PoetryDB {
	if baseURL == "" {
		baseURL = "https://poetrydb.org"
	}
	if maxFragments <= 0 {
		maxFragments = DefaultMaxFragments
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoetryDB{
		baseURL:      strings.TrimRight(baseURL, "/"),
		maxFragments: maxFragments,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// Fetch calls GET /lines/{theme}. Every failure wraps entities.ErrNotFound.
func (p *PoetryDB) Fetch(ctx context.Context, theme string) ([]entities.PoemFragment, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, fmt.Errorf("%w: theme is required", entities.ErrInvalidInput)
	}

	endpoint := p.baseURL + "/lines/" + url.PathEscape(theme)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", entities.ErrNotFound, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling PoetryDB: %w", entities.ErrNotFound, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: PoetryDB returned status %d", entities.ErrNotFound, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", entities.ErrNotFound, err)
	}

	// PoetryDB answers a miss with 200 and {"status":404,"reason":"Not found"}.
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var miss struct {
			Status int    `json:"status"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(trimmed, &miss); err == nil && miss.Status != 0 {
			return nil, fmt.Errorf("%w: PoetryDB status %d %s", entities.ErrNotFound, miss.Status, miss.Reason)
		}
		return nil, fmt.Errorf("%w: unexpected PoetryDB object response", entities.ErrNotFound)
	}

	var records []loader.PoemRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", entities.ErrNotFound, err)
	}

	fragments := loader.ToFragments(records)
	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: no poems for %q", entities.ErrNotFound, theme)
	}
	if len(fragments) > p.maxFragments {
		fragments = fragments[:p.maxFragments]
	}
	p.logger.Debug("poetrydb fetch", zap.Int("received", len(records)), zap.Int("kept", len(fragments)))
	return fragments, nil
}

func (p *PoetryDB) Name() string { return "poetrydb" }
