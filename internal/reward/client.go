package reward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/practice-engine/internal/practice"
)

// ErrNotConfigured is returned when no reward service URL is set.
var ErrNotConfigured = errors.New("reward service not configured")

// Config holds connection details for the reward service.
type Config struct {
	ServiceURL string
	APIKey     string
	Timeout    time.Duration
}

// Client asks the economy service how much XP and coins a completed session earns.
type Client struct {
	httpClient *http.Client
	config     Config
	rewardsURL string
	logger     zerolog.Logger
}

var _ practice.RewardFunc = (*Client)(nil)

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
		rewardsURL: strings.TrimSuffix(cfg.ServiceURL, "/") + "/rewards",
		logger:     logger.With().Str("component", "reward_client").Logger(),
	}
}

// Rewards posts the completion summary and returns the granted deltas.
func (c *Client) Rewards(ctx context.Context, summary practice.Summary) (practice.Rewards, error) {
	if c.config.ServiceURL == "" {
		return practice.Rewards{}, ErrNotConfigured
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return practice.Rewards{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rewardsURL, bytes.NewReader(body))
	if err != nil {
		return practice.Rewards{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return practice.Rewards{}, fmt.Errorf("call reward service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return practice.Rewards{}, fmt.Errorf("reward service returned status %d", resp.StatusCode)
	}

	var out practice.Rewards
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return practice.Rewards{}, fmt.Errorf("decode reward payload: %w", err)
	}
	if out.XP < 0 || out.Coins < 0 {
		return practice.Rewards{}, fmt.Errorf("reward service returned negative rewards (xp=%d coins=%d)", out.XP, out.Coins)
	}

	c.logger.Debug().
		Str("session_id", summary.SessionID.String()).
		Int("xp", out.XP).
		Int("coins", out.Coins).
		Dur("took", time.Since(start)).
		Msg("rewards granted")
	return out, nil
}
