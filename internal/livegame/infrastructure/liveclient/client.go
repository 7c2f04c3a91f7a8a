package liveclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"riftcoach/internal/livegame/domain"
	"riftcoach/internal/observability/metrics"
)

// DefaultBaseURL is the loopback address of the live client data API.
const DefaultBaseURL = "https://127.0.0.1:2999/liveclientdata"

var (
	// ErrNotFound is returned for 404 responses, which the live client uses for unknown riot ids.
	ErrNotFound = errors.New("liveclient: not found")
	// ErrUnavailable wraps transport failures and non-2xx responses.
	ErrUnavailable = errors.New("liveclient: unavailable")
)

// Client is a minimal live client data API client.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout bounds every upstream call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// NewClient constructs a live client. The upstream serves a self-signed certificate on
// loopback, so certificate verification is disabled for the default transport.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("liveclient: invalid base url: %w", err)
	}
	transport := &http.Transport{
		Proxy:               nil,
		DialContext:         (&net.Dialer{Timeout: time.Second}).DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // loopback self-signed certificate
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     30 * time.Second,
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Second, Transport: transport},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GameStats fetches /gamestats.
func (c *Client) GameStats(ctx context.Context) (domain.GameStats, error) {
	var out domain.GameStats
	err := c.getJSON(ctx, "gamestats", "/gamestats", nil, &out)
	return out, err
}

// EventLog fetches /eventdata.
func (c *Client) EventLog(ctx context.Context) (domain.EventLog, error) {
	var out domain.EventLog
	err := c.getJSON(ctx, "eventdata", "/eventdata", nil, &out)
	return out, err
}

// ActivePlayerName fetches /activeplayername.
func (c *Client) ActivePlayerName(ctx context.Context) (domain.ActiveIdentity, error) {
	var out domain.ActiveIdentity
	err := c.getJSON(ctx, "activeplayername", "/activeplayername", nil, &out)
	return out, err
}

// PlayerList fetches /playerlist.
func (c *Client) PlayerList(ctx context.Context) ([]domain.RosterEntry, error) {
	var out []domain.RosterEntry
	err := c.getJSON(ctx, "playerlist", "/playerlist", nil, &out)
	return out, err
}

// ActivePlayer fetches /activeplayer.
func (c *Client) ActivePlayer(ctx context.Context) (domain.ActivePlayer, error) {
	var out domain.ActivePlayer
	err := c.getJSON(ctx, "activeplayer", "/activeplayer", nil, &out)
	return out, err
}

// ActivePlayerAbilities fetches /activeplayerabilities.
func (c *Client) ActivePlayerAbilities(ctx context.Context) (domain.AbilitySet, error) {
	var out domain.AbilitySet
	err := c.getJSON(ctx, "activeplayerabilities", "/activeplayerabilities", nil, &out)
	return out, err
}

// PlayerScores fetches /playerscores for a riot id.
func (c *Client) PlayerScores(ctx context.Context, riotID string) (domain.Scores, error) {
	var out domain.Scores
	err := c.getJSON(ctx, "playerscores", "/playerscores", riotIDQuery(riotID), &out)
	return out, err
}

// PlayerItems fetches /playeritems for a riot id.
func (c *Client) PlayerItems(ctx context.Context, riotID string) ([]domain.UpstreamItem, error) {
	var out []domain.UpstreamItem
	err := c.getJSON(ctx, "playeritems", "/playeritems", riotIDQuery(riotID), &out)
	return out, err
}

// PlayerSummonerSpells fetches /playersummonerspells for a riot id.
func (c *Client) PlayerSummonerSpells(ctx context.Context, riotID string) (domain.SummonerSpells, error) {
	var out domain.SummonerSpells
	err := c.getJSON(ctx, "playersummonerspells", "/playersummonerspells", riotIDQuery(riotID), &out)
	return out, err
}

// PlayerMainRunes fetches /playermainrunes for a riot id.
func (c *Client) PlayerMainRunes(ctx context.Context, riotID string) (domain.MainRunes, error) {
	var out domain.MainRunes
	err := c.getJSON(ctx, "playermainrunes", "/playermainrunes", riotIDQuery(riotID), &out)
	return out, err
}

func riotIDQuery(riotID string) url.Values {
	return url.Values{"riotId": []string{riotID}}
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) (err error) {
	if c == nil || c.client == nil {
		return errors.New("liveclient: nil client")
	}
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveUpstream(endpoint, result, time.Since(start))
	}()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	}
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s: http %d", ErrUnavailable, endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("liveclient: decode %s: %w", endpoint, err)
	}
	return nil
}
