// Package assets resolves icon URLs from the Data Dragon static catalog.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public Data Dragon host.
	DefaultBaseURL = "https://ddragon.leagueoflegends.com"
	// DefaultTTL bounds how long the version and indexes are reused.
	DefaultTTL    = time.Hour
	defaultLocale = "en_US"
)

var (
	// ErrUnknownAsset is returned when an id or name is not in the catalog.
	ErrUnknownAsset = errors.New("assets: unknown asset")
	// ErrNoVersion is returned when the version list is empty.
	ErrNoVersion = errors.New("assets: no catalog version")
)

type imageRef struct {
	Full string `json:"full"`
}

type championRecord struct {
	ID    string   `json:"id"`
	Key   string   `json:"key"`
	Name  string   `json:"name"`
	Image imageRef `json:"image"`
}

type spellRecord struct {
	ID    string   `json:"id"`
	Key   string   `json:"key"`
	Name  string   `json:"name"`
	Image imageRef `json:"image"`
}

type runeRecord struct {
	ID   int    `json:"id"`
	Key  string `json:"key"`
	Icon string `json:"icon"`
	Name string `json:"name"`
}

type runeTree struct {
	runeRecord
	Slots []struct {
		Runes []runeRecord `json:"runes"`
	} `json:"slots"`
}

// nameIndex maps lowercased ids and display names to image file names.
type nameIndex map[string]string

// runeIndex maps rune and tree ids to icon paths.
type runeIndex map[int]string

// Catalog looks up icon URLs. Version and indexes are cached with an expiry.
type Catalog struct {
	baseURL string
	locale  string
	client  *http.Client
	logger  *zap.Logger
	ttl     time.Duration
	clock   Clock

	versions  *Cache[string]
	champions *Cache[nameIndex]
	spells    *Cache[nameIndex]
	runes     *Cache[runeIndex]
}

// Option configures the catalog.
type Option func(*Catalog)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Catalog) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLocale selects the catalog locale.
func WithLocale(locale string) Option {
	return func(c *Catalog) {
		if locale != "" {
			c.locale = locale
		}
	}
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the clock used for cache expiry.
func WithClock(clock Clock) Option {
	return func(c *Catalog) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog constructs a catalog client.
func NewCatalog(baseURL string, opts ...Option) (*Catalog, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("assets: invalid base url %q", baseURL)
	}
	c := &Catalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		locale:  defaultLocale,
		client:  &http.Client{Timeout: 3 * time.Second},
		logger:  zap.NewNop(),
		ttl:     DefaultTTL,
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("assets")
	c.versions = NewCache[string](c.ttl, c.clock)
	c.champions = NewCache[nameIndex](c.ttl, c.clock)
	c.spells = NewCache[nameIndex](c.ttl, c.clock)
	c.runes = NewCache[runeIndex](c.ttl, c.clock)
	return c, nil
}

// Version returns the newest catalog version.
func (c *Catalog) Version(ctx context.Context) (string, error) {
	if c == nil {
		return "", errors.New("assets: nil catalog")
	}
	return c.versions.GetOrLoad(ctx, "latest", func(ctx context.Context) (string, error) {
		var versions []string
		if err := c.getJSON(ctx, "/api/versions.json", &versions); err != nil {
			return "", err
		}
		if len(versions) == 0 || versions[0] == "" {
			return "", ErrNoVersion
		}
		c.logger.Debug("catalog version loaded", zap.String("version", versions[0]))
		return versions[0], nil
	})
}

// ChampionIconURL resolves a champion by display name or raw name.
func (c *Catalog) ChampionIconURL(ctx context.Context, name, rawName string) (string, error) {
	version, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	index, err := c.champions.GetOrLoad(ctx, version, func(ctx context.Context) (nameIndex, error) {
		var payload struct {
			Data map[string]championRecord `json:"data"`
		}
		if err := c.getJSON(ctx, c.dataPath(version, "champion.json"), &payload); err != nil {
			return nil, err
		}
		index := make(nameIndex, len(payload.Data)*2)
		for _, rec := range payload.Data {
			index[indexKey(rec.ID)] = rec.Image.Full
			index[indexKey(rec.Name)] = rec.Image.Full
		}
		return index, nil
	})
	if err != nil {
		return "", err
	}
	file, ok := lookupName(index, name, rawName, "game_character_displayname_")
	if !ok {
		return "", fmt.Errorf("%w: champion %q", ErrUnknownAsset, name)
	}
	return fmt.Sprintf("%s/cdn/%s/img/champion/%s", c.baseURL, version, file), nil
}

// ItemIconURL resolves an item icon. Item icons are addressed by id directly.
func (c *Catalog) ItemIconURL(ctx context.Context, itemID int) (string, error) {
	if itemID <= 0 {
		return "", fmt.Errorf("%w: item %d", ErrUnknownAsset, itemID)
	}
	version, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/cdn/%s/img/item/%d.png", c.baseURL, version, itemID), nil
}

// SpellIconURL resolves a summoner spell by display name or raw name.
func (c *Catalog) SpellIconURL(ctx context.Context, name, rawName string) (string, error) {
	version, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	index, err := c.spells.GetOrLoad(ctx, version, func(ctx context.Context) (nameIndex, error) {
		var payload struct {
			Data map[string]spellRecord `json:"data"`
		}
		if err := c.getJSON(ctx, c.dataPath(version, "summoner.json"), &payload); err != nil {
			return nil, err
		}
		index := make(nameIndex, len(payload.Data)*2)
		for _, rec := range payload.Data {
			index[indexKey(rec.ID)] = rec.Image.Full
			if _, taken := index[indexKey(rec.Name)]; !taken {
				index[indexKey(rec.Name)] = rec.Image.Full
			}
		}
		return index, nil
	})
	if err != nil {
		return "", err
	}
	file, ok := lookupName(index, name, spellIDFromRaw(rawName), "")
	if !ok {
		return "", fmt.Errorf("%w: spell %q", ErrUnknownAsset, name)
	}
	return fmt.Sprintf("%s/cdn/%s/img/spell/%s", c.baseURL, version, file), nil
}

// RuneIconURL resolves a rune or rune tree id.
func (c *Catalog) RuneIconURL(ctx context.Context, runeID int) (string, error) {
	version, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	index, err := c.runes.GetOrLoad(ctx, version, func(ctx context.Context) (runeIndex, error) {
		var trees []runeTree
		if err := c.getJSON(ctx, c.dataPath(version, "runesReforged.json"), &trees); err != nil {
			return nil, err
		}
		index := make(runeIndex)
		for _, tree := range trees {
			index[tree.ID] = tree.Icon
			for _, slot := range tree.Slots {
				for _, r := range slot.Runes {
					index[r.ID] = r.Icon
				}
			}
		}
		return index, nil
	})
	if err != nil {
		return "", err
	}
	icon, ok := index[runeID]
	if !ok || icon == "" {
		return "", fmt.Errorf("%w: rune %d", ErrUnknownAsset, runeID)
	}
	return fmt.Sprintf("%s/cdn/img/%s", c.baseURL, icon), nil
}

func (c *Catalog) dataPath(version, file string) string {
	return fmt.Sprintf("/cdn/%s/data/%s/%s", version, c.locale, file)
}

func (c *Catalog) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("assets: request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("assets: %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("assets: decode %s: %w", path, err)
	}
	return nil
}

func lookupName(index nameIndex, name, raw, rawPrefix string) (string, bool) {
	if file, ok := index[indexKey(name)]; ok {
		return file, true
	}
	if raw == "" {
		return "", false
	}
	if rawPrefix != "" {
		if i := strings.Index(strings.ToLower(raw), rawPrefix); i >= 0 {
			raw = raw[i+len(rawPrefix):]
		}
	}
	file, ok := index[indexKey(raw)]
	return file, ok
}

// spellIDFromRaw extracts "SummonerFlash" from
// "GeneratedTip_SummonerSpell_SummonerFlash_DisplayName".
func spellIDFromRaw(raw string) string {
	parts := strings.Split(raw, "_")
	for _, part := range parts {
		if strings.HasPrefix(part, "Summoner") && part != "SummonerSpell" {
			return part
		}
	}
	return ""
}

func indexKey(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\'' || r == '.' {
			return -1
		}
		return r
	}, value)
}
