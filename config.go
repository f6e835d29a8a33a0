package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	optional "github.com/TBXark/optional-go"
	"github.com/go-sphere/confstore"
	"github.com/go-sphere/confstore/codec"
	"github.com/go-sphere/confstore/provider"
	"github.com/go-sphere/confstore/provider/file"
	confhttp "github.com/go-sphere/confstore/provider/http"
)

// ===== configuration =====

const (
	defaultAddr            = ":8080"
	defaultServerName      = "general-mcp"
	defaultServerVersion   = "2.0.0"
	defaultProtocolVersion = "2024-11-05"

	defaultMetadataBudget = 5 * time.Second
	defaultCallBudget     = 120 * time.Second
	defaultKeepalive      = 30 * time.Second
)

type Config struct {
	Server *ServerConfig                  `json:"server"`
	Tools  map[string]*ToolOverrideConfig `json:"tools,omitempty"`
}

type ServerConfig struct {
	Addr    string `json:"addr"`
	Name    string `json:"name"`
	Version string `json:"version"`
	BaseURL string `json:"baseURL,omitempty"`

	// LogEnabled turns on per-request logging on the HTTP transport.
	LogEnabled optional.Field[bool] `json:"logEnabled,omitempty"`

	// AuthTokens, when non-empty, are the bearer tokens the gateway will
	// acknowledge. Presence of a matching token only flips the advisory
	// authenticated flag; it gates nothing.
	AuthTokens []string `json:"authTokens,omitempty"`

	// MetadataTimeoutSec / CallTimeoutSec override the method-class budgets.
	MetadataTimeoutSec optional.Field[int] `json:"metadataTimeoutSec,omitempty"`
	CallTimeoutSec     optional.Field[int] `json:"callTimeoutSec,omitempty"`

	// KeepaliveSec overrides the SSE keepalive interval.
	KeepaliveSec optional.Field[int] `json:"keepaliveSec,omitempty"`

	// UsageStatePath persists the usage ledger across restarts. Empty
	// disables persistence.
	UsageStatePath string `json:"usageStatePath,omitempty"`
}

func (c *ServerConfig) usageStatePath() string {
	return c.UsageStatePath
}

func (c *ServerConfig) metadataBudget() time.Duration {
	if sec := c.MetadataTimeoutSec.OrElse(0); sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return defaultMetadataBudget
}

func (c *ServerConfig) callBudget() time.Duration {
	if sec := c.CallTimeoutSec.OrElse(0); sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return defaultCallBudget
}

func (c *ServerConfig) keepalive() time.Duration {
	if sec := c.KeepaliveSec.OrElse(0); sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return defaultKeepalive
}

func loadConfig(path string) (*Config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	var source provider.Provider
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		source = confhttp.New(path)
	} else {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return defaultConfig(), nil
		}
		source = file.New(path)
	}
	config, err := confstore.Load[Config](source, codec.JsonCodec())
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	applyConfigDefaults(config.Server)
	return config, nil
}

func defaultConfig() *Config {
	server := &ServerConfig{}
	applyConfigDefaults(server)
	return &Config{Server: server}
}

func applyConfigDefaults(server *ServerConfig) {
	if server.Addr == "" {
		server.Addr = defaultAddr
	}
	if port := os.Getenv("PORT"); port != "" {
		server.Addr = ":" + port
	}
	if server.Name == "" {
		server.Name = defaultServerName
	}
	if server.Version == "" {
		server.Version = defaultServerVersion
	}
}

// apiCredentials holds the third-party API secrets, read from the
// environment after godotenv has had a chance to populate it.
type apiCredentials struct {
	ApifyToken         string
	YouTubeKey         string
	PerplexityKey      string
	DataForSEOLogin    string
	DataForSEOPassword string
}

func credentialsFromEnv() *apiCredentials {
	return &apiCredentials{
		ApifyToken:         os.Getenv("APIFY_TOKEN"),
		YouTubeKey:         os.Getenv("YOUTUBE_API_KEY"),
		PerplexityKey:      os.Getenv("PERPLEXITY_API_KEY"),
		DataForSEOLogin:    os.Getenv("DATAFORSEO_LOGIN"),
		DataForSEOPassword: os.Getenv("DATAFORSEO_PASSWORD"),
	}
}

// sanitized reports which integrations are configured without exposing the
// secrets themselves; served by the config://server resource.
func (c *apiCredentials) sanitized() map[string]bool {
	return map[string]bool{
		"apify":      c.ApifyToken != "",
		"youtube":    c.YouTubeKey != "",
		"perplexity": c.PerplexityKey != "",
		"dataforseo": c.DataForSEOLogin != "" && c.DataForSEOPassword != "",
	}
}
