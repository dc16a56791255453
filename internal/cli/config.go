package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Verbose   bool

	// tokenFromFile is set when Token came from TokenFile rather than a flag
	// or the environment
	tokenFromFile bool
}

// savedSession is the token file's contents. Server pins the token to the
// server that issued it.
type savedSession struct {
	Token   string    `json:"token"`
	Server  string    `json:"server"`
	Name    string    `json:"name,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: envOr("GEOGUESS_SERVER", "http://localhost:8080"),
		Token:     os.Getenv("GEOGUESS_TOKEN"),
		TokenFile: envOr("GEOGUESS_TOKEN_FILE", defaultTokenFile()),
		Output:    "text",
	}
}

// LoadToken fills Token from the token file unless a token was given
// explicitly. A saved session issued by a different server is ignored; a bare
// token (hand-written file) is used as-is.
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		c.Token = strings.TrimSpace(string(data))
		c.tokenFromFile = c.Token != ""
		return nil
	}
	if saved.Server != "" && normalizeServer(saved.Server) != normalizeServer(c.ServerURL) {
		return nil
	}

	c.Token = saved.Token
	c.tokenFromFile = c.Token != ""
	return nil
}

// SaveToken records token as the session for the current server
func (c *Config) SaveToken(token, name string) error {
	c.Token = token
	c.tokenFromFile = true

	data, err := json.MarshalIndent(savedSession{
		Token:   token,
		Server:  normalizeServer(c.ServerURL),
		Name:    name,
		SavedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0700); err != nil {
		return err
	}
	return os.WriteFile(c.TokenFile, data, 0600)
}

// ClearToken forgets the saved session. Missing files are fine.
func (c *Config) ClearToken() error {
	c.Token = ""
	c.tokenFromFile = false
	if err := os.Remove(c.TokenFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ForgetRejectedToken drops the saved session once the server has refused it,
// so the next command does not keep presenting a dead token. Tokens passed by
// flag or environment are left alone. Reports whether anything was removed.
func (c *Config) ForgetRejectedToken(err error) bool {
	if !c.tokenFromFile || !IsUnauthorized(err) {
		return false
	}
	return c.ClearToken() == nil
}

func normalizeServer(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(u), "/")
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".geoguess", "session.json")
	}
	return filepath.Join(home, ".geoguess", "session.json")
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
