package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/platinummonkey/ssobridge/pkg/config"
	"github.com/platinummonkey/ssobridge/pkg/observability"
)

// SettingsSource supplies the mutable, operator-editable half of the bridge
// configuration.
type SettingsSource interface {
	Load(ctx context.Context) (Settings, error)
}

// StaticFromConfig converts environment-pinned configuration into Settings.
func StaticFromConfig(cfg config.SSOConfig) Settings {
	return Settings{
		Enabled:              cfg.Enabled,
		AppBaseURL:           cfg.AppBaseURL,
		SiteID:               cfg.SiteID,
		Issuer:               cfg.Issuer,
		Audience:             cfg.Audience,
		SecretActive:         cfg.SecretActive,
		SecretPrevious:       cfg.SecretPrevious,
		AllowedRedirectPaths: ParseRedirectPaths(cfg.AllowedRedirectPaths),
		RequireManage:        cfg.RequireManage,
		RequireRedemption:    cfg.RequireRedemption,
		RedemptionAPIKey:     cfg.RedemptionAPIKey,
		RateLimitMax:         cfg.RateLimitMax,
		RateLimitWindowSecs:  cfg.RateLimitWindowSecs,
		PenalizeIneligible:   cfg.PenalizeIneligible,
	}
}

// Merge layers static configuration over stored settings. Static values win
// wherever they are set: non-empty strings, positive integers and true
// booleans override the stored document. A static false boolean is
// indistinguishable from unset, so stored booleans survive it.
func Merge(static, stored Settings) Settings {
	out := stored
	out.Enabled = stored.Enabled || static.Enabled
	if static.AppBaseURL != "" {
		out.AppBaseURL = static.AppBaseURL
	}
	if static.SiteID != "" {
		out.SiteID = static.SiteID
	}
	if static.Issuer != "" {
		out.Issuer = static.Issuer
	}
	if static.Audience != "" {
		out.Audience = static.Audience
	}
	if static.SecretActive != "" {
		out.SecretActive = static.SecretActive
	}
	if static.SecretPrevious != "" {
		out.SecretPrevious = static.SecretPrevious
	}
	if len(static.AllowedRedirectPaths) > 0 {
		out.AllowedRedirectPaths = static.AllowedRedirectPaths
	}
	out.RequireManage = stored.RequireManage || static.RequireManage
	out.RequireRedemption = stored.RequireRedemption || static.RequireRedemption
	if static.RedemptionAPIKey != "" {
		out.RedemptionAPIKey = static.RedemptionAPIKey
	}
	if static.RateLimitMax > 0 {
		out.RateLimitMax = static.RateLimitMax
	}
	if static.RateLimitWindowSecs > 0 {
		out.RateLimitWindowSecs = static.RateLimitWindowSecs
	}
	out.PenalizeIneligible = stored.PenalizeIneligible || static.PenalizeIneligible
	return out
}

// SettingsResolver produces the effective Settings for a request by merging
// the static layer over an optional mutable store.
type SettingsResolver struct {
	static Settings
	store  SettingsSource
}

// NewSettingsResolver builds a resolver. store may be nil when no mutable
// settings file is configured.
func NewSettingsResolver(static Settings, store SettingsSource) *SettingsResolver {
	return &SettingsResolver{static: static, store: store}
}

// Resolve returns the normalized effective settings. The result is a value
// snapshot, so later settings changes never leak into an in-flight request.
func (r *SettingsResolver) Resolve(ctx context.Context) (Settings, error) {
	if r.store == nil {
		return r.static.Normalize(), nil
	}
	stored, err := r.store.Load(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load stored settings: %w", err)
	}
	return Merge(r.static, stored).Normalize(), nil
}

// storedSettings is the on-disk JSON shape of the mutable settings document.
// AllowedRedirectPaths is newline-delimited to mirror the admin textarea it
// is edited through.
type storedSettings struct {
	Enabled              bool   `json:"enabled"`
	AppBaseURL           string `json:"app_base_url"`
	SiteID               string `json:"site_id"`
	Issuer               string `json:"issuer"`
	Audience             string `json:"audience"`
	SecretActive         string `json:"secret_active"`
	SecretPrevious       string `json:"secret_previous"`
	AllowedRedirectPaths string `json:"allowed_redirect_paths"`
	RequireManage        bool   `json:"require_manage"`
	RequireRedemption    bool   `json:"require_redemption"`
	RedemptionAPIKey     string `json:"redemption_api_key"`
	RateLimitMax         int    `json:"rate_limit_max"`
	RateLimitWindowSecs  int    `json:"rate_limit_window_secs"`
	PenalizeIneligible   bool   `json:"penalize_ineligible"`
}

func (s storedSettings) toSettings() Settings {
	return Settings{
		Enabled:              s.Enabled,
		AppBaseURL:           s.AppBaseURL,
		SiteID:               s.SiteID,
		Issuer:               s.Issuer,
		Audience:             s.Audience,
		SecretActive:         s.SecretActive,
		SecretPrevious:       s.SecretPrevious,
		AllowedRedirectPaths: ParseRedirectPaths(s.AllowedRedirectPaths),
		RequireManage:        s.RequireManage,
		RequireRedemption:    s.RequireRedemption,
		RedemptionAPIKey:     s.RedemptionAPIKey,
		RateLimitMax:         s.RateLimitMax,
		RateLimitWindowSecs:  s.RateLimitWindowSecs,
		PenalizeIneligible:   s.PenalizeIneligible,
	}
}

// FileSettingsStore serves settings from a JSON file and hot-reloads it on
// change. A broken edit keeps the last good settings in service and logs the
// parse error instead of taking logins down.
type FileSettingsStore struct {
	path    string
	logger  *observability.Logger
	watcher *fsnotify.Watcher

	mu      sync.RWMutex
	current Settings

	done chan struct{}
}

// NewFileSettingsStore loads path and starts watching it for changes.
func NewFileSettingsStore(path string, logger *observability.Logger) (*FileSettingsStore, error) {
	s := &FileSettingsStore{
		path:   path,
		logger: logger.Named("settings"),
		done:   make(chan struct{}),
	}
	if err := s.reload(); err != nil {
		return nil, fmt.Errorf("load settings file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create settings watcher: %w", err)
	}
	// Watch the directory rather than the file. Editors and config
	// management tools replace files via rename, which drops a watch on the
	// file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch settings directory: %w", err)
	}
	s.watcher = watcher
	go s.watch()
	return s, nil
}

// Load returns the current settings snapshot.
func (s *FileSettingsStore) Load(ctx context.Context) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

// Close stops the file watcher.
func (s *FileSettingsStore) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *FileSettingsStore) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw storedSettings
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.current = raw.toSettings()
	s.mu.Unlock()
	return nil
}

func (s *FileSettingsStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				s.logger.WithError(err).Warn("settings reload failed, keeping previous settings")
				continue
			}
			s.logger.Info("settings reloaded")
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.WithError(err).Warn("settings watcher error")
		}
	}
}
