// Package settings manages the single persisted reader-preferences record.
package settings

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/folioapp/folio-server/internal/domain"
	"github.com/folioapp/folio-server/internal/errors"
	"github.com/folioapp/folio-server/internal/kv"
	"github.com/folioapp/folio-server/internal/observe"
)

const settingsKey = "reader-settings"

// Patch is a partial settings update. Nil fields are left unchanged.
type Patch struct {
	FontSizePx           *int             `json:"font_size_px,omitempty"`
	FontFamily           *string          `json:"font_family,omitempty"`
	LineHeightMultiplier *float64         `json:"line_height_multiplier,omitempty"`
	Theme                *domain.Theme    `json:"theme,omitempty"`
	ViewMode             *domain.ViewMode `json:"view_mode,omitempty"`
	MarginsPx            *int             `json:"margins_px,omitempty"`
	MaxWidthPx           *int             `json:"max_width_px,omitempty"`
}

// Store persists reader settings in the key-value store and publishes every
// accepted change to subscribers. Writes go to disk before they are published,
// so subscribers never observe a state that failed to persist.
type Store struct {
	kv       *kv.Store
	validate *validator.Validate
	logger   *slog.Logger

	mu    sync.Mutex // serializes read-modify-write cycles
	value *observe.Value[domain.ReaderSettings]
}

// NewStore loads the persisted settings record, falling back to defaults when
// none exists. A corrupt or out-of-range record is clamped into validity
// rather than rejected, so an old or hand-edited file never blocks startup.
func NewStore(store *kv.Store, logger *slog.Logger) (*Store, error) {
	current := domain.DefaultReaderSettings()

	err := store.GetJSON(settingsKey, &current)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		logger.Info("no persisted settings, using defaults")
		current = domain.DefaultReaderSettings()
	case err != nil:
		return nil, fmt.Errorf("load settings: %w", err)
	default:
		current.Clamp()
	}

	return &Store{
		kv:       store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		value:    observe.NewValue(current),
	}, nil
}

// Get returns the current settings snapshot.
func (s *Store) Get() domain.ReaderSettings {
	return s.value.Get()
}

// Subscribe returns a channel that receives the current settings immediately
// and every accepted update afterwards.
func (s *Store) Subscribe() (<-chan domain.ReaderSettings, func()) {
	return s.value.Subscribe()
}

// Update merges a partial patch into the current settings, validates the
// result, persists it, and publishes the new snapshot. A patch that produces
// an invalid record is rejected whole; the persisted state is untouched.
func (s *Store) Update(patch Patch) (domain.ReaderSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.value.Get()
	applyPatch(&next, patch)

	if err := s.validateSettings(next); err != nil {
		return domain.ReaderSettings{}, err
	}

	if err := s.kv.SetJSON(settingsKey, next); err != nil {
		return domain.ReaderSettings{}, fmt.Errorf("persist settings: %w", err)
	}

	s.value.Set(next)
	s.logger.Debug("settings updated", "settings", next)
	return next, nil
}

// Reset restores the defaults, persists them, and publishes the snapshot.
func (s *Store) Reset() (domain.ReaderSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := domain.DefaultReaderSettings()
	if err := s.kv.SetJSON(settingsKey, next); err != nil {
		return domain.ReaderSettings{}, fmt.Errorf("persist settings: %w", err)
	}

	s.value.Set(next)
	s.logger.Info("settings reset to defaults")
	return next, nil
}

func (s *Store) validateSettings(v domain.ReaderSettings) error {
	if !v.Theme.Valid() {
		return errors.Validation(fmt.Sprintf("unknown theme %q", v.Theme))
	}
	if !v.ViewMode.Valid() {
		return errors.Validation(fmt.Sprintf("unknown view mode %q", v.ViewMode))
	}
	if !domain.ValidFontFamily(v.FontFamily) {
		return errors.Validation(fmt.Sprintf("unknown font family %q", v.FontFamily))
	}
	if err := s.validate.Struct(v); err != nil {
		return errors.Validation("settings out of range").WithDetails(err.Error())
	}
	return nil
}

func applyPatch(s *domain.ReaderSettings, p Patch) {
	if p.FontSizePx != nil {
		s.FontSizePx = *p.FontSizePx
	}
	if p.FontFamily != nil {
		s.FontFamily = *p.FontFamily
	}
	if p.LineHeightMultiplier != nil {
		s.LineHeightMultiplier = *p.LineHeightMultiplier
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.ViewMode != nil {
		s.ViewMode = *p.ViewMode
	}
	if p.MarginsPx != nil {
		s.MarginsPx = *p.MarginsPx
	}
	if p.MaxWidthPx != nil {
		s.MaxWidthPx = *p.MaxWidthPx
	}
}
