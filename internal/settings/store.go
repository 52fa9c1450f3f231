// Package settings holds the live user settings and is the only place they
// change.
package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"AssetJudge/internal/model"
)

// ConfigurationError reports a rejected settings update.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid settings: " + e.Reason
	}
	return fmt.Sprintf("invalid settings: %s %s", e.Field, e.Reason)
}

// Store guards the current Settings. Readers get a copy, so a scan never
// observes a change made after it started.
type Store struct {
	mu       sync.RWMutex
	current  model.Settings
	validate *validator.Validate
}

// NewStore validates initial and returns a Store holding it.
func NewStore(initial model.Settings) (*Store, error) {
	s := &Store{validate: validator.New()}
	if err := s.check(initial); err != nil {
		return nil, err
	}
	s.current = initial
	return s, nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update replaces the settings after validation. Invalid values leave the
// current settings untouched and return a *ConfigurationError.
func (s *Store) Update(next model.Settings) error {
	if err := s.check(next); err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.current
	s.current = next
	s.mu.Unlock()

	log.Info().
		Interface("previous", prev).
		Interface("current", next).
		Msg("settings updated")
	return nil
}

// Validate checks st against the same rules as Update without storing it.
func (s *Store) Validate(st model.Settings) error {
	return s.check(st)
}

// Set updates one field by its JSON name, e.g. Set("vixThreshold", "25").
func (s *Store) Set(field, value string) (model.Settings, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return model.Settings{}, &ConfigurationError{Field: field, Reason: "must be a number"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	dst, ok := fieldByName(&next, field)
	if !ok {
		return model.Settings{}, &ConfigurationError{Field: field, Reason: "is not a known setting"}
	}
	*dst = v
	if err := s.check(next); err != nil {
		return model.Settings{}, err
	}
	s.current = next
	log.Info().Str("field", field).Float64("value", v).Msg("setting changed")
	return next, nil
}

// Fields lists the settable field names.
func Fields() []string {
	return []string{"vixThreshold", "pegThreshold", "rsiThreshold", "gapThreshold", "stopLossPercent", "cashReservePercent"}
}

func fieldByName(st *model.Settings, name string) (*float64, bool) {
	switch strings.ToLower(name) {
	case "vixthreshold", "vix":
		return &st.VIXThreshold, true
	case "pegthreshold", "peg":
		return &st.PEGThreshold, true
	case "rsithreshold", "rsi":
		return &st.RSIThreshold, true
	case "gapthreshold", "gap":
		return &st.GapThreshold, true
	case "stoplosspercent", "stoploss":
		return &st.StopLossPercent, true
	case "cashreservepercent", "reserve":
		return &st.CashReservePercent, true
	}
	return nil, false
}

func (s *Store) check(st model.Settings) error {
	err := s.validate.Struct(st)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConfigurationError{
			Field:  fe.Field(),
			Reason: fmt.Sprintf("failed %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value()),
		}
	}
	return &ConfigurationError{Reason: err.Error()}
}
