// Package portfolio keeps the locally held positions and reviews scan results
// against them.
package portfolio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"AssetJudge/internal/model"
)

// ErrNotFound is returned for an unknown holding ID.
var ErrNotFound = errors.New("holding not found")

// Manager handles portfolio operations with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *model.PortfolioState
	filePath string
	validate *validator.Validate
}

// NewManager creates a Manager, loading or initializing state from disk.
// equity and currency seed a fresh state only; a persisted equity of zero is
// kept as is.
func NewManager(filePath string, equity float64, currency string) (*Manager, error) {
	_, statErr := os.Stat(filePath)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	if state.Currency == "" {
		state.Currency = currency
	}
	if fresh {
		state.Equity = equity
	}

	m := &Manager{state: state, filePath: filePath, validate: validator.New()}
	if err := SaveState(filePath, state); err != nil {
		return nil, err
	}
	return m, nil
}

// GetState returns a copy of the current portfolio.
func (m *Manager) GetState() model.PortfolioState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := *m.state
	st.Holdings = append([]model.Holding(nil), m.state.Holdings...)
	return st
}

// Equity returns the capital base used for allocation.
func (m *Manager) Equity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Equity
}

// SetEquity replaces the capital base.
func (m *Manager) SetEquity(equity float64) error {
	if equity < 0 {
		return fmt.Errorf("equity must not be negative, got %v", equity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.clone()
	next.Equity = equity
	return m.commit(next)
}

// Holdings returns a copy of the current holdings.
func (m *Manager) Holdings() []model.Holding {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Holding(nil), m.state.Holdings...)
}

// Upsert adds a holding, or replaces the one with the same ID. A holding
// without an ID whose ticker is already held replaces that position.
func (m *Manager) Upsert(h model.Holding) (model.Holding, error) {
	h.Ticker = strings.ToUpper(strings.TrimSpace(h.Ticker))
	if err := m.validate.Struct(h); err != nil {
		return model.Holding{}, fmt.Errorf("invalid holding: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.clone()
	idx := -1
	for i, cur := range next.Holdings {
		if (h.ID != "" && cur.ID == h.ID) || (h.ID == "" && cur.Ticker == h.Ticker) {
			idx = i
			break
		}
	}
	switch {
	case idx >= 0:
		h.ID = next.Holdings[idx].ID
		next.Holdings[idx] = h
	case h.ID != "":
		return model.Holding{}, fmt.Errorf("%w: %s", ErrNotFound, h.ID)
	default:
		h.ID = uuid.NewString()
		next.Holdings = append(next.Holdings, h)
	}

	if err := m.commit(next); err != nil {
		return model.Holding{}, err
	}
	log.Info().Str("ticker", h.Ticker).Float64("quantity", h.Quantity).Msg("holding saved")
	return h, nil
}

// Remove deletes a holding by ID.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, h := range m.state.Holdings {
		if h.ID == id {
			next := m.clone()
			next.Holdings = append(next.Holdings[:i], next.Holdings[i+1:]...)
			return m.commit(next)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// MarkPrices updates CurrentPrice for every held ticker present in prices.
func (m *Manager) MarkPrices(prices map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.clone()
	changed := false
	for i, h := range next.Holdings {
		if p, ok := prices[h.Ticker]; ok && p > 0 {
			next.Holdings[i].CurrentPrice = p
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := m.commit(next); err != nil {
		log.Error().Err(err).Msg("failed to save portfolio after price update")
	}
}

// Summary values the current holdings.
func (m *Manager) Summary() model.PortfolioSummary {
	return Summarize(m.Holdings())
}

// Summarize computes cost, valuation and P/L for holdings.
func Summarize(holdings []model.Holding) model.PortfolioSummary {
	var s model.PortfolioSummary
	for _, h := range holdings {
		s.Invested += h.AvgPrice * h.Quantity
		s.Valuation += h.MarkPrice() * h.Quantity
	}
	s.PL = s.Valuation - s.Invested
	if s.Invested > 0 {
		s.PLPercent = s.PL / s.Invested * 100
	}
	s.Positions = len(holdings)
	return s
}

// clone returns a deep copy of the state for a pending change. Callers hold mu.
func (m *Manager) clone() *model.PortfolioState {
	next := *m.state
	next.Holdings = append(make([]model.Holding, 0, len(m.state.Holdings)), m.state.Holdings...)
	return &next
}

// commit persists next and only then makes it the current state.
func (m *Manager) commit(next *model.PortfolioState) error {
	if err := SaveState(m.filePath, next); err != nil {
		return err
	}
	m.state = next
	return nil
}
