// Package draft persists the selector state between CLI invocations.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/username/hours-tracker/pkg/dateutil"
)

// State is the host's copy of a selection
type State struct {
	ContainerID string   `json:"container_id"`
	Month       string   `json:"month"` // YYYY-MM
	Selected    []string `json:"selected"`
	UpdatedAt   string   `json:"updated_at"`
}

// VisibleMonth parses Month. ok is false when the draft has no month yet.
func (s *State) VisibleMonth() (year int, month time.Month, ok bool) {
	if s.Month == "" {
		return 0, 0, false
	}
	year, month, err := dateutil.ParseMonth(s.Month)
	if err != nil {
		return 0, 0, false
	}
	return year, month, true
}

// Store reads and writes a draft file
type Store struct {
	path   string
	state  *State
	now    func() time.Time
	logger *zap.Logger
}

// NewStore creates a draft store backed by path
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		now:    time.Now,
		logger: logger,
	}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Load reads the draft file. A missing file yields an empty draft.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.state = &State{Selected: []string{}}
			return s.state, nil
		}
		return nil, fmt.Errorf("failed to read draft file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse draft file: %w", err)
	}
	if state.Selected == nil {
		state.Selected = []string{}
	}

	s.state = &state
	s.logger.Debug("Draft loaded",
		zap.String("path", s.path),
		zap.String("month", state.Month),
		zap.Int("selected", len(state.Selected)))

	return s.state, nil
}

// Save writes the selection and visible month
func (s *Store) Save(containerID string, year int, month time.Month, selected []string) error {
	dates := append([]string{}, selected...)
	sort.Strings(dates)

	s.state = &State{
		ContainerID: containerID,
		Month:       fmt.Sprintf("%04d-%02d", year, int(month)),
		Selected:    dates,
		UpdatedAt:   s.now().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create draft directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write draft file: %w", err)
	}

	s.logger.Debug("Draft saved",
		zap.String("path", s.path),
		zap.String("month", s.state.Month),
		zap.Int("selected", len(dates)))

	return nil
}

// Clear removes the draft file
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove draft file: %w", err)
	}
	s.state = &State{Selected: []string{}}
	return nil
}
