package pipeline

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"pipeline/internal/config"
	"pipeline/internal/turns"
	"pipeline/pkg/logger"
)

// PolicyStore holds the turn reconstructor's hallucination-filter policy as
// a named, overridable configuration block (not hardcoded contract, per the
// "hallucination rules are policy" design note). The block's literal
// thresholds still default to turns.DefaultPolicy(); a JSON file at
// policyPath may override any subset of fields and is picked up live when
// watched.
type PolicyStore struct {
	mu     sync.RWMutex
	policy turns.Policy
}

// NewPolicyStore returns a PolicyStore seeded with the default policy.
func NewPolicyStore() *PolicyStore {
	return &PolicyStore{policy: turns.DefaultPolicy()}
}

// Get returns the current policy snapshot.
func (s *PolicyStore) Get() turns.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// LoadFromFile reads a JSON-encoded turns.Policy from path and replaces the
// current policy; fields absent from the file take their
// turns.DefaultPolicy() values. A missing file is not an error; the
// existing policy is kept.
func (s *PolicyStore) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	p := turns.DefaultPolicy()
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
	logger.Info("hallucination policy reloaded", "path", path)
	return nil
}

// WatchFile watches path for changes and reloads the policy whenever it is
// rewritten. The returned watcher must be closed by the caller on shutdown.
func (s *PolicyStore) WatchFile(path string) (*fsnotify.Watcher, error) {
	return config.WatchHallucinationPolicy(path, func() {
		if err := s.LoadFromFile(path); err != nil {
			logger.Warn("failed to reload hallucination policy", "path", path, "error", err.Error())
		}
	})
}
