// Package featureflags gates optional features per account.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"

	"devfolio/internal/models"
)

// Flags consulted by the services.
const (
	Uploads        = "uploads"
	AIDescriptions = "ai_descriptions"
	SearchIndex    = "search_index"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "uploads=on,ai_descriptions=25%,search_index=off"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for an account.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic account rollout, e.g. 25%)
//
// Unknown flags are disabled. A nil manager enables everything.
func (m *Manager) Enabled(name, accountID string) bool {
	if m == nil {
		return true
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil, pct <= 0:
		return false
	case pct >= 100:
		return true
	case accountID == "":
		return false
	}
	return rolloutBucket(name, accountID) < pct
}

// Require returns a FeatureDisabled error when the flag is off for the account.
func (m *Manager) Require(name, accountID string) error {
	if m.Enabled(name, accountID) {
		return nil
	}
	return models.NewFeatureDisabledError(name)
}

// Snapshot returns evaluated flag status for one account.
func (m *Manager) Snapshot(accountID string) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, accountID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, accountID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + accountID))
	return int(h.Sum32() % 100)
}
