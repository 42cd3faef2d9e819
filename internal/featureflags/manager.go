// Package featureflags evaluates the operational switches this service
// consults at runtime, parsed from the FEATURE_FLAGS config value.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Flag names a switch the allocation API consults. Unknown names in the
// config still parse and evaluate, but the constants below are the ones
// wired into handlers.
type Flag string

const (
	// JoinMaintenance drains the join endpoint: allocation requests get
	// SERVER_BUSY while rooms are being rebalanced or migrated. Existing
	// members keep reading and leaving as normal.
	JoinMaintenance Flag = "join_maintenance"
)

// Manager evaluates flags defined in a comma-separated key=value list.
// Example: "join_maintenance=off,room_directory_v2=25%"
type Manager struct {
	flags map[string]string
}

// NewManager parses the FEATURE_FLAGS config string. Malformed pairs are
// skipped rather than rejected so a typo cannot take the service down.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := normalize(parts[0])
		value := normalize(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic user rollout, e.g. 25%)
func (m *Manager) Enabled(flag Flag, userID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(string(flag))]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	if strings.HasSuffix(value, "%") {
		pctRaw := strings.TrimSuffix(value, "%")
		pct, err := strconv.Atoi(pctRaw)
		if err != nil {
			return false
		}
		if pct <= 0 {
			return false
		}
		if pct >= 100 {
			return true
		}
		if userID == 0 {
			return false
		}
		return rolloutBucket(flag, userID) < pct
	}

	return false
}

// Raw returns a copy of the configured flag values as parsed.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns every configured flag evaluated for one user, so an
// operator can see which side of a percentage rollout that user lands on.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(Flag(name), userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(flag Flag, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(string(flag)), userID)))
	return int(h.Sum32() % 100)
}
