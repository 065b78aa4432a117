package naming

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"imgupload/internal/validation"
)

// Strategy selects how the millisecond suffix of a stored name is produced.
type Strategy string

const (
	// StrategyTimestamp uses the raw wall clock. Two calls in the same millisecond produce the same name.
	StrategyTimestamp Strategy = "timestamp"
	// StrategyMonotonic keeps the stem_<ms>.ext shape but never hands out the same millisecond twice
	// within one process.
	StrategyMonotonic Strategy = "monotonic"
	// StrategyRandom appends a short random fragment after the timestamp: stem_<ms>-<8 hex>.ext.
	StrategyRandom Strategy = "random"
)

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

// Namer produces collision-resistant storage names from sanitized original filenames.
type Namer interface {
	Name(sanitized string) string
}

// ParseStrategy maps a config value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyTimestamp:
		return StrategyTimestamp, nil
	case StrategyMonotonic, "":
		return StrategyMonotonic, nil
	case StrategyRandom:
		return StrategyRandom, nil
	default:
		return "", fmt.Errorf("unknown naming strategy %q", s)
	}
}

// New returns a Namer for the given strategy. A nil clock means time.Now.
func New(s Strategy, clock Clock) Namer {
	if clock == nil {
		clock = time.Now
	}
	switch s {
	case StrategyTimestamp:
		return timestampNamer{clock: clock}
	case StrategyRandom:
		return randomNamer{clock: clock}
	default:
		return &monotonicNamer{clock: clock}
	}
}

func format(stem string, ms int64, suffix, ext string) string {
	return stem + "_" + strconv.FormatInt(ms, 10) + suffix + ext
}

type timestampNamer struct {
	clock Clock
}

func (n timestampNamer) Name(sanitized string) string {
	stem, ext := validation.SplitName(sanitized)
	return format(stem, n.clock().UnixMilli(), "", ext)
}

type monotonicNamer struct {
	clock Clock

	mu   sync.Mutex
	last int64
}

func (n *monotonicNamer) Name(sanitized string) string {
	stem, ext := validation.SplitName(sanitized)

	n.mu.Lock()
	ms := n.clock().UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	n.mu.Unlock()

	return format(stem, ms, "", ext)
}

type randomNamer struct {
	clock Clock
}

func (n randomNamer) Name(sanitized string) string {
	stem, ext := validation.SplitName(sanitized)
	frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return format(stem, n.clock().UnixMilli(), "-"+frag, ext)
}
