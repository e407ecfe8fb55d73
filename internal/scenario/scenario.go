// Package scenario loads and runs declarative scheduling scenarios: a set
// of waiter threads parked on one condition plus a scripted notifier.
package scenario

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
)

// Op is a scripted notifier action.
type Op string

const (
	// OpNotifyOne wakes the longest-waiting thread.
	OpNotifyOne Op = "notify_one"
	// OpNotifyAll wakes every currently parked thread.
	OpNotifyAll Op = "notify_all"
	// OpYield hands control back so woken threads run before the next step.
	OpYield Op = "yield"
)

// Step is one scripted notifier action.
type Step struct {
	Op Op
}

// Scenario describes a reproducible run.
type Scenario struct {
	Name    string
	Seed    uint64
	Fuzz    bool
	Waiters int
	Steps   []Step
}

var (
	// ErrNoScenarioSection indicates a file without a [scenario] table.
	ErrNoScenarioSection = errors.New("missing [scenario] section")
	// ErrUnknownOp indicates a step op outside the supported set.
	ErrUnknownOp = errors.New("unknown step op")
)

type fileStep struct {
	Op string `toml:"op"`
}

type fileScenario struct {
	Scenario struct {
		Name    string `toml:"name"`
		Seed    int64  `toml:"seed"`
		Fuzz    bool   `toml:"fuzz"`
		Waiters int64  `toml:"waiters"`
	} `toml:"scenario"`
	Steps []fileStep `toml:"step"`
}

// Load parses and validates a scenario TOML file.
func Load(path string) (*Scenario, error) {
	var cfg fileScenario
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("scenario") {
		return nil, fmt.Errorf("%s: %w", path, ErrNoScenarioSection)
	}

	seed, err := safecast.Conv[uint64](cfg.Scenario.Seed)
	if err != nil {
		return nil, fmt.Errorf("%s: scenario.seed: %w", path, err)
	}
	waiters, err := safecast.Conv[int](cfg.Scenario.Waiters)
	if err != nil || cfg.Scenario.Waiters < 0 {
		return nil, fmt.Errorf("%s: scenario.waiters must be >= 0", path)
	}

	scn := &Scenario{
		Name:    cfg.Scenario.Name,
		Seed:    seed,
		Fuzz:    cfg.Scenario.Fuzz,
		Waiters: waiters,
	}
	if scn.Name == "" {
		scn.Name = "unnamed"
	}

	for i, fs := range cfg.Steps {
		op := Op(fs.Op)
		switch op {
		case OpNotifyOne, OpNotifyAll, OpYield:
			scn.Steps = append(scn.Steps, Step{Op: op})
		default:
			return nil, fmt.Errorf("%s: step %d: %w: %q", path, i, ErrUnknownOp, fs.Op)
		}
	}
	return scn, nil
}
