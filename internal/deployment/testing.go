package deployment

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/rs/zerolog"

	"sunbeam/internal/clusterd"
	"sunbeam/internal/command"
	"sunbeam/internal/config"
	"sunbeam/internal/juju"
)

// NewForTest returns a Deployment backed by a state file and a plans
// directory under t.TempDir(). Time runs a thousand times faster than the
// wall clock so one second of polling takes a millisecond.
func NewForTest(t testing.TB, client juju.Client, runner command.Runner) *Deployment {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.StatePath = filepath.Join(dir, clusterd.StateFileName)
	cfg.Terraform.PlansDir = filepath.Join(dir, "plans")
	cfg.Terraform.LockRetryDelay = time.Second

	return New(cfg, clusterd.NewStore(cfg.StatePath), nil, client, runner,
		testclock.NewDilatedWallClock(time.Millisecond), zerolog.Nop())
}
