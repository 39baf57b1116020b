package juju

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/names/v5"
	"github.com/rs/zerolog"

	"sunbeam/internal/command"
)

// statusDocument is the subset of `juju status --format json` the client reads.
type statusDocument struct {
	Applications map[string]applicationStatus `json:"applications"`
}

type applicationStatus struct {
	Charm             string                `json:"charm"`
	CharmName         string                `json:"charm-name"`
	ApplicationStatus statusInfo            `json:"application-status"`
	Units             map[string]unitStatus `json:"units"`
}

type unitStatus struct {
	WorkloadStatus statusInfo `json:"workload-status"`
	JujuStatus     statusInfo `json:"juju-status"`
	Machine        string     `json:"machine"`
}

type statusInfo struct {
	Current string `json:"current"`
	Message string `json:"message"`
}

// parseStatus converts the juju CLI status document into applications.
func parseStatus(data []byte) (map[string]*Application, error) {
	var doc statusDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Annotate(err, "parsing juju status")
	}

	apps := make(map[string]*Application, len(doc.Applications))
	for name, raw := range doc.Applications {
		charm := raw.CharmName
		if charm == "" {
			charm = raw.Charm
		}
		app := &Application{
			Name:    name,
			Charm:   charm,
			Status:  raw.ApplicationStatus.Current,
			Message: raw.ApplicationStatus.Message,
			Units:   make(map[string]Unit, len(raw.Units)),
		}
		for unitName, u := range raw.Units {
			app.Units[unitName] = Unit{
				Name:           unitName,
				Machine:        u.Machine,
				AgentStatus:    u.JujuStatus.Current,
				WorkloadStatus: u.WorkloadStatus.Current,
				Message:        u.WorkloadStatus.Message,
			}
		}
		apps[name] = app
	}
	return apps, nil
}

// CLIClient implements [Client] by running the juju binary.
type CLIClient struct {
	binary string
	runner command.Runner
	logger zerolog.Logger
}

// NewCLIClient creates a CLIClient running binary through runner.
func NewCLIClient(binary string, runner command.Runner, logger zerolog.Logger) *CLIClient {
	return &CLIClient{
		binary: binary,
		runner: runner,
		logger: logger.With().Str("component", "juju").Logger(),
	}
}

func (c *CLIClient) run(ctx context.Context, args ...string) (string, error) {
	c.logger.Debug().Strs("args", args).Msg("Running juju")
	result, err := c.runner.Run(ctx, "", c.binary, args...)
	if err != nil {
		return "", errors.Annotatef(err, "running juju %s", args[0])
	}
	if !result.Success() {
		return "", errors.Errorf("juju %s failed: %s", args[0], strings.TrimSpace(result.Stderr))
	}
	return result.Stdout, nil
}

// GetApplications implements [Client].
func (c *CLIClient) GetApplications(ctx context.Context, model string) (map[string]*Application, error) {
	out, err := c.run(ctx, "status", "--model", model, "--format", "json")
	if err != nil {
		return nil, err
	}
	return parseStatus([]byte(out))
}

// GetApplication implements [Client].
func (c *CLIClient) GetApplication(ctx context.Context, model, name string) (*Application, error) {
	out, err := c.run(ctx, "status", "--model", model, "--format", "json", name)
	if err != nil {
		return nil, err
	}
	apps, err := parseStatus([]byte(out))
	if err != nil {
		return nil, err
	}
	app, ok := apps[name]
	if !ok {
		return nil, &ApplicationNotFoundError{Application: name, Model: model}
	}
	return app, nil
}

// GetUnits implements [Client]. Applications that do not exist contribute no units.
func (c *CLIClient) GetUnits(ctx context.Context, model string, apps []string) ([]Unit, error) {
	snapshot, err := c.GetApplications(ctx, model)
	if err != nil {
		return nil, err
	}
	return unitsOf(snapshot, apps), nil
}

// RemoveUnit implements [Client].
func (c *CLIClient) RemoveUnit(ctx context.Context, model, unit string) error {
	if !names.IsValidUnit(unit) {
		return errors.NotValidf("unit name %q", unit)
	}
	app, err := names.UnitApplication(unit)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err := c.GetApplication(ctx, model, app); err != nil {
		return err
	}
	_, err = c.run(ctx, "remove-unit", "--model", model, "--no-prompt", unit)
	return err
}

func unitsOf(snapshot map[string]*Application, apps []string) []Unit {
	var units []Unit
	for _, name := range apps {
		app, ok := snapshot[name]
		if !ok {
			continue
		}
		for _, unitName := range app.UnitNames() {
			units = append(units, app.Units[unitName])
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units
}

// GetAppsFilterByCharms returns the names of applications deployed from any
// of charms, sorted.
func GetAppsFilterByCharms(ctx context.Context, client Client, model string, charms []string) ([]string, error) {
	snapshot, err := client.GetApplications(ctx, model)
	if err != nil {
		return nil, err
	}
	wanted := set.NewStrings(charms...)
	var apps []string
	for name, app := range snapshot {
		if wanted.Contains(app.Charm) {
			apps = append(apps, name)
		}
	}
	sort.Strings(apps)
	return apps, nil
}

// Ensure CLIClient implements Client.
var _ Client = (*CLIClient)(nil)
