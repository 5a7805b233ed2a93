// Package monitorcli manages monitors: it provisions them with the
// management API and mirrors each one as a record in the local config
// store so probe runs know what to collect.
package monitorcli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/vigilohq/agent/internal/confstore"
	"github.com/vigilohq/agent/internal/probe"
	"github.com/vigilohq/agent/internal/provision"
	"github.com/vigilohq/agent/internal/settings"
	"github.com/vigilohq/agent/pkg/types"
)

const monitorCollection = "monitor_data"

// Provisioner is the slice of the management API this command uses.
type Provisioner interface {
	CreateMonitor(ctx context.Context, req types.MonitorRequest) (types.Monitor, error)
	DeleteMonitor(ctx context.Context, id string) error
	ListMonitors(ctx context.Context, endpointID string) ([]types.Monitor, error)
}

// Dependencies allow test overrides for the API client, output, and the
// store's logger.
type Dependencies struct {
	Provisioner Provisioner
	Out         io.Writer
	Logger      confstore.Logger
}

// Run dispatches one monitor subcommand.
func Run(ctx context.Context, args []string, deps Dependencies) error {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if len(args) < 1 {
		return fmt.Errorf("monitor requires a subcommand (add|remove|list)")
	}

	switch args[0] {
	case "add":
		return runAdd(ctx, args[1:], deps)
	case "remove":
		return runRemove(ctx, args[1:], deps)
	case "list":
		return runList(ctx, args[1:], deps)
	default:
		return fmt.Errorf("unknown monitor subcommand %q", args[0])
	}
}

func commonFlags(name string) (*flag.FlagSet, *string, *string) {
	fs := flag.NewFlagSet("monitor "+name, flag.ContinueOnError)
	settingsPath := fs.String("settings", settings.DefaultSettingsPath, "Path to agent settings file")
	confPath := fs.String("conf", "", "Override for the configuration document path")
	return fs, settingsPath, confPath
}

func setup(ctx context.Context, settingsPath, confPath string, deps Dependencies) (*confstore.Store, Provisioner, error) {
	cfg, err := settings.Load(ctx, settingsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	if confPath != "" {
		cfg.Conf.Path = confPath
	}

	prov := deps.Provisioner
	if prov == nil {
		client, err := provision.NewClient(
			provision.Config{BaseURL: cfg.API.URL, APIKey: cfg.API.Key},
			provision.Dependencies{HTTPClient: &http.Client{Timeout: 10 * time.Second}},
		)
		if err != nil {
			return nil, nil, fmt.Errorf("init API client: %w", err)
		}
		prov = client
	}

	store := confstore.New(cfg.Conf.Path, confstore.Dependencies{Logger: deps.Logger})
	return store, prov, nil
}

// registeredEndpointID reads the cached endpoint ID; a fresh document
// carries it as an empty string until register runs.
func registeredEndpointID(ctx context.Context, store *confstore.Store) (string, error) {
	val, err := store.ReadValue(ctx, "endpoint_data.endpoint_id")
	if err != nil {
		return "", fmt.Errorf("endpoint is not registered yet: %w", err)
	}
	if val.Text() == "" {
		return "", fmt.Errorf("endpoint is not registered yet")
	}
	return val.Text(), nil
}

func validKind(kind string) bool {
	for _, k := range probe.Kinds() {
		if probe.Kind(kind) == k {
			return true
		}
	}
	return false
}

func runAdd(ctx context.Context, args []string, deps Dependencies) error {
	fs, settingsPath, confPath := commonFlags("add")
	name := fs.String("name", "", "Monitor name")
	kind := fs.String("kind", "", "Probe kind (disk|cpu|memory|service|process|container)")
	target := fs.String("target", "", "Probe target (mount path, unit, process, or container)")
	interval := fs.Int("interval", 0, "Collection interval in minutes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if !validKind(*kind) {
		return fmt.Errorf("invalid probe kind %q", *kind)
	}

	store, prov, err := setup(ctx, *settingsPath, *confPath, deps)
	if err != nil {
		return err
	}

	endpointID, err := registeredEndpointID(ctx, store)
	if err != nil {
		return err
	}

	mon, err := prov.CreateMonitor(ctx, types.MonitorRequest{
		Name:       *name,
		EndpointID: endpointID,
		Kind:       *kind,
		Target:     *target,
		Interval:   *interval,
	})
	if err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}

	record := confstore.NewObject()
	record.Set("monitor_id", confstore.String(mon.ID))
	record.Set("monitor_name", confstore.String(mon.Name))
	record.Set("monitor_kind", confstore.String(*kind))
	if *target != "" {
		record.Set("monitor_target", confstore.String(*target))
	}
	if mon.Interval > 0 {
		record.Set("monitor_interval", confstore.String(strconv.Itoa(mon.Interval)))
	}
	if err := store.AddRecord(ctx, monitorCollection, record); err != nil {
		return fmt.Errorf("record monitor locally: %w", err)
	}

	fmt.Fprintf(deps.Out, "added monitor %s (%s)\n", mon.Name, mon.ID)
	return nil
}

func runRemove(ctx context.Context, args []string, deps Dependencies) error {
	fs, settingsPath, confPath := commonFlags("remove")
	id := fs.String("id", "", "Monitor ID")
	name := fs.String("name", "", "Monitor name (used when --id is not given)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" && *name == "" {
		return fmt.Errorf("--id or --name is required")
	}

	store, prov, err := setup(ctx, *settingsPath, *confPath, deps)
	if err != nil {
		return err
	}

	monitorID := *id
	if monitorID == "" {
		rec, err := store.FindRecord(ctx, monitorCollection, "monitor_name", *name)
		if err != nil {
			return fmt.Errorf("find monitor %q: %w", *name, err)
		}
		idVal, ok := rec.Get("monitor_id")
		if !ok {
			return fmt.Errorf("monitor %q has no recorded ID", *name)
		}
		monitorID = idVal.Text()
	}

	if err := prov.DeleteMonitor(ctx, monitorID); err != nil {
		return fmt.Errorf("delete monitor %s: %w", monitorID, err)
	}
	if err := store.DeleteRecord(ctx, monitorCollection, "monitor_id", monitorID); err != nil {
		return fmt.Errorf("remove local record for %s: %w", monitorID, err)
	}

	fmt.Fprintf(deps.Out, "removed monitor %s\n", monitorID)
	return nil
}

func runList(ctx context.Context, args []string, deps Dependencies) error {
	fs, settingsPath, confPath := commonFlags("list")
	remote := fs.Bool("remote", false, "List monitors from the management API instead of the local store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, prov, err := setup(ctx, *settingsPath, *confPath, deps)
	if err != nil {
		return err
	}

	if *remote {
		endpointID, err := registeredEndpointID(ctx, store)
		if err != nil {
			return err
		}
		monitors, err := prov.ListMonitors(ctx, endpointID)
		if err != nil {
			return fmt.Errorf("list monitors: %w", err)
		}
		for _, mon := range monitors {
			fmt.Fprintf(deps.Out, "%s\t%s\t%s\n", mon.ID, mon.Name, mon.Kind)
		}
		return nil
	}

	count, err := store.CountRecords(ctx, monitorCollection)
	if err != nil {
		return fmt.Errorf("count monitors: %w", err)
	}
	for i := 0; i < count; i++ {
		rec, err := store.ReadValue(ctx, fmt.Sprintf("%s[%d]", monitorCollection, i))
		if err != nil {
			return fmt.Errorf("read %s[%d]: %w", monitorCollection, i, err)
		}
		fmt.Fprintf(deps.Out, "%s\n", rec.Text())
	}
	return nil
}
