package monitorcli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vigilohq/agent/internal/confstore"
	"github.com/vigilohq/agent/pkg/types"
)

type stubProvisioner struct {
	created   []types.MonitorRequest
	deleted   []string
	listed    []string
	monitor   types.Monitor
	monitors  []types.Monitor
	createErr error
	deleteErr error
}

func (s *stubProvisioner) CreateMonitor(ctx context.Context, req types.MonitorRequest) (types.Monitor, error) {
	s.created = append(s.created, req)
	return s.monitor, s.createErr
}

func (s *stubProvisioner) DeleteMonitor(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.deleteErr
}

func (s *stubProvisioner) ListMonitors(ctx context.Context, endpointID string) ([]types.Monitor, error) {
	s.listed = append(s.listed, endpointID)
	return s.monitors, nil
}

func registeredConf(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	conf := filepath.Join(t.TempDir(), "vigilo.conf")
	store := confstore.New(conf, confstore.Dependencies{})
	if err := store.Create(ctx, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.WriteValue(ctx, "endpoint_data.endpoint_id", "ep_1"); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	return conf
}

func missingSettings(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.yaml")
}

func TestRunRequiresSubcommand(t *testing.T) {
	if err := Run(context.Background(), nil, Dependencies{}); err == nil {
		t.Fatalf("expected error for missing subcommand")
	}
	if err := Run(context.Background(), []string{"bogus"}, Dependencies{}); err == nil {
		t.Fatalf("expected error for unknown subcommand")
	}
}

func TestAddProvisionsAndRecords(t *testing.T) {
	conf := registeredConf(t)
	prov := &stubProvisioner{monitor: types.Monitor{ID: "mon_1", Name: "CPU", Interval: 5}}
	var out bytes.Buffer

	err := Run(context.Background(), []string{
		"add",
		"--settings", missingSettings(t),
		"--conf", conf,
		"--name", "CPU",
		"--kind", "cpu",
		"--interval", "5",
	}, Dependencies{Provisioner: prov, Out: &out})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(prov.created) != 1 {
		t.Fatalf("expected one create call got %d", len(prov.created))
	}
	req := prov.created[0]
	if req.EndpointID != "ep_1" || req.Kind != "cpu" || req.Interval != 5 {
		t.Fatalf("unexpected request: %+v", req)
	}

	store := confstore.New(conf, confstore.Dependencies{})
	rec, err := store.FindRecord(context.Background(), "monitor_data", "monitor_id", "mon_1")
	if err != nil {
		t.Fatalf("FindRecord: %v", err)
	}
	if kind, _ := rec.Get("monitor_kind"); kind.Text() != "cpu" {
		t.Fatalf("unexpected record: %s", rec.Text())
	}
	if interval, _ := rec.Get("monitor_interval"); interval.Text() != "5" {
		t.Fatalf("unexpected record: %s", rec.Text())
	}
}

func TestAddRejectsUnknownKind(t *testing.T) {
	err := Run(context.Background(), []string{
		"add",
		"--settings", missingSettings(t),
		"--conf", registeredConf(t),
		"--name", "CPU",
		"--kind", "temperature",
	}, Dependencies{Provisioner: &stubProvisioner{}, Out: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), "invalid probe kind") {
		t.Fatalf("expected invalid kind error got %v", err)
	}
}

func TestAddRequiresRegisteredEndpoint(t *testing.T) {
	ctx := context.Background()
	conf := filepath.Join(t.TempDir(), "vigilo.conf")
	store := confstore.New(conf, confstore.Dependencies{})
	if err := store.Create(ctx, false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := Run(ctx, []string{
		"add",
		"--settings", missingSettings(t),
		"--conf", conf,
		"--name", "CPU",
		"--kind", "cpu",
	}, Dependencies{Provisioner: &stubProvisioner{}, Out: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("expected not-registered error got %v", err)
	}
}

func TestRemoveByName(t *testing.T) {
	ctx := context.Background()
	conf := registeredConf(t)
	prov := &stubProvisioner{monitor: types.Monitor{ID: "mon_1", Name: "CPU"}}
	var out bytes.Buffer

	err := Run(ctx, []string{
		"add",
		"--settings", missingSettings(t),
		"--conf", conf,
		"--name", "CPU",
		"--kind", "cpu",
	}, Dependencies{Provisioner: prov, Out: &out})
	if err != nil {
		t.Fatalf("add returned error: %v", err)
	}

	err = Run(ctx, []string{
		"remove",
		"--settings", missingSettings(t),
		"--conf", conf,
		"--name", "cpu",
	}, Dependencies{Provisioner: prov, Out: &out})
	if err != nil {
		t.Fatalf("remove returned error: %v", err)
	}

	if len(prov.deleted) != 1 || prov.deleted[0] != "mon_1" {
		t.Fatalf("unexpected deletes: %v", prov.deleted)
	}
	store := confstore.New(conf, confstore.Dependencies{})
	count, err := store.CountRecords(ctx, "monitor_data")
	if err != nil {
		t.Fatalf("CountRecords: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty collection got %d records", count)
	}
}

func TestRemoveSurfacesAPIFailure(t *testing.T) {
	conf := registeredConf(t)
	prov := &stubProvisioner{deleteErr: fmt.Errorf("api down")}

	err := Run(context.Background(), []string{
		"remove",
		"--settings", missingSettings(t),
		"--conf", conf,
		"--id", "mon_1",
	}, Dependencies{Provisioner: prov, Out: &bytes.Buffer{}})
	if err == nil {
		t.Fatalf("expected error when API delete fails")
	}
}

func TestListLocal(t *testing.T) {
	ctx := context.Background()
	conf := registeredConf(t)
	prov := &stubProvisioner{monitor: types.Monitor{ID: "mon_1", Name: "CPU"}}
	var out bytes.Buffer

	err := Run(ctx, []string{
		"add",
		"--settings", missingSettings(t),
		"--conf", conf,
		"--name", "CPU",
		"--kind", "cpu",
	}, Dependencies{Provisioner: prov, Out: &out})
	if err != nil {
		t.Fatalf("add returned error: %v", err)
	}

	out.Reset()
	err = Run(ctx, []string{
		"list",
		"--settings", missingSettings(t),
		"--conf", conf,
	}, Dependencies{Provisioner: prov, Out: &out})
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if !strings.Contains(out.String(), `"monitor_id": "mon_1"`) {
		t.Fatalf("list output missing record: %q", out.String())
	}
}

func TestListRemote(t *testing.T) {
	conf := registeredConf(t)
	prov := &stubProvisioner{monitors: []types.Monitor{
		{ID: "mon_1", Name: "CPU", Kind: "cpu"},
		{ID: "mon_2", Name: "Disk", Kind: "disk"},
	}}
	var out bytes.Buffer

	err := Run(context.Background(), []string{
		"list",
		"--settings", missingSettings(t),
		"--conf", conf,
		"--remote",
	}, Dependencies{Provisioner: prov, Out: &out})
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(prov.listed) != 1 || prov.listed[0] != "ep_1" {
		t.Fatalf("unexpected list calls: %v", prov.listed)
	}
	if !strings.Contains(out.String(), "mon_2\tDisk\tdisk") {
		t.Fatalf("list output missing monitor: %q", out.String())
	}
}
