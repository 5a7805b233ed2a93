package enroll

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/vigilohq/agent/internal/confstore"
	"github.com/vigilohq/agent/pkg/types"
)

type stubProvisioner struct {
	req      types.EndpointRequest
	endpoint types.Endpoint
	err      error
}

func (s *stubProvisioner) CreateEndpoint(ctx context.Context, req types.EndpointRequest) (types.Endpoint, error) {
	s.req = req
	return s.endpoint, s.err
}

func TestRunRegistersAndPersists(t *testing.T) {
	conf := filepath.Join(t.TempDir(), "vigilo.conf")
	prov := &stubProvisioner{endpoint: types.Endpoint{
		ID: "ep_1", Name: "web-1", ParentID: "ep_0", ParentName: "cluster",
	}}
	var out bytes.Buffer

	err := Run(context.Background(), []string{
		"--settings", filepath.Join(t.TempDir(), "missing.yaml"),
		"--conf", conf,
		"--name", "web-1",
		"--parent-id", "ep_0",
	}, Dependencies{Provisioner: prov, Out: &out})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if prov.req.Name != "web-1" || prov.req.ParentID != "ep_0" {
		t.Fatalf("unexpected request: %+v", prov.req)
	}

	store := confstore.New(conf, confstore.Dependencies{})
	for path, want := range map[string]string{
		"endpoint_data.endpoint_id":          "ep_1",
		"endpoint_data.endpoint_name":        "web-1",
		"endpoint_data.parent_endpoint_id":   "ep_0",
		"endpoint_data.parent_endpoint_name": "cluster",
	} {
		val, err := store.ReadValue(context.Background(), path)
		if err != nil {
			t.Fatalf("ReadValue(%s): %v", path, err)
		}
		if val.Text() != want {
			t.Fatalf("%s = %q, want %q", path, val.Text(), want)
		}
	}
}

func TestRunDefaultsNameToHostname(t *testing.T) {
	conf := filepath.Join(t.TempDir(), "vigilo.conf")
	prov := &stubProvisioner{endpoint: types.Endpoint{ID: "ep_1", Name: "host"}}

	err := Run(context.Background(), []string{
		"--settings", filepath.Join(t.TempDir(), "missing.yaml"),
		"--conf", conf,
	}, Dependencies{Provisioner: prov, Out: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		t.Fatalf("Hostname: %v", err)
	}
	if prov.req.Name != hostname {
		t.Fatalf("request name = %q, want hostname %q", prov.req.Name, hostname)
	}
}

func TestRunSurfacesAPIFailure(t *testing.T) {
	conf := filepath.Join(t.TempDir(), "vigilo.conf")
	prov := &stubProvisioner{err: fmt.Errorf("api down")}

	err := Run(context.Background(), []string{
		"--settings", filepath.Join(t.TempDir(), "missing.yaml"),
		"--conf", conf,
		"--name", "web-1",
	}, Dependencies{Provisioner: prov, Out: &bytes.Buffer{}})
	if err == nil {
		t.Fatalf("expected error when API call fails")
	}
}

func TestRunRejectsInvalidDocument(t *testing.T) {
	conf := filepath.Join(t.TempDir(), "vigilo.conf")
	if err := os.WriteFile(conf, []byte("not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	prov := &stubProvisioner{endpoint: types.Endpoint{ID: "ep_1", Name: "web-1"}}

	err := Run(context.Background(), []string{
		"--settings", filepath.Join(t.TempDir(), "missing.yaml"),
		"--conf", conf,
		"--name", "web-1",
	}, Dependencies{Provisioner: prov, Out: &bytes.Buffer{}})
	if err == nil {
		t.Fatalf("expected error for invalid document")
	}
}
