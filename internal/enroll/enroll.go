// Package enroll registers this host as an endpoint with the management
// API and caches the returned identifiers in the local config store.
package enroll

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/vigilohq/agent/internal/confstore"
	"github.com/vigilohq/agent/internal/provision"
	"github.com/vigilohq/agent/internal/settings"
	"github.com/vigilohq/agent/pkg/types"
)

// Provisioner is the slice of the management API this command uses.
type Provisioner interface {
	CreateEndpoint(ctx context.Context, req types.EndpointRequest) (types.Endpoint, error)
}

// Dependencies allow test overrides for the API client, output, and the
// store's logger.
type Dependencies struct {
	Provisioner Provisioner
	Out         io.Writer
	Logger      confstore.Logger
}

// Run registers the endpoint and persists its identifiers.
func Run(ctx context.Context, args []string, deps Dependencies) error {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}

	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	settingsPath := fs.String("settings", settings.DefaultSettingsPath, "Path to agent settings file")
	confPath := fs.String("conf", "", "Override for the configuration document path")
	name := fs.String("name", "", "Endpoint name (defaults to the hostname)")
	parentID := fs.String("parent-id", "", "Parent endpoint ID")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := settings.Load(ctx, *settingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if *confPath != "" {
		cfg.Conf.Path = *confPath
	}

	endpointName := *name
	if endpointName == "" {
		endpointName, err = os.Hostname()
		if err != nil {
			return fmt.Errorf("resolve hostname: %w", err)
		}
	}

	prov := deps.Provisioner
	if prov == nil {
		client, err := provision.NewClient(
			provision.Config{BaseURL: cfg.API.URL, APIKey: cfg.API.Key},
			provision.Dependencies{HTTPClient: &http.Client{Timeout: 10 * time.Second}},
		)
		if err != nil {
			return fmt.Errorf("init API client: %w", err)
		}
		prov = client
	}

	store := confstore.New(cfg.Conf.Path, confstore.Dependencies{Logger: deps.Logger})
	switch store.Validate(ctx) {
	case confstore.ValidityMissing:
		if err := store.Create(ctx, false); err != nil {
			return fmt.Errorf("create configuration document: %w", err)
		}
	case confstore.ValidityInvalid:
		return fmt.Errorf("configuration document %s is invalid; recreate it with conf create --force", cfg.Conf.Path)
	}

	ep, err := prov.CreateEndpoint(ctx, types.EndpointRequest{Name: endpointName, ParentID: *parentID})
	if err != nil {
		return fmt.Errorf("register endpoint: %w", err)
	}

	fields := map[string]string{
		"endpoint_id":          ep.ID,
		"endpoint_name":        ep.Name,
		"parent_endpoint_id":   ep.ParentID,
		"parent_endpoint_name": ep.ParentName,
	}
	for key, value := range fields {
		if err := store.WriteValue(ctx, "endpoint_data."+key, value); err != nil {
			return fmt.Errorf("persist %s: %w", key, err)
		}
	}

	fmt.Fprintf(deps.Out, "registered endpoint %s (%s)\n", ep.Name, ep.ID)
	return nil
}
