// Package types holds the wire shapes shared between the provisioning
// client and the CLI.
package types

// Endpoint is a managed host as the remote API represents it.
type Endpoint struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	ParentID   string `json:"parent_id,omitempty"`
	ParentName string `json:"parent_name,omitempty"`
}

// EndpointRequest creates or updates an endpoint.
type EndpointRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// Monitor is a single metric monitor attached to an endpoint.
type Monitor struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	EndpointID string `json:"endpoint_id"`
	Kind       string `json:"kind"`
	Target     string `json:"target,omitempty"`
	Interval   int    `json:"interval"`
}

// MonitorRequest creates a monitor.
type MonitorRequest struct {
	Name       string `json:"name"`
	EndpointID string `json:"endpoint_id"`
	Kind       string `json:"kind"`
	Target     string `json:"target,omitempty"`
	Interval   int    `json:"interval"`
}
