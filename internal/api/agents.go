package api

import (
	"context"
	"fmt"
	"time"
)

// Agent represents a managed server reported by the backend.
type Agent struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Hostname      string       `json:"hostname"`
	IPAddress     string       `json:"ip_address"`
	OS            string       `json:"os"`
	Architecture  string       `json:"architecture"`
	Status        string       `json:"status"` // online, offline, degraded
	LastHeartbeat time.Time    `json:"last_heartbeat"`
	Tags          []string     `json:"tags"`
	Metrics       MetricWindow `json:"metrics"`
}

// MetricWindow carries the backend-owned recent metric samples for an agent.
// The history is bounded server-side; the client never accumulates locally.
type MetricWindow struct {
	CPU            []float64 `json:"cpu_usage"`
	Memory         []float64 `json:"memory_usage"`
	ResponseTimeMs []float64 `json:"response_times"`
}

// CommandAck is the backend's acknowledgement of a dispatched command. It
// confirms acceptance only, not remote completion.
type CommandAck struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type listAgentsResponse struct {
	Agents []Agent `json:"agents"`
}

// ListAgents retrieves the full current set of managed servers.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var resp listAgentsResponse
	if _, err := c.Do(ctx, "GET", "/agents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// GetAgent retrieves a single managed server by id.
func (c *Client) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	var resp struct {
		Agent Agent `json:"agent"`
	}
	endpoint := fmt.Sprintf("/agents/%s", agentID)
	if _, err := c.Do(ctx, "GET", endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Agent, nil
}

// SendCommand dispatches a one-shot command to an agent.
func (c *Client) SendCommand(ctx context.Context, agentID, command string) (*CommandAck, error) {
	endpoint := fmt.Sprintf("/agents/%s/command", agentID)
	payload := map[string]string{"command": command}

	var resp CommandAck
	if _, err := c.Do(ctx, "POST", endpoint, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
