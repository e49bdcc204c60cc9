package fleet

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/autosysadmin/console-cli/internal/alert"
	"github.com/autosysadmin/console-cli/internal/api"
)

// Command is a recognized one-shot instruction for a managed server. The
// values are the wire identifiers the backend accepts.
type Command string

const (
	CommandRestart        Command = "restart"
	CommandUpdatePackages Command = "update"
	CommandBackup         Command = "backup"
	CommandCheckStatus    Command = "status"
)

// Commands lists the recognized command kinds in display order.
func Commands() []Command {
	return []Command{CommandRestart, CommandUpdatePackages, CommandBackup, CommandCheckStatus}
}

// Valid reports whether the command is one of the recognized kinds.
func (c Command) Valid() bool {
	switch c {
	case CommandRestart, CommandUpdatePackages, CommandBackup, CommandCheckStatus:
		return true
	}
	return false
}

// ParseCommand maps operator input to a recognized command kind.
func ParseCommand(s string) (Command, error) {
	cmd := Command(strings.ToLower(strings.TrimSpace(s)))
	if !cmd.Valid() {
		return "", &ValidationError{Field: "command", Reason: fmt.Sprintf("unrecognized command %q", s)}
	}
	return cmd, nil
}

// ValidationError is a locally rejected input; no network call was made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Gateway is the slice of the API client the monitor depends on.
type Gateway interface {
	ListAgents(ctx context.Context) ([]api.Agent, error)
	SendCommand(ctx context.Context, agentID, command string) (*api.CommandAck, error)
}

// Monitor owns the known server set and dispatches commands to selected
// servers, reporting outcomes through the alert bus.
type Monitor struct {
	mu     sync.Mutex
	gw     Gateway
	alerts *alert.Bus

	agents []api.Agent
}

// NewMonitor constructs a fleet monitor publishing outcomes to the given
// alert bus.
func NewMonitor(gw Gateway, alerts *alert.Bus) *Monitor {
	return &Monitor{gw: gw, alerts: alerts}
}

// RefreshServers fetches the full current server set and replaces the
// collection wholesale. No diffing against the previous snapshot; identity
// across refreshes is by agent id only.
func (m *Monitor) RefreshServers(ctx context.Context) error {
	agents, err := m.gw.ListAgents(ctx)
	if err != nil {
		m.alerts.Publish("Failed to fetch servers", alert.SeverityError)
		return err
	}
	m.mu.Lock()
	m.agents = agents
	m.mu.Unlock()
	return nil
}

// Agents returns the cached server set from the last refresh.
func (m *Monitor) Agents() []api.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]api.Agent, len(m.agents))
	copy(out, m.agents)
	return out
}

// Agent looks up a cached server by id.
func (m *Monitor) Agent(id string) (*api.Agent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.agents {
		if m.agents[i].ID == id {
			copied := m.agents[i]
			return &copied, true
		}
	}
	return nil, false
}

// DispatchCommand sends exactly one command request to a server. Malformed
// input is rejected locally with a ValidationError before any network call.
// Success means the backend accepted the dispatch, not that the remote
// action finished; no correlation id is retained for later polling.
// Dispatches are independent and unordered; nothing serializes commands
// targeting the same server.
func (m *Monitor) DispatchCommand(ctx context.Context, serverID string, cmd Command) error {
	if strings.TrimSpace(serverID) == "" {
		return &ValidationError{Field: "server id", Reason: "must not be empty"}
	}
	if !cmd.Valid() {
		return &ValidationError{Field: "command", Reason: fmt.Sprintf("unrecognized command %q", string(cmd))}
	}

	if _, err := m.gw.SendCommand(ctx, serverID, string(cmd)); err != nil {
		m.alerts.Publish("Failed to execute command", alert.SeverityError)
		return err
	}

	m.alerts.Publish("Command executed successfully", alert.SeveritySuccess)
	return nil
}
