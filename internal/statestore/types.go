package statestore

import "time"

// StateVersion is written into every SharedState document for forward
// compatibility with future schema changes.
const StateVersion = "1.0"

// AgentState represents the lifecycle state of a registered agent.
type AgentState string

const (
	// AgentStarting indicates the agent process has launched but has not
	// completed initialization.
	AgentStarting AgentState = "starting"

	// AgentRunning indicates the agent is alive and heartbeating.
	AgentRunning AgentState = "running"

	// AgentCrashed indicates the agent exited unexpectedly.
	AgentCrashed AgentState = "crashed"

	// AgentStopped indicates the agent shut down cleanly.
	AgentStopped AgentState = "stopped"
)

// String returns the string representation of the agent state.
func (s AgentState) String() string {
	return string(s)
}

// AgentStatus is one agent's entry in the shared state document.
type AgentStatus struct {
	Status        AgentState `json:"status"`
	LastHeartbeat time.Time  `json:"last_heartbeat"`
}

// Queues holds ordered task-id references bucketed by lifecycle status.
type Queues struct {
	Pending    []string `json:"pending"`
	InProgress []string `json:"in_progress"`
	Completed  []string `json:"completed"`
	Failed     []string `json:"failed"`
}

// SharedState is the single JSON document all agents coordinate through.
// It is only ever mutated via Store.Update, which serializes writers
// through a cross-process file lock and replaces the document atomically.
type SharedState struct {
	Version   string                 `json:"version"`
	Agents    map[string]AgentStatus `json:"agents"`
	Queues    Queues                 `json:"queues"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewSharedState returns the empty skeleton document used on first access
// and as the fallback when the on-disk document is missing or corrupt.
func NewSharedState() *SharedState {
	return &SharedState{
		Version: StateVersion,
		Agents:  make(map[string]AgentStatus),
		Queues: Queues{
			Pending:    []string{},
			InProgress: []string{},
			Completed:  []string{},
			Failed:     []string{},
		},
		Timestamp: time.Now().UTC(),
	}
}

// SetAgent records the status and heartbeat time for an agent.
func (s *SharedState) SetAgent(agentID string, state AgentState) {
	if s.Agents == nil {
		s.Agents = make(map[string]AgentStatus)
	}
	s.Agents[agentID] = AgentStatus{
		Status:        state,
		LastHeartbeat: time.Now().UTC(),
	}
}

// EnqueuePending appends a task id to the pending queue if not already present.
func (s *SharedState) EnqueuePending(taskID string) {
	s.Queues.Pending = appendUnique(s.Queues.Pending, taskID)
}

// MoveTask removes a task id from every queue and appends it to the queue
// for the given bucket. Unknown ids are simply appended.
func (s *SharedState) MoveTask(taskID, bucket string) {
	s.Queues.Pending = remove(s.Queues.Pending, taskID)
	s.Queues.InProgress = remove(s.Queues.InProgress, taskID)
	s.Queues.Completed = remove(s.Queues.Completed, taskID)
	s.Queues.Failed = remove(s.Queues.Failed, taskID)

	switch bucket {
	case "pending":
		s.Queues.Pending = append(s.Queues.Pending, taskID)
	case "in_progress":
		s.Queues.InProgress = append(s.Queues.InProgress, taskID)
	case "completed":
		s.Queues.Completed = append(s.Queues.Completed, taskID)
	case "failed":
		s.Queues.Failed = append(s.Queues.Failed, taskID)
	}
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
