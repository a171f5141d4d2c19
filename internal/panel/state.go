package panel

import "sync"

// StateSnapshot is a copy of State for JSON responses.
type StateSnapshot struct {
	Port     string `json:"port"`
	Datasite string `json:"datasite"`
}

// State is the controller's in-memory port and last fetched datasite.
type State struct {
	mu       sync.RWMutex
	port     string
	datasite string
}

func NewState(defaultPort string) *State {
	return &State{port: defaultPort}
}

func (s *State) Port() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

func (s *State) SetPort(port string) {
	s.mu.Lock()
	s.port = port
	s.mu.Unlock()
}

func (s *State) Datasite() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasite
}

func (s *State) SetDatasite(datasite string) {
	s.mu.Lock()
	s.datasite = datasite
	s.mu.Unlock()
}

func (s *State) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StateSnapshot{Port: s.port, Datasite: s.datasite}
}
