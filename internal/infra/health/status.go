package health

import (
	"sort"
	"sync"
	"time"
)

const (
	StatusStarting = "starting"
	StatusLoading  = "loading"
	StatusRunning  = "running"
	StatusStopped  = "stopped"
	StatusDisabled = "disabled"
)

// Registry хранит строковые статусы подсистем процесса.
type Registry struct {
	mu        sync.RWMutex
	startedAt time.Time
	statuses  map[string]string
}

// NewRegistry создаёт реестр; все перечисленные подсистемы получают статус starting.
func NewRegistry(startedAt time.Time, subsystems ...string) *Registry {
	r := &Registry{startedAt: startedAt, statuses: make(map[string]string, len(subsystems))}
	for _, name := range subsystems {
		r.statuses[name] = StatusStarting
	}
	return r
}

// Set обновляет статус подсистемы.
func (r *Registry) Set(subsystem, status string) {
	r.mu.Lock()
	r.statuses[subsystem] = status
	r.mu.Unlock()
}

// SetError выставляет статус вида "error: ...".
func (r *Registry) SetError(subsystem string, err error) {
	if err == nil {
		return
	}
	r.Set(subsystem, "error: "+err.Error())
}

// Reporter возвращает функцию обновления статуса одной подсистемы.
func (r *Registry) Reporter(subsystem string) func(string) {
	return func(status string) { r.Set(subsystem, status) }
}

// Snapshot возвращает копию статусов.
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.statuses))
	for k, v := range r.statuses {
		out[k] = v
	}
	return out
}

// Subsystems возвращает имена подсистем по алфавиту.
func (r *Registry) Subsystems() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.statuses))
	for k := range r.statuses {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// StartedAt возвращает время старта процесса.
func (r *Registry) StartedAt() time.Time {
	return r.startedAt
}
