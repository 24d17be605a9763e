package domain

import (
	"context"
	"time"
)

type PackState string

const (
	StateLoading    PackState = "loading"
	StateLoaded     PackState = "loaded"
	StateInstalling PackState = "installing"
	StateInstalled  PackState = "installed"
	StateUpdating   PackState = "updating"
	StateUpdated    PackState = "updated"
	StateDeleting   PackState = "deleting"
	StateDeleted    PackState = "deleted"
	StateError      PackState = "error"
)

// Terminal reports whether s ends an operation.
func (s PackState) Terminal() bool {
	switch s {
	case StateLoaded, StateInstalled, StateUpdated, StateDeleted, StateError:
		return true
	default:
		return false
	}
}

type PackEvent struct {
	ID       string         `json:"id"`
	PackName string         `json:"pack_name"`
	State    PackState      `json:"state"`
	Error    string         `json:"error,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	At       time.Time      `json:"at"`
}

// Listener observes lifecycle transitions. Returned errors are logged and
// never abort the transition.
type Listener interface {
	OnPackEvent(ctx context.Context, event PackEvent) error
}

type ListenerFunc func(ctx context.Context, event PackEvent) error

func (f ListenerFunc) OnPackEvent(ctx context.Context, event PackEvent) error {
	return f(ctx, event)
}

// LoadedPack is the registry entry for a pack directory that loaded cleanly.
type LoadedPack struct {
	Name     string
	Dir      string
	LoadedAt time.Time
}
