package server

import (
	"zlibsearch/internal/search"
)

// State is built once at startup and shared by every request. Handlers only
// read it.
type State struct {
	Search       *search.Service
	DefaultLimit uint
}

// NewState wraps engine for the handlers. A zero defaultLimit falls back to
// search.DefaultLimit.
func NewState(engine search.Engine, observer search.Observer, defaultLimit uint) *State {
	if defaultLimit == 0 {
		defaultLimit = search.DefaultLimit
	}
	return &State{
		Search:       search.NewService(engine, observer),
		DefaultLimit: defaultLimit,
	}
}
