package health

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/pictalk/internal/content"
	"github.com/MrWong99/pictalk/internal/resilience"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

// Catalog fails while the symbol library is empty.
func Catalog(lib *symbol.Library) Checker {
	return Checker{Name: "catalog", Check: func(context.Context) error {
		if lib == nil || lib.Len() == 0 {
			return symbol.ErrEmptyCatalog
		}
		return nil
	}}
}

// Content fails when no support-content pack is loaded.
func Content(store *content.Store) Checker {
	return Checker{Name: "content", Check: func(context.Context) error {
		if store == nil || store.Current() == nil {
			return errors.New("no content pack loaded")
		}
		return nil
	}}
}

// Pinger is satisfied by stores that can probe their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping is a required check that calls p.Ping.
func Ping(name string, p Pinger) Checker {
	return Checker{Name: name, Check: p.Ping}
}

// Degrader is satisfied by components that keep working in a reduced mode.
type Degrader interface {
	IsDegraded() bool
}

// Degraded is an optional check that reports d's mode.
func Degraded(name string, d Degrader) Checker {
	return Checker{Name: name, Optional: true, Check: func(context.Context) error {
		if d.IsDegraded() {
			return errors.New("running degraded")
		}
		return nil
	}}
}

// Breakers is an optional check that fails when every breaker is open, i.e.
// no backend of the group will be tried on the next call.
func Breakers(name string, breakers ...*resilience.CircuitBreaker) Checker {
	return Checker{Name: name, Optional: true, Check: func(context.Context) error {
		var open []string
		for _, b := range breakers {
			if b == nil {
				continue
			}
			if b.State() != resilience.StateOpen {
				return nil
			}
			open = append(open, b.Name())
		}
		if len(open) == 0 {
			return nil
		}
		return fmt.Errorf("%w: %s", resilience.ErrCircuitOpen, strings.Join(open, ", "))
	}}
}
