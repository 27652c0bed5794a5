package detect

import (
	"context"
	"fmt"
	"log"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
)

// State is a step of the channel negotiation.
type State int

const (
	StateChecking State = iota
	StateFound
	StateOfferSwitch
	StateSwitchedRetry
	StateNotInstalled
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateFound:
		return "found"
	case StateOfferSwitch:
		return "offer-switch"
	case StateSwitchedRetry:
		return "switched-retry"
	case StateNotInstalled:
		return "not-installed"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ChannelSaver persists the selected channel.
type ChannelSaver interface {
	SaveChannel(ch core.Channel) error
}

// SwitchPrompter asks the user whether to switch to the other installed channel.
type SwitchPrompter interface {
	ConfirmSwitch(ctx context.Context, from, to core.Channel) (bool, error)
}

// TokenReader reads the access token from a state database.
type TokenReader interface {
	ReadToken(ctx context.Context, dbPath string) (string, error)
}

// Negotiator finds the state database of the configured channel, offering a
// single switch to the other channel when only that one is installed.
type Negotiator struct {
	Locate   func(core.Channel) (core.DBLocation, error)
	Tokens   TokenReader
	Prompter SwitchPrompter // nil declines every switch
	Settings ChannelSaver   // nil skips persistence
}

// Negotiation is the outcome of a successful run. Trace lists every state
// visited, terminal state included.
type Negotiation struct {
	Token    string
	Location core.DBLocation
	Switched bool
	Trace    []State
}

// Negotiate runs the state machine starting from the configured channel.
// At most one channel switch happens per call. After a switch the machine
// continues with the new channel directly rather than re-reading settings.
func (n *Negotiator) Negotiate(ctx context.Context, configured core.Channel) (Negotiation, error) {
	var (
		res     Negotiation
		current = configured
		loc     core.DBLocation
		alt     core.DBLocation
		state   = StateChecking
	)

	for {
		res.Trace = append(res.Trace, state)
		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch state {
		case StateChecking:
			var err error
			if loc, err = n.Locate(current); err != nil {
				return res, err
			}
			if loc.Exists {
				state = StateFound
				continue
			}
			if res.Switched {
				state = StateNotInstalled
				continue
			}
			if alt, err = n.Locate(current.Alternate()); err != nil {
				return res, err
			}
			if alt.Exists {
				state = StateOfferSwitch
			} else {
				state = StateNotInstalled
			}

		case StateOfferSwitch:
			accepted, err := n.confirm(ctx, current, alt.Channel)
			if err != nil {
				return res, fmt.Errorf("asking to switch to %s: %w", alt.Channel.DisplayName(), err)
			}
			if !accepted {
				state = StateCancelled
				continue
			}
			if n.Settings != nil {
				if err := n.Settings.SaveChannel(alt.Channel); err != nil {
					log.Printf("[detect] could not persist channel %s: %v", alt.Channel, err)
				}
			}
			log.Printf("[detect] switched from %s to %s", current.DisplayName(), alt.Channel.DisplayName())
			current = alt.Channel
			res.Switched = true
			state = StateSwitchedRetry

		case StateSwitchedRetry:
			state = StateChecking

		case StateFound:
			res.Location = loc
			token, err := n.Tokens.ReadToken(ctx, loc.Path)
			if err != nil {
				return res, err
			}
			res.Token = token
			return res, nil

		case StateNotInstalled:
			res.Location = loc
			return res, fmt.Errorf("%w (looked for %s)", core.ErrNotInstalled, loc.Path)

		case StateCancelled:
			res.Location = loc
			return res, core.ErrSwitchDeclined

		default:
			return res, fmt.Errorf("unexpected negotiation state %s", state)
		}
	}
}

func (n *Negotiator) confirm(ctx context.Context, from, to core.Channel) (bool, error) {
	if n.Prompter == nil {
		return false, nil
	}
	return n.Prompter.ConfirmSwitch(ctx, from, to)
}
