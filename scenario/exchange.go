// Package scenario runs evaluation tasks against an agent through a strict
// two-phase protocol: every scenario emits exactly one prompt, receives the
// agent's final response, and emits exactly one reward.
package scenario

import (
	"context"
	"errors"
	"fmt"
)

// Agent executes a task described by a prompt and returns its final
// response.
type Agent interface {
	Respond(ctx context.Context, prompt string) (string, error)
}

// State tracks how far a scenario has progressed through the protocol.
type State int

// Protocol states, in order.
const (
	StateSetup State = iota
	StatePrompted
	StateEvaluated
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StatePrompted:
		return "prompted"
	case StateEvaluated:
		return "evaluated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrProtocol marks violations of the prompt/reward sequence. These are
// scenario bugs, not evaluation outcomes, and fail the run outright.
var ErrProtocol = errors.New("scenario protocol violation")

func protocolError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}

// Exchange mediates the protocol between a running scenario and the agent.
type Exchange struct {
	agent  Agent
	state  State
	reward float64
}

// State reports the exchange's current protocol state.
func (x *Exchange) State() State { return x.state }

// Prompt sends the task prompt to the agent and returns its final response.
// A scenario may prompt exactly once.
func (x *Exchange) Prompt(ctx context.Context, prompt string) (string, error) {
	if x.state != StateSetup {
		return "", protocolError("second prompt in state %s", x.state)
	}
	x.state = StatePrompted

	response, err := x.agent.Respond(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("agent response: %w", err)
	}
	return response, nil
}

// Reward records the scenario's score, clamped to [0,1]. A scenario may
// reward exactly once, and only after its prompt.
func (x *Exchange) Reward(reward float64) error {
	switch x.state {
	case StateSetup:
		return protocolError("reward before prompt")
	case StateEvaluated:
		return protocolError("second reward")
	}
	if reward < 0 {
		reward = 0
	} else if reward > 1 {
		reward = 1
	}
	x.reward = reward
	x.state = StateEvaluated
	return nil
}
