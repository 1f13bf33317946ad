package types

import (
	"errors"
	"fmt"
)

var ErrIllegalTransition = errors.New("illegal agent state transition")

// AgentState is the sub-status of one agent (creator or content) on a job.
type AgentState string

const (
	AgentNotActive AgentState = "Not Active"
	AgentActive    AgentState = "Active"
	AgentCompleted AgentState = "Completed"
	AgentFailed    AgentState = "Failed"
)

func (s AgentState) Terminal() bool {
	return s == AgentCompleted || s == AgentFailed
}

// Next validates a transition. Re-entering the current state is a no-op;
// terminal states never change.
func (s AgentState) Next(to AgentState) (AgentState, error) {
	if s == to {
		return s, nil
	}
	switch s {
	case AgentNotActive:
		if to == AgentActive {
			return to, nil
		}
	case AgentActive:
		if to == AgentCompleted || to == AgentFailed {
			return to, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s, to)
}

// Top-level job status strings.
const (
	StatusQueued         = "Queued"
	StatusContentActive  = "Content Scrapper Active"
	StatusProfileActive  = "Profile Scrapper Active"
	StatusCompleted      = "Completed"
	StatusContentFailed  = "Content Scrapper Failed"
	StatusProfileFailed  = "Profile Scrapper Failed"
	StatusScrapperFailed = "Scrapper Failed"
)

// Phase is the pipeline stage currently running for a job.
type Phase int

const (
	PhaseQueued Phase = iota
	PhaseContent
	PhaseProfile
	PhaseDone
)

// DeriveStatus computes the top-level status from the two agent sub-states.
// Failures win over progress; completion requires every armed agent to finish.
func DeriveStatus(agents Agents, phase Phase, creator, content AgentState) string {
	creatorFailed := agents.Creator() && creator == AgentFailed
	contentFailed := agents.Content() && content == AgentFailed
	switch {
	case creatorFailed && contentFailed:
		return StatusScrapperFailed
	case creatorFailed:
		return StatusProfileFailed
	case contentFailed:
		return StatusContentFailed
	}

	done := true
	if agents.Creator() && creator != AgentCompleted {
		done = false
	}
	if agents.Content() && content != AgentCompleted {
		done = false
	}
	if done {
		return StatusCompleted
	}

	if phase == PhaseQueued {
		return StatusQueued
	}
	creatorActive := agents.Creator() && creator == AgentActive
	contentActive := agents.Content() && content == AgentActive
	switch {
	case creatorActive && !contentActive:
		return StatusProfileActive
	case contentActive && !creatorActive:
		return StatusContentActive
	case phase == PhaseProfile:
		return StatusProfileActive
	default:
		return StatusContentActive
	}
}
