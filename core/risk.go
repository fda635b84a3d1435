package core

import (
	"fmt"
	"strings"
)

// Channel identifies the conversation surface a turn arrives on.
type Channel string

const (
	ChannelChat          Channel = "chat"
	ChannelVoiceInbound  Channel = "voice_inbound"
	ChannelVoiceOutbound Channel = "voice_outbound"
	ChannelSMS           Channel = "sms"
	ChannelEmail         Channel = "email"
)

// IsVoice reports whether the channel is a phone call.
func (c Channel) IsVoice() bool {
	return c == ChannelVoiceInbound || c == ChannelVoiceOutbound
}

// RiskLevel is a coarse, totally ordered classification gating unconfirmed
// execution: RiskLow < RiskMedium < RiskHigh.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

// String returns the lower-case name of the level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return fmt.Sprintf("risk(%d)", int(r))
	}
}

// AtMost reports whether r is lower than or equal to max.
func (r RiskLevel) AtMost(max RiskLevel) bool { return r <= max }

// MarshalText implements encoding.TextMarshaler.
func (r RiskLevel) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RiskLevel) UnmarshalText(b []byte) error {
	lvl, err := ParseRiskLevel(string(b))
	if err != nil {
		return err
	}
	*r = lvl
	return nil
}

// ParseRiskLevel parses "low", "medium" or "high" (case-insensitive).
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	default:
		return RiskLow, fmt.Errorf("unknown risk level %q", s)
	}
}

// Policy is the execution gate attached to an action. It is a closed set of
// variants checked uniformly by the orchestrator.
type Policy int

const (
	// PolicyNone executes the action body directly.
	PolicyNone Policy = iota
	// PolicyRequiresConfirmation blocks execution until the turn carries an
	// explicit confirmation for this action.
	PolicyRequiresConfirmation
	// PolicyRequiresApproval lets the action run, but it may only produce a
	// Draft; delivery happens after a human approves it elsewhere.
	PolicyRequiresApproval
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyNone:
		return "none"
	case PolicyRequiresConfirmation:
		return "requires_confirmation"
	case PolicyRequiresApproval:
		return "requires_approval"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}
