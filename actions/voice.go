package actions

import (
	"context"

	"github.com/hupe1980/actionmesh/catalog"
	"github.com/hupe1980/actionmesh/core"
)

// TransferCallParams are the arguments of transfer_call.
type TransferCallParams struct {
	Target string `json:"target" description:"Phone number or team to transfer to"`
	Reason string `json:"reason,omitempty"`
}

// EndCallParams are the arguments of end_call.
type EndCallParams struct {
	Reason string `json:"reason,omitempty"`
}

var voiceChannels = []core.Channel{core.ChannelVoiceInbound, core.ChannelVoiceOutbound}

func (h handlers) voiceActions() []catalog.Action {
	return []catalog.Action{
		catalog.Typed(catalog.Action{
			Name:                 "transfer_call",
			Description:          "Transfer the current call to a person or team",
			Category:             CategoryVoice,
			Risk:                 core.RiskMedium,
			RequiredIntegrations: []string{IntegrationVoice},
			Channels:             voiceChannels,
		}, h.transferCall),
		catalog.Typed(catalog.Action{
			Name:                 "end_call",
			Description:          "End the current call politely",
			Category:             CategoryVoice,
			Risk:                 core.RiskLow,
			RequiredIntegrations: []string{IntegrationVoice},
			Channels:             voiceChannels,
		}, h.endCall),
	}
}

func (h handlers) transferCall(ctx context.Context, ec *core.ExecutionContext, p TransferCallParams) (*core.ExecutionResult, error) {
	if h.Calls == nil {
		return nil, catalog.NewActionError("transfer_call", "call control not configured", catalog.CodeUnavailable)
	}
	if ec.CallID == "" {
		return core.Failed("no active call"), nil
	}
	if err := h.Calls.Transfer(ctx, ec.CallID, p.Target); err != nil {
		return nil, err
	}
	if ec.ContactID != "" {
		h.record(ctx, &core.Activity{
			TenantID:  ec.TenantID,
			ContactID: ec.ContactID,
			ProjectID: ec.ProjectID,
			Type:      "call",
			Subject:   "Call transferred to " + p.Target,
			Notes:     p.Reason,
			CreatedBy: ec.UserID,
		})
	}
	return core.Succeeded(map[string]any{"call_id": ec.CallID, "target": p.Target}, "Transferring the call"), nil
}

func (h handlers) endCall(ctx context.Context, ec *core.ExecutionContext, p EndCallParams) (*core.ExecutionResult, error) {
	if h.Calls == nil {
		return nil, catalog.NewActionError("end_call", "call control not configured", catalog.CodeUnavailable)
	}
	if ec.CallID == "" {
		return core.Failed("no active call"), nil
	}
	if err := h.Calls.Hangup(ctx, ec.CallID); err != nil {
		return nil, err
	}
	return core.Succeeded(map[string]any{"call_id": ec.CallID, "reason": p.Reason}, "Call ended"), nil
}
