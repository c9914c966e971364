// File: internal/orchestrator/hitl.go
// Description: Human-in-the-loop sub-state. Requesting sets pending and
// stores the request; resolving appends to the append-only history and
// clears both, whatever option was chosen. The orchestrator simply stops
// advancing while pending; there is no timeout at this layer.

package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"domainlens/api/schemas"
)

// RequestHITL escalates a question to the human channel. Only one request
// may be pending at a time.
func (o *Orchestrator) RequestHITL(req schemas.HITLRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.HITL.Pending {
		return fmt.Errorf("a HITL request is already pending (id %s)", o.state.HITL.Request.ID)
	}

	stored := req
	o.state.HITL.Pending = true
	o.state.HITL.Request = &stored
	o.state.Progress.Blocked++
	o.retagStagesLocked(schemas.StageRunning, schemas.StageWaiting)
	o.touchLocked()
	o.emitLocked(schemas.EventHITLRequested, req.Question, stored)

	o.logger.Info("HITL escalation raised",
		zap.String("request_id", req.ID),
		zap.String("file", req.File),
	)
	return nil
}

// ResolveHITL records the human's answer: appends exactly one history entry,
// clears pending and clears the stored request. The reserved skip option is
// resolved the same way.
func (o *Orchestrator) ResolveHITL(resp schemas.HITLResponse) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.HITL.Pending || o.state.HITL.Request == nil {
		return fmt.Errorf("no HITL request is pending")
	}

	req := *o.state.HITL.Request
	o.state.HITL.History = append(o.state.HITL.History, schemas.HITLRecord{
		Timestamp: o.clock(),
		Request:   req,
		Response:  resp,
	})
	o.state.HITL.Pending = false
	o.state.HITL.Request = nil
	if o.state.Progress.Blocked > 0 {
		o.state.Progress.Blocked--
	}
	o.retagStagesLocked(schemas.StageWaiting, schemas.StageRunning)
	o.touchLocked()
	o.emitLocked(schemas.EventHITLResolved, resp.OptionID, nil)

	o.logger.Info("HITL escalation resolved",
		zap.String("request_id", req.ID),
		zap.String("option", resp.OptionID),
	)
	return nil
}

// AwaitHITL raises a request and blocks on the external responder until a
// response arrives or ctx is cancelled. Cancelling is the host's only way to
// give up waiting; the request stays pending in that case.
func (o *Orchestrator) AwaitHITL(ctx context.Context, req schemas.HITLRequest) (schemas.HITLResponse, error) {
	if o.responder == nil {
		return schemas.HITLResponse{}, fmt.Errorf("no HITL responder configured")
	}
	if err := o.RequestHITL(req); err != nil {
		return schemas.HITLResponse{}, err
	}

	resp, err := o.responder.Respond(ctx, req)
	if err != nil {
		return schemas.HITLResponse{}, fmt.Errorf("HITL exchange failed: %w", err)
	}
	if err := o.ResolveHITL(resp); err != nil {
		return schemas.HITLResponse{}, err
	}
	return resp, nil
}
