package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/repo"
)

// BroadcastUsecase fans a payload out to every registered user and
// configured channel. Delivery is best-effort to everyone: a failed
// recipient is counted and skipped, never aborting the rest.
type BroadcastUsecase struct {
	state   repo.StateRepo
	gateway repo.Gateway
	audit   repo.AuditRepo
}

// NewBroadcastUsecase creates a new broadcast usecase
func NewBroadcastUsecase(state repo.StateRepo, gateway repo.Gateway, audit repo.AuditRepo) *BroadcastUsecase {
	return &BroadcastUsecase{
		state:   state,
		gateway: gateway,
		audit:   audit,
	}
}

// Payload is either literal text or a reference to a message to forward
// verbatim. Exactly one of the two is set.
type Payload struct {
	Text    string
	Forward *ForwardRef
}

// ForwardRef points at an existing message
type ForwardRef struct {
	FromChatID int64
	MsgID      int64
}

// Report counts delivery outcomes for one broadcast
type Report struct {
	Sent   int
	Failed int
}

// Broadcast delivers the payload to the full roster. Privileged callers
// only. There is no retry within one invocation.
func (uc *BroadcastUsecase) Broadcast(ctx context.Context, actor domain.Actor, payload Payload) (Report, error) {
	if !actor.Privileged {
		return Report{}, ErrNotAuthorized
	}

	recipients, err := uc.recipients(ctx)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, id := range recipients {
		var err error
		if payload.Forward != nil {
			err = uc.gateway.ForwardMessage(ctx, id, payload.Forward.FromChatID, payload.Forward.MsgID)
		} else {
			err = uc.gateway.SendMessage(ctx, id, payload.Text, false)
		}
		if err != nil {
			report.Failed++
			log.Printf("[Broadcast] Delivery to %d failed: %v", id, err)
			continue
		}
		report.Sent++
	}

	if uc.audit != nil {
		entry := &domain.AuditEntry{
			ActorID:   actor.ID,
			Action:    domain.AuditBroadcast,
			Detail:    fmt.Sprintf("sent=%d failed=%d", report.Sent, report.Failed),
			CreatedAt: time.Now(),
		}
		if err := uc.audit.Record(ctx, entry); err != nil {
			log.Printf("[Broadcast] Failed to record audit entry: %v", err)
		}
	}

	return report, nil
}

// recipients is the deduplicated union of registered users and
// configured channels
func (uc *BroadcastUsecase) recipients(ctx context.Context) ([]int64, error) {
	users, err := uc.state.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	channels, err := uc.state.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	seen := make(map[int64]struct{}, len(users)+len(channels))
	result := make([]int64, 0, len(users)+len(channels))
	for _, u := range users {
		if _, ok := seen[u.ID]; !ok {
			seen[u.ID] = struct{}{}
			result = append(result, u.ID)
		}
	}
	for _, id := range channels {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			result = append(result, id)
		}
	}
	return result, nil
}
