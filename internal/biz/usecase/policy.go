package usecase

import (
	"context"
	"fmt"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/repo"
)

// PolicyUsecase resolves and updates per-chat moderation policy
type PolicyUsecase struct {
	state    repo.StateRepo
	defaults domain.PolicyDefaults
}

// NewPolicyUsecase creates a new policy usecase
func NewPolicyUsecase(state repo.StateRepo, defaults domain.PolicyDefaults) *PolicyUsecase {
	return &PolicyUsecase{
		state:    state,
		defaults: defaults,
	}
}

// Defaults returns the system-wide defaults
func (uc *PolicyUsecase) Defaults() domain.PolicyDefaults {
	return uc.defaults
}

// Effective returns the chat's stored configuration merged with the
// system defaults. A chat that was never configured yields the defaults.
func (uc *PolicyUsecase) Effective(ctx context.Context, chatID int64) (domain.ChatPolicy, error) {
	stored, err := uc.state.ChatConfig(ctx, chatID)
	if err != nil {
		return domain.ChatPolicy{}, fmt.Errorf("get chat config: %w", err)
	}
	return uc.defaults.Effective(stored), nil
}

// Update applies a partial configuration change and persists it,
// returning the new effective policy. Privileged callers only.
func (uc *PolicyUsecase) Update(ctx context.Context, actor domain.Actor, chatID int64, upd domain.PolicyUpdate) (domain.ChatPolicy, error) {
	if !actor.Privileged {
		return domain.ChatPolicy{}, ErrNotAuthorized
	}

	stored, err := uc.state.ChatConfig(ctx, chatID)
	if err != nil {
		return domain.ChatPolicy{}, fmt.Errorf("get chat config: %w", err)
	}
	if stored == nil {
		stored = &domain.StoredChatConfig{}
	}

	stored.Apply(upd)

	if err := uc.state.SaveChatConfig(ctx, chatID, stored); err != nil {
		return domain.ChatPolicy{}, fmt.Errorf("save chat config: %w", err)
	}
	return uc.defaults.Effective(stored), nil
}
