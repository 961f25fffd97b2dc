package usecase

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/repo"
)

// ModerationUsecase drives the per-(chat, user) warning/ban state
// machine: CLEAN -> WARNED(n) -> BANNED. Warning increments are durable
// before any notification goes out; gateway failures never roll back an
// increment that has already been committed.
type ModerationUsecase struct {
	state      repo.StateRepo
	gateway    repo.Gateway
	audit      repo.AuditRepo
	policyUC   *PolicyUsecase
	classifier *domain.Classifier
}

// NewModerationUsecase creates a new moderation usecase
func NewModerationUsecase(
	state repo.StateRepo,
	gateway repo.Gateway,
	audit repo.AuditRepo,
	policyUC *PolicyUsecase,
	classifier *domain.Classifier,
) *ModerationUsecase {
	return &ModerationUsecase{
		state:      state,
		gateway:    gateway,
		audit:      audit,
		policyUC:   policyUC,
		classifier: classifier,
	}
}

// ViolationResult describes what happened to a violating message
type ViolationResult struct {
	Deleted    bool
	Count      int
	Limit      int
	Banned     bool
	BanFailure error
}

// WarnResult is the outcome of a manual or automatic warning
type WarnResult struct {
	TargetID   int64
	TargetName string
	Count      int
	Limit      int
	Banned     bool
	BanFailure error
}

// TargetRef identifies the user a manual action is aimed at. Reply
// target wins, then a numeric argument, then an @handle resolved
// through the gateway.
type TargetRef struct {
	ReplyUserID int64
	ReplyName   string
	Arg         string
}

// HandleMessage processes one inbound message: registers the sender for
// broadcasts, and in group chats evaluates it against the effective
// policy. Returns nil when the message was left alone.
func (uc *ModerationUsecase) HandleMessage(ctx context.Context, msg *domain.InboundMessage) (*ViolationResult, error) {
	// Every observed sender joins the broadcast roster, in any chat type
	sender := msg.From
	if err := uc.state.RegisterUser(ctx, &sender, msg.ChatID); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	if !msg.ChatType.IsGroup() {
		return nil, nil
	}

	policy, err := uc.policyUC.Effective(ctx, msg.ChatID)
	if err != nil {
		return nil, err
	}

	cls := uc.classifier.Classify(msg.ModerationText(), policy.BannedWords)
	if !policy.DeleteLinks || !cls.Violation() {
		return nil, nil
	}

	result := &ViolationResult{Limit: policy.WarnLimit}

	// Best-effort delete; a failed delete still earns the warning
	if err := uc.gateway.DeleteMessage(ctx, msg.ChatID, msg.MsgID); err != nil {
		log.Printf("[Moderation] Failed to delete message %d in %d: %v", msg.MsgID, msg.ChatID, err)
	} else {
		result.Deleted = true
		uc.record(ctx, msg.ChatID, msg.From.ID, 0, domain.AuditDelete, cls.Describe())
	}

	// Warning notice first, then the threshold ban
	warn, err := uc.recordWarning(ctx, msg.ChatID, msg.From.ID, msg.From.DisplayName(), 0, policy)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("%s — your message contained a link or forbidden word and was removed. Warning %d/%d.",
		mention(msg.From.ID, msg.From.DisplayName()), warn.Count, policy.WarnLimit)
	if err := uc.gateway.SendMessage(ctx, msg.ChatID, text, true); err != nil {
		log.Printf("[Moderation] Failed to send warning notice: %v", err)
	}

	if err := uc.escalate(ctx, msg.ChatID, msg.From.ID, 0, policy, warn); err != nil {
		return nil, err
	}
	result.Count = warn.Count
	result.Banned = warn.Banned
	result.BanFailure = warn.BanFailure

	if warn.Banned {
		notice := fmt.Sprintf("%s has been banned after %d warnings.",
			mention(msg.From.ID, msg.From.DisplayName()), warn.Count)
		if err := uc.gateway.SendMessage(ctx, msg.ChatID, notice, true); err != nil {
			log.Printf("[Moderation] Failed to send ban notice: %v", err)
		}
	} else if warn.BanFailure != nil {
		notice := fmt.Sprintf("Failed to ban %s: %v", mention(msg.From.ID, msg.From.DisplayName()), warn.BanFailure)
		if err := uc.gateway.SendMessage(ctx, msg.ChatID, notice, true); err != nil {
			log.Printf("[Moderation] Failed to send ban failure notice: %v", err)
		}
	}

	return result, nil
}

// recordWarning is the durable half of the warning transition: the
// count is incremented and audited before any escalation or notice
func (uc *ModerationUsecase) recordWarning(ctx context.Context, chatID, userID int64, name string, actorID int64, policy domain.ChatPolicy) (*WarnResult, error) {
	count, err := uc.state.IncrementWarning(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("increment warning: %w", err)
	}
	uc.record(ctx, chatID, userID, actorID, domain.AuditWarn, fmt.Sprintf("count=%d limit=%d", count, policy.WarnLimit))

	return &WarnResult{
		TargetID:   userID,
		TargetName: name,
		Count:      count,
		Limit:      policy.WarnLimit,
	}, nil
}

// escalate requests the threshold ban, only when the count first
// reaches the limit. Counts already past the limit (prior session,
// lowered limit) never re-trigger the ban.
func (uc *ModerationUsecase) escalate(ctx context.Context, chatID, userID, actorID int64, policy domain.ChatPolicy, result *WarnResult) error {
	if result.Count != policy.WarnLimit || !policy.BanOnLimit {
		return nil
	}

	if err := uc.gateway.BanMember(ctx, chatID, userID); err != nil {
		// The increment stays committed; an admin re-issues the ban
		result.BanFailure = err
		log.Printf("[Moderation] Ban after %d warnings failed for %d in %d: %v", result.Count, userID, chatID, err)
		return nil
	}

	result.Banned = true
	if err := uc.state.RecordBan(ctx, chatID, userID); err != nil {
		return fmt.Errorf("record ban: %w", err)
	}
	uc.record(ctx, chatID, userID, actorID, domain.AuditBan, fmt.Sprintf("threshold reached (%d warnings)", result.Count))
	return nil
}

// applyWarning is the full transition in one step, used where no
// notice goes out between the increment and the escalation
func (uc *ModerationUsecase) applyWarning(ctx context.Context, chatID, userID int64, name string, actorID int64, policy domain.ChatPolicy) (*WarnResult, error) {
	result, err := uc.recordWarning(ctx, chatID, userID, name, actorID, policy)
	if err != nil {
		return nil, err
	}
	if err := uc.escalate(ctx, chatID, userID, actorID, policy, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Warn applies a manual warning, reusing the automatic transition
func (uc *ModerationUsecase) Warn(ctx context.Context, actor domain.Actor, chatID int64, target TargetRef) (*WarnResult, error) {
	if !actor.Privileged {
		return nil, ErrNotAuthorized
	}
	userID, name, err := uc.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	policy, err := uc.policyUC.Effective(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return uc.applyWarning(ctx, chatID, userID, name, actor.ID, policy)
}

// ResetWarnings clears the target's warning count, giving them a clean
// slate without touching the ban ledger
func (uc *ModerationUsecase) ResetWarnings(ctx context.Context, actor domain.Actor, chatID int64, target TargetRef) (string, error) {
	if !actor.Privileged {
		return "", ErrNotAuthorized
	}
	userID, name, err := uc.resolveTarget(ctx, target)
	if err != nil {
		return "", err
	}
	if err := uc.state.ResetWarnings(ctx, chatID, userID); err != nil {
		return "", fmt.Errorf("reset warnings: %w", err)
	}
	uc.record(ctx, chatID, userID, actor.ID, domain.AuditResetWarn, "manual")
	return name, nil
}

// Ban bans the target and records it in the ledger
func (uc *ModerationUsecase) Ban(ctx context.Context, actor domain.Actor, chatID int64, target TargetRef) error {
	if !actor.Privileged {
		return ErrNotAuthorized
	}
	userID, _, err := uc.resolveTarget(ctx, target)
	if err != nil {
		return err
	}
	if err := uc.gateway.BanMember(ctx, chatID, userID); err != nil {
		return fmt.Errorf("ban member: %w", err)
	}
	if err := uc.state.RecordBan(ctx, chatID, userID); err != nil {
		return fmt.Errorf("record ban: %w", err)
	}
	uc.record(ctx, chatID, userID, actor.ID, domain.AuditBan, "manual")
	return nil
}

// Unban lifts a ban and clears the ledger entry. Unbanning a pair that
// is not banned is a no-op, not an error.
func (uc *ModerationUsecase) Unban(ctx context.Context, actor domain.Actor, chatID int64, target TargetRef) error {
	if !actor.Privileged {
		return ErrNotAuthorized
	}
	userID, _, err := uc.resolveTarget(ctx, target)
	if err != nil {
		return err
	}
	if err := uc.gateway.UnbanMember(ctx, chatID, userID, true); err != nil {
		return fmt.Errorf("unban member: %w", err)
	}
	if err := uc.state.ClearBan(ctx, chatID, userID); err != nil {
		return fmt.Errorf("clear ban: %w", err)
	}
	uc.record(ctx, chatID, userID, actor.ID, domain.AuditUnban, "manual")
	return nil
}

// Kick removes the target but lets them rejoin: ban immediately followed
// by unban. Neither the warning count nor the ban ledger changes.
func (uc *ModerationUsecase) Kick(ctx context.Context, actor domain.Actor, chatID int64, target TargetRef) error {
	if !actor.Privileged {
		return ErrNotAuthorized
	}
	userID, _, err := uc.resolveTarget(ctx, target)
	if err != nil {
		return err
	}
	if err := uc.gateway.BanMember(ctx, chatID, userID); err != nil {
		return fmt.Errorf("kick: %w", err)
	}
	if err := uc.gateway.UnbanMember(ctx, chatID, userID, true); err != nil {
		return fmt.Errorf("kick unban: %w", err)
	}
	uc.record(ctx, chatID, userID, actor.ID, domain.AuditKick, "manual")
	return nil
}

// resolveTarget resolves a TargetRef to a user ID. Resolution failures
// are reported errors; nothing has been mutated when they happen.
func (uc *ModerationUsecase) resolveTarget(ctx context.Context, target TargetRef) (int64, string, error) {
	if target.ReplyUserID != 0 {
		return target.ReplyUserID, target.ReplyName, nil
	}

	arg := strings.TrimSpace(target.Arg)
	if arg == "" {
		return 0, "", ErrNoTarget
	}

	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
		return id, arg, nil
	}

	if strings.HasPrefix(arg, "@") {
		id, err := uc.gateway.ResolveHandle(ctx, arg)
		if err != nil {
			return 0, "", fmt.Errorf("resolve %s: %w", arg, err)
		}
		return id, strings.TrimPrefix(arg, "@"), nil
	}

	return 0, "", ErrNoTarget
}

func (uc *ModerationUsecase) record(ctx context.Context, chatID, userID, actorID int64, action domain.AuditAction, detail string) {
	if uc.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		ChatID:    chatID,
		UserID:    userID,
		ActorID:   actorID,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := uc.audit.Record(ctx, entry); err != nil {
		log.Printf("[Moderation] Failed to record audit entry: %v", err)
	}
}

// mention builds an HTML mention link for a user
func mention(userID int64, name string) string {
	if name == "" {
		name = strconv.FormatInt(userID, 10)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, html.EscapeString(name))
}
