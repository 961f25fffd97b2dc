package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
)

// Mock implementations

type pair struct {
	chatID int64
	userID int64
}

type mockStateRepo struct {
	users    map[int64]*domain.User
	warnings map[pair]int
	banned   map[pair]bool
	files    map[string]domain.FileEntry
	channels []int64
	configs  map[int64]*domain.StoredChatConfig
}

func newMockStateRepo() *mockStateRepo {
	return &mockStateRepo{
		users:    make(map[int64]*domain.User),
		warnings: make(map[pair]int),
		banned:   make(map[pair]bool),
		files:    make(map[string]domain.FileEntry),
		configs:  make(map[int64]*domain.StoredChatConfig),
	}
}

func (m *mockStateRepo) RegisterUser(ctx context.Context, user *domain.User, chatID int64) error {
	existing, ok := m.users[user.ID]
	if !ok {
		clone := *user
		existing = &clone
		m.users[user.ID] = existing
	}
	existing.ObserveChat(chatID)
	return nil
}

func (m *mockStateRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	var result []domain.User
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, nil
}

func (m *mockStateRepo) IncrementWarning(ctx context.Context, chatID, userID int64) (int, error) {
	key := pair{chatID, userID}
	m.warnings[key]++
	return m.warnings[key], nil
}

func (m *mockStateRepo) ResetWarnings(ctx context.Context, chatID, userID int64) error {
	m.warnings[pair{chatID, userID}] = 0
	return nil
}

func (m *mockStateRepo) WarningCount(ctx context.Context, chatID, userID int64) (int, error) {
	return m.warnings[pair{chatID, userID}], nil
}

func (m *mockStateRepo) RecordBan(ctx context.Context, chatID, userID int64) error {
	m.banned[pair{chatID, userID}] = true
	return nil
}

func (m *mockStateRepo) ClearBan(ctx context.Context, chatID, userID int64) error {
	delete(m.banned, pair{chatID, userID})
	return nil
}

func (m *mockStateRepo) IsBanned(ctx context.Context, chatID, userID int64) (bool, error) {
	return m.banned[pair{chatID, userID}], nil
}

func (m *mockStateRepo) AddFile(ctx context.Context, entry domain.FileEntry) error {
	m.files[entry.Key] = entry
	return nil
}

func (m *mockStateRepo) RemoveFile(ctx context.Context, key string) error {
	delete(m.files, key)
	return nil
}

func (m *mockStateRepo) GetFile(ctx context.Context, key string) (*domain.FileEntry, error) {
	if entry, ok := m.files[key]; ok {
		entry.Key = key
		return &entry, nil
	}
	return nil, nil
}

func (m *mockStateRepo) ListFiles(ctx context.Context) ([]domain.FileEntry, error) {
	var result []domain.FileEntry
	for key, entry := range m.files {
		entry.Key = key
		result = append(result, entry)
	}
	return result, nil
}

func (m *mockStateRepo) Channels(ctx context.Context) ([]int64, error) {
	return m.channels, nil
}

func (m *mockStateRepo) ObserveChannel(ctx context.Context, chatID int64) error {
	m.channels = append(m.channels, chatID)
	return nil
}

func (m *mockStateRepo) ChatConfig(ctx context.Context, chatID int64) (*domain.StoredChatConfig, error) {
	return m.configs[chatID], nil
}

func (m *mockStateRepo) SaveChatConfig(ctx context.Context, chatID int64, cfg *domain.StoredChatConfig) error {
	m.configs[chatID] = cfg
	return nil
}

func (m *mockStateRepo) Close() error { return nil }

type sentMessage struct {
	recipientID int64
	text        string
	html        bool
}

type mockGateway struct {
	deleted    []pair
	sent       []sentMessage
	forwarded  []int64
	bans       []pair
	unbans     []pair
	ops        []string
	handles    map[string]int64
	deleteErr  error
	sendErrFor map[int64]error
	banErr     error
	unbanErr   error
}

func newMockGateway() *mockGateway {
	return &mockGateway{handles: make(map[string]int64)}
}

func (m *mockGateway) DeleteMessage(ctx context.Context, chatID, msgID int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, pair{chatID, msgID})
	m.ops = append(m.ops, "delete")
	return nil
}

func (m *mockGateway) SendMessage(ctx context.Context, recipientID int64, text string, html bool) error {
	if err, ok := m.sendErrFor[recipientID]; ok {
		return err
	}
	m.sent = append(m.sent, sentMessage{recipientID, text, html})
	m.ops = append(m.ops, "send")
	return nil
}

func (m *mockGateway) ForwardMessage(ctx context.Context, recipientID, fromChatID, msgID int64) error {
	if err, ok := m.sendErrFor[recipientID]; ok {
		return err
	}
	m.forwarded = append(m.forwarded, recipientID)
	return nil
}

func (m *mockGateway) BanMember(ctx context.Context, chatID, userID int64) error {
	if m.banErr != nil {
		return m.banErr
	}
	m.bans = append(m.bans, pair{chatID, userID})
	m.ops = append(m.ops, "ban")
	return nil
}

func (m *mockGateway) UnbanMember(ctx context.Context, chatID, userID int64, onlyIfBanned bool) error {
	if m.unbanErr != nil {
		return m.unbanErr
	}
	m.unbans = append(m.unbans, pair{chatID, userID})
	m.ops = append(m.ops, "unban")
	return nil
}

func (m *mockGateway) ResolveHandle(ctx context.Context, handle string) (int64, error) {
	if id, ok := m.handles[handle]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("handle not found")
}

type mockAuditRepo struct {
	entries []domain.AuditEntry
}

func (m *mockAuditRepo) Record(ctx context.Context, entry *domain.AuditEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditRepo) RecentByChat(ctx context.Context, chatID int64, limit int) ([]domain.AuditEntry, error) {
	return m.entries, nil
}

func (m *mockAuditRepo) Close() error { return nil }

// Helpers

func testDefaults() domain.PolicyDefaults {
	return domain.PolicyDefaults{
		WarnLimit:   3,
		DeleteLinks: true,
		BanOnLimit:  true,
		BannedWords: []string{"badword1"},
	}
}

func newTestModeration(state *mockStateRepo, gw *mockGateway) *ModerationUsecase {
	policyUC := NewPolicyUsecase(state, testDefaults())
	classifier := domain.NewClassifier(domain.LinkRules{})
	return NewModerationUsecase(state, gw, &mockAuditRepo{}, policyUC, classifier)
}

func groupMessage(chatID, userID, msgID int64, text string) *domain.InboundMessage {
	return &domain.InboundMessage{
		MsgID:    msgID,
		ChatID:   chatID,
		ChatType: domain.ChatTypeSupergroup,
		From:     domain.User{ID: userID, FirstName: "Alice"},
		Text:     text,
	}
}

var admin = domain.Actor{ID: 99, Privileged: true}
var nonAdmin = domain.Actor{ID: 50, Privileged: false}

// Tests

func TestHandleMessage_ViolationWarnsAndDeletes(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	result, err := uc.HandleMessage(context.Background(), groupMessage(-100, 7, 1, "visit http://example.com now"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("Expected a violation result")
	}
	if !result.Deleted {
		t.Error("Expected message deleted")
	}
	if result.Count != 1 || result.Limit != 3 {
		t.Errorf("Expected count 1/3, got %d/%d", result.Count, result.Limit)
	}
	if result.Banned {
		t.Error("Expected no ban on first warning")
	}
	if len(gw.sent) != 1 || !strings.Contains(gw.sent[0].text, "1/3") {
		t.Errorf("Expected warning notice with count, got %v", gw.sent)
	}
}

func TestHandleMessage_BanExactlyOnceAtThreshold(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		result, err := uc.HandleMessage(ctx, groupMessage(-100, 7, int64(i), "spam www.spam.com"))
		if err != nil {
			t.Fatalf("Violation %d: unexpected error: %v", i, err)
		}
		if i == 3 && !result.Banned {
			t.Error("Expected ban at the third warning")
		}
		if i == 4 && result.Banned {
			t.Error("Expected no re-ban past the threshold")
		}
	}

	if len(gw.bans) != 1 {
		t.Errorf("Expected exactly one ban request, got %d", len(gw.bans))
	}
	if count := state.warnings[pair{-100, 7}]; count != 4 {
		t.Errorf("Expected count 4, got %d", count)
	}
	if !state.banned[pair{-100, 7}] {
		t.Error("Expected ban ledger entry")
	}
}

func TestHandleMessage_WarningNoticePrecedesBan(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	state.warnings[pair{-100, 7}] = 2

	result, err := uc.HandleMessage(context.Background(), groupMessage(-100, 7, 1, "www.spam.com"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Banned {
		t.Fatal("Expected ban at the threshold")
	}

	// The "Warning n/limit" notice goes out before the ban request, so
	// the warned user still sees which strike removed them
	sendIdx, banIdx := -1, -1
	for i, op := range gw.ops {
		switch op {
		case "send":
			if sendIdx == -1 {
				sendIdx = i
			}
		case "ban":
			banIdx = i
		}
	}
	if sendIdx == -1 || banIdx == -1 {
		t.Fatalf("Expected both notice and ban, got ops %v", gw.ops)
	}
	if sendIdx > banIdx {
		t.Errorf("Expected warning notice before ban, got ops %v", gw.ops)
	}
	if !strings.Contains(gw.sent[0].text, "3/3") {
		t.Errorf("Expected first notice to carry the count, got %q", gw.sent[0].text)
	}
}

func TestHandleMessage_PrivateChatExempt(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	msg := groupMessage(42, 7, 1, "visit http://example.com")
	msg.ChatType = domain.ChatTypePrivate

	result, err := uc.HandleMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != nil {
		t.Error("Expected private chat to be exempt from policy")
	}
	// Registration for broadcasts still happens
	if state.users[7] == nil {
		t.Error("Expected sender registered")
	}
}

func TestHandleMessage_CleanMessageUntouched(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	result, err := uc.HandleMessage(context.Background(), groupMessage(-100, 7, 1, "just chatting"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != nil {
		t.Error("Expected no action on clean message")
	}
	if len(gw.deleted) != 0 || len(gw.sent) != 0 {
		t.Error("Expected no gateway calls")
	}
}

func TestHandleMessage_CaptionConcatenated(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	msg := groupMessage(-100, 7, 1, "look at")
	msg.Caption = "bad" + "word1"

	result, err := uc.HandleMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("Expected caption content to count")
	}
}

func TestHandleMessage_DeleteFailureStillWarns(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	gw.deleteErr = errors.New("no rights")
	uc := newTestModeration(state, gw)

	result, err := uc.HandleMessage(context.Background(), groupMessage(-100, 7, 1, "t.me/spam"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Deleted {
		t.Error("Expected delete to have failed")
	}
	if result.Count != 1 {
		t.Errorf("Expected warning recorded despite failed delete, got %d", result.Count)
	}
}

func TestHandleMessage_BanFailureKeepsCount(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)
	ctx := context.Background()

	state.warnings[pair{-100, 7}] = 2
	gw.banErr = errors.New("bot lacks ban rights")

	result, err := uc.HandleMessage(ctx, groupMessage(-100, 7, 1, "bit.ly/x"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Banned {
		t.Error("Expected ban to have failed")
	}
	if result.BanFailure == nil {
		t.Error("Expected ban failure surfaced")
	}
	if count := state.warnings[pair{-100, 7}]; count != 3 {
		t.Errorf("Expected count kept at 3, got %d", count)
	}
	if state.banned[pair{-100, 7}] {
		t.Error("Expected no ledger entry after failed ban")
	}
}

func TestHandleMessage_DeleteLinksDisabled(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	off := false
	state.configs[-100] = &domain.StoredChatConfig{DeleteLinks: &off}

	result, err := uc.HandleMessage(context.Background(), groupMessage(-100, 7, 1, "http://example.com"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != nil {
		t.Error("Expected no action with delete_links off")
	}
}

func TestHandleMessage_ChatBannedWord(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	state.configs[-100] = &domain.StoredChatConfig{BannedWords: []string{"crypto"}}

	result, err := uc.HandleMessage(context.Background(), groupMessage(-100, 7, 1, "free CRYPTO here"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("Expected chat-specific word to trigger")
	}
}

func TestWarn_Manual(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	result, err := uc.Warn(context.Background(), admin, -100, TargetRef{ReplyUserID: 7, ReplyName: "Bob"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Count != 1 || result.TargetID != 7 {
		t.Errorf("Expected count 1 for user 7, got %+v", result)
	}
}

func TestWarn_ReachesThresholdBans(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	state.warnings[pair{-100, 7}] = 2

	result, err := uc.Warn(context.Background(), admin, -100, TargetRef{ReplyUserID: 7})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Banned {
		t.Error("Expected manual warn to trigger threshold ban")
	}
	if len(gw.bans) != 1 {
		t.Errorf("Expected one ban request, got %d", len(gw.bans))
	}
}

func TestWarn_NotAuthorized(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	_, err := uc.Warn(context.Background(), nonAdmin, -100, TargetRef{ReplyUserID: 7})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Expected ErrNotAuthorized, got %v", err)
	}
	if count := state.warnings[pair{-100, 7}]; count != 0 {
		t.Errorf("Expected no mutation, got count %d", count)
	}
}

func TestResetWarnings_ClearsCount(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	state.warnings[pair{-100, 7}] = 2
	state.banned[pair{-100, 7}] = true

	name, err := uc.ResetWarnings(context.Background(), admin, -100, TargetRef{ReplyUserID: 7, ReplyName: "Bob"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if name != "Bob" {
		t.Errorf("Expected target name Bob, got %q", name)
	}
	if count := state.warnings[pair{-100, 7}]; count != 0 {
		t.Errorf("Expected count reset to 0, got %d", count)
	}
	// Only the counter resets; a standing ban is lifted with /unban
	if !state.banned[pair{-100, 7}] {
		t.Error("Expected ban ledger untouched")
	}
}

func TestResetWarnings_NotAuthorized(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	state.warnings[pair{-100, 7}] = 2

	_, err := uc.ResetWarnings(context.Background(), nonAdmin, -100, TargetRef{ReplyUserID: 7})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Expected ErrNotAuthorized, got %v", err)
	}
	if count := state.warnings[pair{-100, 7}]; count != 2 {
		t.Errorf("Expected count untouched, got %d", count)
	}
}

func TestBan_Manual(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	if err := uc.Ban(context.Background(), admin, -100, TargetRef{Arg: "7"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !state.banned[pair{-100, 7}] {
		t.Error("Expected ledger entry")
	}
	if len(gw.bans) != 1 {
		t.Errorf("Expected one gateway ban, got %d", len(gw.bans))
	}
}

func TestUnban_Idempotent(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)
	ctx := context.Background()

	state.banned[pair{-100, 7}] = true

	if err := uc.Unban(ctx, admin, -100, TargetRef{Arg: "7"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if state.banned[pair{-100, 7}] {
		t.Error("Expected ledger cleared")
	}

	// Repeating the unban on a non-banned pair is a no-op
	if err := uc.Unban(ctx, admin, -100, TargetRef{Arg: "7"}); err != nil {
		t.Fatalf("Expected repeated unban to succeed, got %v", err)
	}
}

func TestKick_LeavesStateAlone(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	uc := newTestModeration(state, gw)

	state.warnings[pair{-100, 7}] = 2

	if err := uc.Kick(context.Background(), admin, -100, TargetRef{ReplyUserID: 7}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(gw.bans) != 1 || len(gw.unbans) != 1 {
		t.Errorf("Expected ban+unban, got %d/%d", len(gw.bans), len(gw.unbans))
	}
	if count := state.warnings[pair{-100, 7}]; count != 2 {
		t.Errorf("Expected warning count untouched, got %d", count)
	}
	if state.banned[pair{-100, 7}] {
		t.Error("Expected no ledger entry from kick")
	}
}

func TestResolveTarget(t *testing.T) {
	state := newMockStateRepo()
	gw := newMockGateway()
	gw.handles["@bob"] = 1234
	uc := newTestModeration(state, gw)
	ctx := context.Background()

	// Reply target wins over arguments
	id, _, err := uc.resolveTarget(ctx, TargetRef{ReplyUserID: 7, Arg: "999"})
	if err != nil || id != 7 {
		t.Errorf("Expected reply target 7, got %d (%v)", id, err)
	}

	id, _, err = uc.resolveTarget(ctx, TargetRef{Arg: "999"})
	if err != nil || id != 999 {
		t.Errorf("Expected numeric target 999, got %d (%v)", id, err)
	}

	id, _, err = uc.resolveTarget(ctx, TargetRef{Arg: "@bob"})
	if err != nil || id != 1234 {
		t.Errorf("Expected resolved handle 1234, got %d (%v)", id, err)
	}

	if _, _, err = uc.resolveTarget(ctx, TargetRef{Arg: "@nobody"}); err == nil {
		t.Error("Expected error for unresolvable handle")
	}

	if _, _, err = uc.resolveTarget(ctx, TargetRef{}); !errors.Is(err, ErrNoTarget) {
		t.Errorf("Expected ErrNoTarget, got %v", err)
	}

	if _, _, err = uc.resolveTarget(ctx, TargetRef{Arg: "not-a-target"}); !errors.Is(err, ErrNoTarget) {
		t.Errorf("Expected ErrNoTarget for garbage, got %v", err)
	}
}
