package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/usecase"
)

// CommandService maps the bot command surface onto the usecases. It is
// transport-agnostic: the server parses updates into CommandRequests and
// delivers the returned Reply.
type CommandService struct {
	modUC       *usecase.ModerationUsecase
	broadcastUC *usecase.BroadcastUsecase
	fileUC      *usecase.FileUsecase
	policyUC    *usecase.PolicyUsecase

	admins map[int64]struct{}
}

// NewCommandService creates a new command service
func NewCommandService(
	modUC *usecase.ModerationUsecase,
	broadcastUC *usecase.BroadcastUsecase,
	fileUC *usecase.FileUsecase,
	policyUC *usecase.PolicyUsecase,
	adminIDs []int64,
) *CommandService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &CommandService{
		modUC:       modUC,
		broadcastUC: broadcastUC,
		fileUC:      fileUC,
		policyUC:    policyUC,
		admins:      admins,
	}
}

// CommandRequest is one parsed bot command
type CommandRequest struct {
	ChatID   int64
	ChatType domain.ChatType
	MsgID    int64
	Sender   domain.User

	Command string // lowercased, without the leading slash
	Args    string // remainder of the line, untrimmed of inner spaces

	// Reply context, zero values when the command was not a reply
	ReplyUserID int64
	ReplyName   string
	ReplyMsgID  int64
	ReplyFileID string // document file ID of the replied-to message
}

// Reply is what the bot answers with. Document, when set, is a platform
// file ID sent alongside (or instead of) the text.
type Reply struct {
	Text     string
	HTML     bool
	Document string
}

func (s *CommandService) actor(senderID int64) domain.Actor {
	_, privileged := s.admins[senderID]
	return domain.Actor{ID: senderID, Privileged: privileged}
}

// Handle dispatches one command. A nil reply means stay silent.
func (s *CommandService) Handle(ctx context.Context, req *CommandRequest) *Reply {
	actor := s.actor(req.Sender.ID)

	switch req.Command {
	case "start":
		return &Reply{Text: "Hello! I keep this group clean: links and forbidden words are removed and repeat offenders are banned. Use /id to see identifiers, /files for shared files."}

	case "id":
		return &Reply{Text: fmt.Sprintf("Chat ID: %d\nYour ID: %d", req.ChatID, req.Sender.ID)}

	case "files":
		return s.handleFiles(ctx)

	case "getfile":
		return s.handleGetFile(ctx, req)

	case "addfile":
		return s.handleAddFile(ctx, actor, req)

	case "rmfile":
		return s.handleRemoveFile(ctx, actor, req)

	case "broadcast":
		return s.handleBroadcast(ctx, actor, req)

	case "warn":
		return s.handleWarn(ctx, actor, req)

	case "resetwarn":
		return s.handleResetWarn(ctx, actor, req)

	case "ban":
		return s.handleModAction(ctx, req, "banned", func(t usecase.TargetRef) error {
			return s.modUC.Ban(ctx, actor, req.ChatID, t)
		})

	case "unban":
		return s.handleModAction(ctx, req, "unbanned", func(t usecase.TargetRef) error {
			return s.modUC.Unban(ctx, actor, req.ChatID, t)
		})

	case "kick":
		return s.handleModAction(ctx, req, "kicked", func(t usecase.TargetRef) error {
			return s.modUC.Kick(ctx, actor, req.ChatID, t)
		})

	case "setconfig":
		return s.handleSetConfig(ctx, actor, req)
	}

	return nil
}

func (s *CommandService) handleFiles(ctx context.Context) *Reply {
	entries, err := s.fileUC.List(ctx)
	if err != nil {
		return errorReply(err)
	}
	if len(entries) == 0 {
		return &Reply{Text: "No files available."}
	}

	var b strings.Builder
	b.WriteString("Available files:\n")
	for _, entry := range entries {
		if entry.Desc != "" {
			fmt.Fprintf(&b, "• %s — %s\n", entry.Key, entry.Desc)
		} else {
			fmt.Fprintf(&b, "• %s\n", entry.Key)
		}
	}
	b.WriteString("\nUse /getfile <name> to fetch one.")
	return &Reply{Text: b.String()}
}

func (s *CommandService) handleGetFile(ctx context.Context, req *CommandRequest) *Reply {
	key := firstToken(req.Args)
	if key == "" {
		return &Reply{Text: "Usage: /getfile <name>"}
	}
	entry, err := s.fileUC.Get(ctx, key)
	if err != nil {
		return errorReply(err)
	}
	return &Reply{Text: entry.Desc, Document: entry.Path}
}

func (s *CommandService) handleAddFile(ctx context.Context, actor domain.Actor, req *CommandRequest) *Reply {
	key := firstToken(req.Args)
	if key == "" || req.ReplyFileID == "" {
		return &Reply{Text: "Usage: reply to a document with /addfile <name> [description]"}
	}
	desc := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(req.Args), key))

	err := s.fileUC.Add(ctx, actor, domain.FileEntry{
		Key:  key,
		Path: req.ReplyFileID,
		Desc: desc,
	})
	if err != nil {
		return errorReply(err)
	}
	return &Reply{Text: fmt.Sprintf("File %q registered.", key)}
}

func (s *CommandService) handleRemoveFile(ctx context.Context, actor domain.Actor, req *CommandRequest) *Reply {
	key := firstToken(req.Args)
	if key == "" {
		return &Reply{Text: "Usage: /rmfile <name>"}
	}
	if err := s.fileUC.Remove(ctx, actor, key); err != nil {
		return errorReply(err)
	}
	return &Reply{Text: fmt.Sprintf("File %q removed.", key)}
}

func (s *CommandService) handleBroadcast(ctx context.Context, actor domain.Actor, req *CommandRequest) *Reply {
	var payload usecase.Payload
	switch {
	case req.ReplyMsgID != 0:
		payload.Forward = &usecase.ForwardRef{FromChatID: req.ChatID, MsgID: req.ReplyMsgID}
	case strings.TrimSpace(req.Args) != "":
		payload.Text = strings.TrimSpace(req.Args)
	default:
		return &Reply{Text: "Usage: /broadcast <text>, or reply to a message with /broadcast"}
	}

	report, err := s.broadcastUC.Broadcast(ctx, actor, payload)
	if err != nil {
		return errorReply(err)
	}
	return &Reply{Text: fmt.Sprintf("Broadcast finished: %d sent, %d failed.", report.Sent, report.Failed)}
}

func (s *CommandService) handleWarn(ctx context.Context, actor domain.Actor, req *CommandRequest) *Reply {
	result, err := s.modUC.Warn(ctx, actor, req.ChatID, targetRef(req))
	if err != nil {
		return errorReply(err)
	}

	text := fmt.Sprintf("%s warned (%d/%d).", result.TargetName, result.Count, result.Limit)
	if result.Banned {
		text += " Warning limit reached, user banned."
	} else if result.BanFailure != nil {
		text += fmt.Sprintf(" Warning limit reached but the ban failed: %v", result.BanFailure)
	}
	return &Reply{Text: text}
}

func (s *CommandService) handleResetWarn(ctx context.Context, actor domain.Actor, req *CommandRequest) *Reply {
	name, err := s.modUC.ResetWarnings(ctx, actor, req.ChatID, targetRef(req))
	if err != nil {
		return errorReply(err)
	}
	return &Reply{Text: fmt.Sprintf("Warnings for %s reset.", name)}
}

func (s *CommandService) handleModAction(ctx context.Context, req *CommandRequest, verb string, action func(usecase.TargetRef) error) *Reply {
	target := targetRef(req)
	if err := action(target); err != nil {
		return errorReply(err)
	}

	name := target.ReplyName
	if name == "" {
		name = firstToken(req.Args)
	}
	return &Reply{Text: fmt.Sprintf("User %s %s.", name, verb)}
}

// handleSetConfig parses key=value tokens and applies them as one
// partial update. With no arguments it shows the effective policy.
func (s *CommandService) handleSetConfig(ctx context.Context, actor domain.Actor, req *CommandRequest) *Reply {
	args := strings.Fields(req.Args)
	if len(args) == 0 {
		policy, err := s.policyUC.Effective(ctx, req.ChatID)
		if err != nil {
			return errorReply(err)
		}
		return &Reply{Text: describePolicy(policy)}
	}

	upd, err := parsePolicyUpdate(args)
	if err != nil {
		return &Reply{Text: err.Error()}
	}

	policy, err := s.policyUC.Update(ctx, actor, req.ChatID, upd)
	if err != nil {
		return errorReply(err)
	}
	return &Reply{Text: "Configuration updated.\n\n" + describePolicy(policy)}
}

// parsePolicyUpdate turns key=value tokens into a partial update.
// Recognized keys: delete_links, warn_limit, ban_on_limit, add_banned,
// remove_banned. Word lists are comma-separated.
func parsePolicyUpdate(args []string) (domain.PolicyUpdate, error) {
	var upd domain.PolicyUpdate
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			return domain.PolicyUpdate{}, fmt.Errorf("Invalid setting %q, expected key=value.", arg)
		}

		switch key {
		case "delete_links":
			b, err := parseToggle(value)
			if err != nil {
				return domain.PolicyUpdate{}, fmt.Errorf("Invalid value for delete_links: %q.", value)
			}
			upd.DeleteLinks = &b
		case "ban_on_limit":
			b, err := parseToggle(value)
			if err != nil {
				return domain.PolicyUpdate{}, fmt.Errorf("Invalid value for ban_on_limit: %q.", value)
			}
			upd.BanOnLimit = &b
		case "warn_limit":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return domain.PolicyUpdate{}, fmt.Errorf("Invalid value for warn_limit: %q, expected a positive number.", value)
			}
			upd.WarnLimit = &n
		case "add_banned":
			upd.AddBanned = append(upd.AddBanned, splitWords(value)...)
		case "remove_banned":
			upd.RemoveBanned = append(upd.RemoveBanned, splitWords(value)...)
		default:
			return domain.PolicyUpdate{}, fmt.Errorf("Unknown setting %q.", key)
		}
	}
	if upd.IsZero() {
		return domain.PolicyUpdate{}, fmt.Errorf("Nothing to update.")
	}
	return upd, nil
}

func parseToggle(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a toggle")
}

func splitWords(value string) []string {
	var words []string
	for _, word := range strings.Split(value, ",") {
		word = strings.TrimSpace(word)
		if word != "" {
			words = append(words, word)
		}
	}
	return words
}

func describePolicy(policy domain.ChatPolicy) string {
	words := make([]string, 0, len(policy.BannedWords))
	for word := range policy.BannedWords {
		words = append(words, word)
	}
	sort.Strings(words)

	wordList := "(none)"
	if len(words) > 0 {
		wordList = strings.Join(words, ", ")
	}
	return fmt.Sprintf("Current policy:\ndelete_links: %s\nwarn_limit: %d\nban_on_limit: %s\nbanned words: %s",
		onOff(policy.DeleteLinks), policy.WarnLimit, onOff(policy.BanOnLimit), wordList)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func targetRef(req *CommandRequest) usecase.TargetRef {
	return usecase.TargetRef{
		ReplyUserID: req.ReplyUserID,
		ReplyName:   req.ReplyName,
		Arg:         firstToken(req.Args),
	}
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func errorReply(err error) *Reply {
	switch {
	case errors.Is(err, usecase.ErrNotAuthorized):
		return &Reply{Text: "You are not allowed to do that."}
	case errors.Is(err, usecase.ErrNoTarget):
		return &Reply{Text: "Reply to the user, or pass a user ID or @username."}
	case errors.Is(err, usecase.ErrUnknownFile):
		return &Reply{Text: "No such file. Use /files to list available files."}
	}
	return &Reply{Text: fmt.Sprintf("Error: %v", err)}
}
