package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/repo"
	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/usecase"
	"github.com/Shadow-droid-3574/TeleResearch/internal/infra/telegram"
	"github.com/Shadow-droid-3574/TeleResearch/internal/service"
)

// TelegramServer long-polls the Bot API and routes every update: bot
// commands go to the command service, everything else through message
// moderation. Updates are processed in arrival order.
type TelegramServer struct {
	client      *telegram.Client
	cmdSvc      *service.CommandService
	modUC       *usecase.ModerationUsecase
	state       repo.StateRepo
	pollTimeout int

	botUsername string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTelegramServer creates a new Telegram server
func NewTelegramServer(
	client *telegram.Client,
	cmdSvc *service.CommandService,
	modUC *usecase.ModerationUsecase,
	state repo.StateRepo,
	pollTimeoutSeconds int,
) *TelegramServer {
	if pollTimeoutSeconds <= 0 {
		pollTimeoutSeconds = 30
	}
	return &TelegramServer{
		client:      client,
		cmdSvc:      cmdSvc,
		modUC:       modUC,
		state:       state,
		pollTimeout: pollTimeoutSeconds,
	}
}

// Start resolves the bot identity and begins the update loop
func (s *TelegramServer) Start() error {
	ctx, cancel := context.WithCancel(context.Background())

	meCtx, meCancel := context.WithTimeout(ctx, 10*time.Second)
	me, err := s.client.GetMe(meCtx)
	meCancel()
	if err != nil {
		cancel()
		return fmt.Errorf("get bot identity: %w", err)
	}
	s.botUsername = me.Username
	fmt.Printf("[Server] Logged in as @%s (%d)\n", me.Username, me.ID)

	s.cancel = cancel
	s.wg.Add(1)
	go s.pollLoop(ctx)
	return nil
}

// Stop stops the update loop and waits for it to drain
func (s *TelegramServer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *TelegramServer) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := s.client.GetUpdates(ctx, offset, s.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Printf("[Server] Poll error: %v\n", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			s.dispatch(ctx, &update)
		}
	}
}

func (s *TelegramServer) dispatch(ctx context.Context, update *telegram.Update) {
	// Channel posts only register the channel as a broadcast target
	if update.ChannelPost != nil {
		if err := s.state.ObserveChannel(ctx, update.ChannelPost.Chat.ID); err != nil {
			fmt.Printf("[Server] Failed to observe channel %d: %v\n", update.ChannelPost.Chat.ID, err)
		}
		return
	}

	msg := update.Message
	if msg == nil {
		msg = update.EditedMsg
	}
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}

	if command, args, ok := parseCommand(msg.Text, s.botUsername); ok {
		s.handleCommand(ctx, msg, command, args)
		return
	}

	s.handleMessage(ctx, msg)
}

func (s *TelegramServer) handleMessage(ctx context.Context, msg *telegram.Message) {
	inbound := &domain.InboundMessage{
		MsgID:    msg.MessageID,
		ChatID:   msg.Chat.ID,
		ChatType: domain.ChatType(msg.Chat.Type),
		From:     toDomainUser(msg.From),
		Text:     msg.Text,
		Caption:  msg.Caption,
	}

	result, err := s.modUC.HandleMessage(ctx, inbound)
	if err != nil {
		fmt.Printf("[Server] Moderation error for message %d in %d: %v\n", msg.MessageID, msg.Chat.ID, err)
		return
	}
	if result != nil {
		fmt.Printf("[Server] Violation by %d in %d: deleted=%v warnings=%d/%d banned=%v\n",
			msg.From.ID, msg.Chat.ID, result.Deleted, result.Count, result.Limit, result.Banned)
	}
}

func (s *TelegramServer) handleCommand(ctx context.Context, msg *telegram.Message, command, args string) {
	// Command senders still join the broadcast roster
	sender := toDomainUser(msg.From)
	if err := s.state.RegisterUser(ctx, &sender, msg.Chat.ID); err != nil {
		fmt.Printf("[Server] Failed to register user %d: %v\n", msg.From.ID, err)
	}

	req := &service.CommandRequest{
		ChatID:   msg.Chat.ID,
		ChatType: domain.ChatType(msg.Chat.Type),
		MsgID:    msg.MessageID,
		Sender:   sender,
		Command:  command,
		Args:     args,
	}
	if reply := msg.ReplyToMessage; reply != nil {
		req.ReplyMsgID = reply.MessageID
		if reply.From != nil {
			replied := toDomainUser(reply.From)
			req.ReplyUserID = replied.ID
			req.ReplyName = replied.DisplayName()
		}
		if reply.Document != nil {
			req.ReplyFileID = reply.Document.FileID
		}
	}

	reply := s.cmdSvc.Handle(ctx, req)
	if reply == nil {
		return
	}
	s.sendReply(ctx, msg.Chat.ID, reply)
}

func (s *TelegramServer) sendReply(ctx context.Context, chatID int64, reply *service.Reply) {
	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if reply.Document != "" {
		if _, err := s.client.SendDocument(sendCtx, chatID, reply.Document, reply.Text); err != nil {
			fmt.Printf("[Server] Failed to send document: %v\n", err)
		}
		return
	}

	parseMode := ""
	if reply.HTML {
		parseMode = "HTML"
	}
	if _, err := s.client.SendMessage(sendCtx, chatID, reply.Text, parseMode); err != nil {
		fmt.Printf("[Server] Failed to send reply: %v\n", err)
	}
}

// parseCommand splits "/cmd@bot args" into its parts. A command
// addressed to a different bot is not ours.
func parseCommand(text, botUsername string) (command, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	if head == "" {
		return "", "", false
	}

	if name, suffix, found := strings.Cut(head, "@"); found {
		if botUsername != "" && !strings.EqualFold(suffix, botUsername) {
			return "", "", false
		}
		head = name
	}

	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func toDomainUser(u *telegram.User) domain.User {
	return domain.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}
