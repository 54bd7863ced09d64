package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rahul/puppetry/internal/observability"
	"github.com/rahul/puppetry/internal/runner"
	"github.com/rahul/puppetry/internal/store"
)

// Presets lists and resolves named presets.
type Presets interface {
	Names() ([]string, error)
	Get(name string) (store.Preset, error)
}

// TelegramGateway lets allow-listed chats start and inspect runs.
type TelegramGateway struct {
	Bot     *tgbotapi.BotAPI
	Runner  *runner.Runner
	Presets Presets
	// AllowedChats receive run notifications and may issue commands.
	AllowedChats map[int64]bool

	send func(chatID int64, text string) error
	runs sync.WaitGroup
}

func NewTelegramGateway(token string, r *runner.Runner, presets Presets, allowed []int64) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	tg := newGateway(r, presets, allowed)
	tg.Bot = bot
	tg.send = func(chatID int64, text string) error {
		_, err := bot.Send(tgbotapi.NewMessage(chatID, text))
		return err
	}
	return tg, nil
}

func newGateway(r *runner.Runner, presets Presets, allowed []int64) *TelegramGateway {
	tg := &TelegramGateway{
		Runner:       r,
		Presets:      presets,
		AllowedChats: make(map[int64]bool, len(allowed)),
	}
	for _, id := range allowed {
		tg.AllowedChats[id] = true
	}
	return tg
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}
		chatID := update.Message.Chat.ID
		if !tg.AllowedChats[chatID] {
			log.Printf("Ignoring message from chat %d", chatID)
			continue
		}

		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

		if reply := tg.handle(context.Background(), chatID, update.Message.Text); reply != "" {
			if err := tg.send(chatID, reply); err != nil {
				log.Printf("Error replying to chat %d: %v", chatID, err)
			}
		}
	}
	return nil
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	var id int64
	fmt.Sscanf(chatID, "%d", &id)
	if id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}
	if tg.send == nil {
		return errors.New("telegram gateway not connected")
	}
	return tg.send(id, text)
}

// Stop stops polling and waits for runs started from chat to finish.
func (tg *TelegramGateway) Stop() error {
	if tg.Bot != nil {
		tg.Bot.StopReceivingUpdates()
	}
	tg.runs.Wait()
	return nil
}

// Notify announces a finished run to every allowed chat.
func (tg *TelegramGateway) Notify(ctx context.Context, s runner.Summary) {
	if tg.send == nil {
		return
	}
	if err := Broadcast(tg, tg.Chats(), summaryText(s)); err != nil {
		log.Printf("Error notifying chats: %v", err)
	}
}

// Chats returns the allowed chat IDs in ascending order.
func (tg *TelegramGateway) Chats() []int64 {
	ids := make([]int64, 0, len(tg.AllowedChats))
	for id := range tg.AllowedChats {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func summaryText(s runner.Summary) string {
	name := s.Preset
	if name == "" {
		name = "ad-hoc run"
	}
	if s.Err != nil {
		return fmt.Sprintf("❌ %s failed: %v", name, s.Err)
	}
	return fmt.Sprintf("✅ %s done (%d loop(s))", name, s.Loops)
}

// parseCommand splits "/run@bot mug https://x" into "run" and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), fields[1:]
}

// handle answers one command. Runs are started in the background; their
// outcome arrives through Notify.
func (tg *TelegramGateway) handle(ctx context.Context, chatID int64, text string) string {
	cmd, args := parseCommand(text)
	switch cmd {
	case "presets":
		names, err := tg.Presets.Names()
		if err != nil {
			return fmt.Sprintf("Error listing presets: %v", err)
		}
		if len(names) == 0 {
			return "No presets saved."
		}
		return "Presets:\n" + strings.Join(names, "\n")

	case "run":
		if len(args) == 0 {
			return "Usage: /run <preset> [productURL]"
		}
		name := args[0]
		preset, err := tg.Presets.Get(name)
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		productURL := ""
		if len(args) > 1 {
			productURL = args[1]
		}
		req := runner.FromPreset(name, preset, productURL, 0, nil)
		tg.runs.Add(1)
		go func() {
			defer tg.runs.Done()
			if err := tg.Runner.Run(context.WithoutCancel(ctx), req, nil); err != nil {
				log.Printf("Run %s from chat %d failed: %v", name, chatID, err)
			}
		}()
		return fmt.Sprintf("▶ Running %s", name)

	case "reset":
		if err := tg.Runner.Reset(); err != nil {
			return fmt.Sprintf("Error closing browser: %v", err)
		}
		return "Browser closed."

	case "status":
		st := observability.GetStatus()
		task := st.ActiveTask
		if task == "" {
			task = "-"
		}
		return fmt.Sprintf("%s | %s | heartbeat %s", st.Role, task, st.LastHeartbeat.Format(time.TimeOnly))

	case "start", "help":
		return "Commands: /presets, /run <preset> [productURL], /reset, /status"
	}
	return ""
}

var _ Messenger = (*TelegramGateway)(nil)
