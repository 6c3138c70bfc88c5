// Package bot is the Telegram front end of the menu.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"menu-companion/config"
	"menu-companion/lang"
	"menu-companion/logger"
	"menu-companion/models"
	"menu-companion/prefs"
	"menu-companion/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// telegram is the part of *tgbotapi.BotAPI the bot uses.
type telegram interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Deps are the services the bot renders.
type Deps struct {
	Sessions   *services.MenuSessions
	Images     *services.ImageService
	Prefs      prefs.Store
	Restaurant services.Restaurant
	Locale     string // system locale, decides the language of users who never chose one
}

type Bot struct {
	api      telegram
	deps     Deps
	throttle *services.ReloadThrottle
	log      zerolog.Logger

	userLang   map[int64]string // "ar" or "he"
	userLangMu sync.RWMutex
}

func New(cfg *config.Config, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	b := newBot(api, deps)
	b.log.Info().Str("username", api.Self.UserName).Msg("authorized")
	return b, nil
}

func newBot(api telegram, deps Deps) *Bot {
	return &Bot{
		api:      api,
		deps:     deps,
		throttle: services.NewReloadThrottle(),
		log:      logger.For("bot"),
		userLang: make(map[int64]string),
	}
}

func (b *Bot) setBotCommands(code string) error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: lang.T(code, "menu")},
		tgbotapi.BotCommand{Command: "menu", Description: lang.T(code, "categories")},
		tgbotapi.BotCommand{Command: "language", Description: lang.T(code, "choose_language")},
		tgbotapi.BotCommand{Command: "location", Description: lang.T(code, "location")},
		tgbotapi.BotCommand{Command: "call", Description: lang.T(code, "order_now")},
	)
	_, err := b.api.Request(cfg)
	return err
}

// Start polls for updates until ctx is done. Each update is handled on its
// own goroutine.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(lang.FromLocale(b.deps.Locale)); err != nil {
		b.log.Warn().Err(err).Msg("set commands")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	chatID, userID := msg.Chat.ID, msg.From.ID
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, chatID, userID)
	case "menu":
		b.sendMenu(ctx, chatID, userID)
	case "language":
		b.sendWithInline(chatID, lang.T(b.getLang(ctx, userID), "choose_language"), languageKeyboard())
	case "location":
		b.sendLocation(ctx, chatID, userID)
	case "call":
		b.sendContact(chatID)
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Error().Err(err).Msg("send")
	}
}

func (b *Bot) sendWithInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	b.send(msg)
}

// getLang returns the user's language: memory, then the preference store,
// then the system locale.
func (b *Bot) getLang(ctx context.Context, userID int64) string {
	b.userLangMu.RLock()
	l, ok := b.userLang[userID]
	b.userLangMu.RUnlock()
	if ok {
		return l
	}
	l = prefs.Resolve(ctx, b.deps.Prefs, userID, b.deps.Locale)
	b.userLangMu.Lock()
	b.userLang[userID] = l
	b.userLangMu.Unlock()
	return l
}

func (b *Bot) setLang(ctx context.Context, userID int64, code string) {
	if !lang.Valid(code) {
		return
	}
	if b.deps.Prefs != nil {
		if err := b.deps.Prefs.SetLanguage(ctx, userID, code); err != nil {
			b.log.Error().Err(err).Int64("user", userID).Msg("save language")
		}
	}
	b.userLangMu.Lock()
	b.userLang[userID] = code
	b.userLangMu.Unlock()
}

func (b *Bot) handleStart(ctx context.Context, chatID, userID int64) {
	if b.deps.Prefs != nil {
		if _, ok := b.deps.Prefs.Language(ctx, userID); !ok {
			// first visit: ask once
			b.sendWithInline(chatID, lang.T(lang.Ar, "choose_language"), languageKeyboard())
			return
		}
	}
	l := b.getLang(ctx, userID)
	b.send(tgbotapi.NewMessage(chatID, lang.T(l, "welcome", b.deps.Restaurant.Name)))
	b.sendMenu(ctx, chatID, userID)
}

func (b *Bot) sendMenu(ctx context.Context, chatID, userID int64) {
	l := b.getLang(ctx, userID)
	cats, err := b.deps.Sessions.For(l).EnsureCategories(ctx)
	if err != nil {
		b.sendWithInline(chatID, lang.T(l, "error_loading"), reloadKeyboard(l))
		return
	}
	b.sendWithInline(chatID, lang.T(l, "categories"), categoryKeyboard(cats, l, b.deps.Restaurant))
}

func (b *Bot) sendCategory(ctx context.Context, chatID, userID int64, categoryID string) {
	l := b.getLang(ctx, userID)
	svc := b.deps.Sessions.For(l)
	meals, err := svc.LoadMeals(ctx, categoryID)
	if err != nil {
		b.log.Warn().Err(err).Str("category", categoryID).Msg("load meals")
		b.sendWithInline(chatID, lang.T(l, "error_loading"), reloadKeyboard(l))
		return
	}
	cat, ok := svc.Category(categoryID)
	if !ok {
		cat = models.MenuItem{ID: categoryID}
	}
	b.sendCategoryPhoto(ctx, chatID, cat, l)
	b.sendWithInline(chatID, mealsText(cat, meals, l), backKeyboard(l))
}

// sendCategoryPhoto sends the category image when one is available. A missing
// or broken image never blocks the meal list.
func (b *Bot) sendCategoryPhoto(ctx context.Context, chatID int64, cat models.MenuItem, code string) {
	if b.deps.Images == nil {
		return
	}
	img, err := b.deps.Images.Image(ctx, cat)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotCached), errors.Is(err, services.ErrDataUnavailable):
			b.log.Debug().Err(err).Str("category", cat.ID).Msg("no category image")
		default:
			b.log.Warn().Err(err).Str("category", cat.ID).Msg("category image")
		}
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: img.Key, Bytes: img.Data})
	photo.Caption = cat.Name.In(code)
	b.send(photo)
}

func (b *Bot) sendLocation(ctx context.Context, chatID, userID int64) {
	l := b.getLang(ctx, userID)
	r := b.deps.Restaurant
	b.send(tgbotapi.NewVenue(chatID, r.Name, lang.T(l, "address"), r.Location.Lat(), r.Location.Lon()))
	b.sendWithInline(chatID, lang.T(l, "navigate"), navigationKeyboard(l))
}

func (b *Bot) sendContact(chatID int64) {
	r := b.deps.Restaurant
	b.send(tgbotapi.NewContact(chatID, r.Phone, r.Name))
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.From == nil {
		return
	}
	chatID, userID := cq.Message.Chat.ID, cq.From.ID
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Debug().Err(err).Msg("answer callback")
	}

	action, arg := splitCallback(cq.Data)
	switch action {
	case cbLang:
		code := strings.TrimSpace(arg)
		if !lang.Valid(code) {
			return
		}
		b.setLang(ctx, userID, code)
		b.send(tgbotapi.NewMessage(chatID, lang.T(code, "language_changed")))
		b.sendMenu(ctx, chatID, userID)
	case cbCategory:
		b.sendCategory(ctx, chatID, userID, arg)
	case cbReload:
		l := b.getLang(ctx, userID)
		if wait := b.throttle.WaitSeconds(userID); wait > 0 {
			b.sendWithInline(chatID, lang.T(l, "wait", wait), reloadKeyboard(l))
			return
		}
		if _, err := b.deps.Sessions.For(l).Reload(ctx); err != nil {
			b.throttle.RecordFailed(userID)
			b.sendWithInline(chatID, lang.T(l, "error_loading"), reloadKeyboard(l))
			return
		}
		b.throttle.RecordSuccess(userID)
		b.sendMenu(ctx, chatID, userID)
	case cbMenu:
		b.sendMenu(ctx, chatID, userID)
	case cbLocation:
		b.sendLocation(ctx, chatID, userID)
	case cbCall:
		b.sendContact(chatID)
	case cbNav:
		app, ok := services.ParseNavigationApp(arg)
		if !ok {
			return
		}
		l := b.getLang(ctx, userID)
		b.sendWithInline(chatID, lang.T(l, "navigate"), navigationLink(app, b.deps.Restaurant.Location))
	}
}
