package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"menu-companion/config"
	"menu-companion/models"
	"menu-companion/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelegram struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	reqs []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeTelegram) StopReceivingUpdates() {}

func (f *fakeTelegram) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

type menuStore struct {
	err error
}

func (s *menuStore) Categories(ctx context.Context) ([]models.MenuItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.MenuItem{
		{ID: "salads", Name: models.Localized{"ar": "سلطات", "he": "סלטים"}, Index: models.Int64(2)},
		{ID: "pizzas", Name: models.Localized{"ar": "بيتزا", "he": "פיצות"}, Index: models.Int64(1)},
	}, nil
}

func (s *menuStore) Meals(ctx context.Context, categoryID string) ([]models.MenuItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	if categoryID != "pizzas" {
		return nil, nil
	}
	return []models.MenuItem{
		{ID: "m1", Name: models.Localized{"he": "מרגריטה"}, Price: models.Int64(50), Index: models.Int64(1)},
	}, nil
}

type memPrefs map[int64]string

func (m memPrefs) Language(ctx context.Context, userID int64) (string, bool) {
	l, ok := m[userID]
	return l, ok
}

func (m memPrefs) SetLanguage(ctx context.Context, userID int64, code string) error {
	m[userID] = code
	return nil
}

func newTestBot(store *menuStore, p memPrefs) (*Bot, *fakeTelegram) {
	api := &fakeTelegram{}
	b := newBot(api, Deps{
		Sessions: services.NewMenuSessions(store, nil),
		Prefs:    p,
		Restaurant: services.NewRestaurant(config.RestaurantConfig{
			Name: "Papa Italia", Phone: "046361110", Instagram: "papa.italia_", Lat: 32.860010, Lon: 35.366690,
		}),
		Locale: "ar_SA",
	})
	return b, api
}

func command(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: userID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func callback(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func TestStartAsksLanguageOnce(t *testing.T) {
	p := memPrefs{}
	b, api := newTestBot(&menuStore{}, p)
	ctx := context.Background()

	b.handleUpdate(ctx, command(7, "/start"))
	msgs := api.messages()
	require.Len(t, msgs, 1)
	kb := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "lang:ar", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "lang:he", *kb.InlineKeyboard[0][1].CallbackData)

	b.handleUpdate(ctx, callback(7, "lang:he"))
	assert.Equal(t, "he", p[7])
	msgs = api.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "השפה שונתה", msgs[1].Text)
	// menu follows, in Hebrew, categories sorted by index
	menu := msgs[2].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "פיצות", menu.InlineKeyboard[0][0].Text)
	assert.Equal(t, "cat:pizzas", *menu.InlineKeyboard[0][0].CallbackData)

	b.handleUpdate(ctx, command(7, "/start"))
	msgs = api.messages()
	assert.True(t, strings.Contains(msgs[3].Text, "Papa Italia"), msgs[3].Text)
}

func TestUnsupportedLanguageCallbackIgnored(t *testing.T) {
	p := memPrefs{}
	b, api := newTestBot(&menuStore{}, p)
	b.handleUpdate(context.Background(), callback(7, "lang:en"))
	assert.Empty(t, p)
	assert.Empty(t, api.messages())
}

func TestCategoryShowsMeals(t *testing.T) {
	b, api := newTestBot(&menuStore{}, memPrefs{7: "he"})
	ctx := context.Background()
	b.handleUpdate(ctx, command(7, "/menu"))
	b.handleUpdate(ctx, callback(7, "cat:pizzas"))

	msgs := api.messages()
	last := msgs[len(msgs)-1]
	assert.Contains(t, last.Text, "פיצות")
	assert.Contains(t, last.Text, "מרגריטה - 50 ₪")

	b.handleUpdate(ctx, callback(7, "cat:salads"))
	msgs = api.messages()
	assert.Contains(t, msgs[len(msgs)-1].Text, "אין מנות בקטגוריה זו")
}

func TestLoadErrorOffersReload(t *testing.T) {
	store := &menuStore{err: errors.New("offline")}
	b, api := newTestBot(store, memPrefs{7: "ar"})
	ctx := context.Background()

	b.handleUpdate(ctx, command(7, "/menu"))
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "تعذر تحميل القائمة", msgs[0].Text)
	kb := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "reload", *kb.InlineKeyboard[0][0].CallbackData)

	store.err = nil
	b.handleUpdate(ctx, callback(7, "reload"))
	msgs = api.messages()
	assert.Equal(t, "اختر قسماً", msgs[len(msgs)-1].Text)
}

func TestLocationAndCall(t *testing.T) {
	b, api := newTestBot(&menuStore{}, memPrefs{7: "ar"})
	ctx := context.Background()

	b.handleUpdate(ctx, command(7, "/location"))
	require.Len(t, api.sent, 2)
	venue, ok := api.sent[0].(tgbotapi.VenueConfig)
	require.True(t, ok)
	assert.InDelta(t, 32.860010, venue.Latitude, 1e-9)
	assert.Equal(t, "Papa Italia", venue.Title)

	b.handleUpdate(ctx, callback(7, "nav:google_maps"))
	msgs := api.messages()
	kb := msgs[len(msgs)-1].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.True(t, strings.HasPrefix(*kb.InlineKeyboard[0][0].URL, "https://www.google.com/maps/"))

	b.handleUpdate(ctx, command(7, "/call"))
	contact, ok := api.sent[len(api.sent)-1].(tgbotapi.ContactConfig)
	require.True(t, ok)
	assert.Equal(t, "046361110", contact.PhoneNumber)
}

func TestLanguageFallsBackToLocale(t *testing.T) {
	b, _ := newTestBot(&menuStore{}, memPrefs{})
	b.deps.Locale = "he_IL.UTF-8"
	assert.Equal(t, "he", b.getLang(context.Background(), 9))
}

func TestFailedReloadsBackOff(t *testing.T) {
	store := &menuStore{err: errors.New("offline")}
	b, api := newTestBot(store, memPrefs{7: "he"})
	ctx := context.Background()

	b.handleUpdate(ctx, callback(7, "reload"))
	msgs := api.messages()
	assert.Equal(t, "לא ניתן לטעון את התפריט", msgs[len(msgs)-1].Text)

	b.handleUpdate(ctx, callback(7, "reload"))
	msgs = api.messages()
	assert.Contains(t, msgs[len(msgs)-1].Text, "נסה שוב בעוד")
}
