package bot

import (
	"fmt"
	"strings"

	"menu-companion/lang"
	"menu-companion/models"
	"menu-companion/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data prefixes.
const (
	cbLang     = "lang:"
	cbCategory = "cat:"
	cbNav      = "nav:"
	cbReload   = "reload"
	cbMenu     = "menu"
	cbLocation = "location"
	cbCall     = "call"
)

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, l := range lang.Languages() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(l.DisplayName, cbLang+l.Code))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// categoryKeyboard lists categories two per row, then the restaurant actions.
func categoryKeyboard(cats []models.MenuItem, code string, r services.Restaurant) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range cats {
		if c.ID == "" {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Name.In(code), cbCategory+c.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(lang.T(code, "order_now"), cbCall),
			tgbotapi.NewInlineKeyboardButtonData(lang.T(code, "location"), cbLocation),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(lang.T(code, "instagram"), r.InstagramWebURL()),
		),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(lang.T(code, "back"), cbMenu),
			tgbotapi.NewInlineKeyboardButtonData(lang.T(code, "order_now"), cbCall),
		),
	)
}

func reloadKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(lang.T(code, "reload"), cbReload),
		),
	)
}

func navigationKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, app := range services.NavigationApps() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(app.DisplayName(), cbNav+string(app)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(lang.T(code, "cancel"), cbMenu)),
	)
}

func navigationLink(app services.NavigationApp, loc models.Location) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(app.DisplayName(), app.WebURL(loc))),
	)
}

// mealsText renders a category's sorted meals. A group header is printed
// whenever the group changes from the previous meal.
func mealsText(cat models.MenuItem, meals []models.MenuItem, code string) string {
	var b strings.Builder
	if name := cat.Name.In(code); name != "" {
		b.WriteString(name)
		b.WriteString("\n")
	}
	if len(meals) == 0 {
		b.WriteString("\n")
		b.WriteString(lang.T(code, "meals_empty"))
		return b.String()
	}
	for _, sec := range services.GroupSections(meals, code) {
		b.WriteString("\n")
		if sec.Group != "" {
			fmt.Fprintf(&b, "▪️ %s\n", sec.Group)
		}
		for _, m := range sec.Meals {
			fmt.Fprintf(&b, "• %s - %s\n", m.Name.In(code), lang.Price(code, m.Price))
			if info := m.Info.In(code); info != "" {
				fmt.Fprintf(&b, "   %s\n", info)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// splitCallback splits "prefix:arg" data. Data without an argument returns it whole.
func splitCallback(data string) (action, arg string) {
	if i := strings.IndexByte(data, ':'); i >= 0 {
		return data[:i+1], data[i+1:]
	}
	return data, ""
}
