package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Control is one inline button
type Control struct {
	Label string
	Data  string
}

// Content is a message body with optional inline controls
type Content struct {
	Text     string
	HTML     bool
	Controls [][]Control
	// Keyboard, when set, replaces the reply keyboard under the input field
	Keyboard *tgbotapi.ReplyKeyboardMarkup
}

// Client is a thin adapter over the Bot API with classified errors
type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient authorises the bot with the given token
func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	return &Client{api: api}, nil
}

// NewClientWithAPI wraps an already configured BotAPI
func NewClientWithAPI(api *tgbotapi.BotAPI) *Client {
	return &Client{api: api}
}

// API exposes the underlying BotAPI for the update loop
func (c *Client) API() *tgbotapi.BotAPI {
	return c.api
}

// SendMessage sends content to a chat and returns the new message id
func (c *Client) SendMessage(ctx context.Context, chatID int64, content Content) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, content.Text)
	if content.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	if len(content.Controls) > 0 {
		msg.ReplyMarkup = inlineKeyboard(content.Controls)
	} else if content.Keyboard != nil {
		msg.ReplyMarkup = *content.Keyboard
	}

	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, classify("sendMessage", err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces text and inline controls of a sent message
func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, content Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, content.Text)
	if content.HTML {
		edit.ParseMode = tgbotapi.ModeHTML
	}
	if len(content.Controls) > 0 {
		markup := inlineKeyboard(content.Controls)
		edit.ReplyMarkup = &markup
	}
	_, err := c.api.Request(edit)
	return classify("editMessageText", err)
}

// EditControls replaces only the inline controls of a sent message
func (c *Client) EditControls(ctx context.Context, chatID int64, messageID int, controls [][]Control) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, inlineKeyboard(controls))
	_, err := c.api.Request(edit)
	return classify("editMessageReplyMarkup", err)
}

// AnswerInteraction acknowledges a callback query, optionally with a toast
func (c *Client) AnswerInteraction(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return classify("answerCallbackQuery", err)
}

func inlineKeyboard(controls [][]Control) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(controls))
	for _, row := range controls {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, c := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
