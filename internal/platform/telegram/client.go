package telegram

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clubtac-rating-backend/internal/common/logger"
)

// Client is a thin Bot API client used for confirmation messages. The app
// never receives updates, it only sends.
type Client struct {
	httpClient *http.Client
	token      string
}

// Response представляет ответ от Telegram API
type Response struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token: token,
	}
}

// NotifyPayment сообщает пользователю в личку, что оплата участия
// в событии подтверждена. Ошибка здесь не критична для регистрации.
func (c *Client) NotifyPayment(chatID int64, eventTitle string) error {
	message := fmt.Sprintf(
		"✅ Оплата получена!\n\n"+
			"Вы записаны на событие \"%s\". До встречи на площадке!",
		eventTitle,
	)

	response, err := c.sendMessage(chatID, message)
	if err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send payment notification")
		return err
	}

	if !response.Ok {
		return fmt.Errorf("telegram API error: %s", response.Description)
	}

	logger.Debug().Int64("chat_id", chatID).Msg("Payment notification sent")
	return nil
}

func (c *Client) sendMessage(chatID int64, text string) (*Response, error) {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	params := url.Values{
		"chat_id": {fmt.Sprintf("%d", chatID)},
		"text":    {text},
	}

	var response Response
	if err := c.makeRequest(http.MethodPost, endpoint, params, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

func (c *Client) makeRequest(method, endpoint string, data url.Values, result interface{}) error {
	var req *http.Request
	var err error

	if method == http.MethodPost {
		req, err = http.NewRequest(method, endpoint, strings.NewReader(data.Encode()))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		if len(data) > 0 {
			endpoint = fmt.Sprintf("%s?%s", endpoint, data.Encode())
		}
		req, err = http.NewRequest(method, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
