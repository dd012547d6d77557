package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/www"
)

const DefaultTelegramApiUrl = "https://api.telegram.org"

// Credentials identify the bot that sends, and the chat that receives
type Credentials struct {
	BotToken string
	ChatID   string
}

// Deliverer is a chat transport.
// Failures are reported as false, and never as errors or panics.
type Deliverer interface {
	DeliverText(ctx context.Context, creds Credentials, text string) bool
	DeliverImage(ctx context.Context, creds Credentials, filename string, jpg []byte) bool
}

// Telegram delivers through the Telegram Bot API
type Telegram struct {
	log         logs.Log
	apiUrl      string
	httpTimeout time.Duration
}

func NewTelegram(log logs.Log, apiUrl string, httpTimeout time.Duration) *Telegram {
	if apiUrl == "" {
		apiUrl = DefaultTelegramApiUrl
	}
	return &Telegram{
		log:         log,
		apiUrl:      strings.TrimSuffix(apiUrl, "/"),
		httpTimeout: httpTimeout,
	}
}

// SYNC-TELEGRAM-RESPONSE
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) newRequest(ctx context.Context, token, method string, body io.Reader, contentType string) (*http.Request, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, t.httpTimeout)
	r, err := http.NewRequestWithContext(ctx, "POST", t.apiUrl+"/bot"+token+"/"+method, body)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	r.Header.Set("Content-Type", contentType)
	return r, cancel, nil
}

func (t *Telegram) send(ctx context.Context, creds Credentials, method string, body io.Reader, contentType string) error {
	req, cancel, err := t.newRequest(ctx, creds.BotToken, method, body, contentType)
	if err != nil {
		return err
	}
	defer cancel()
	resp, err := www.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tr := telegramResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("Invalid response: %w", err)
	}
	if !tr.OK {
		return fmt.Errorf("Telegram refused %v: %v", method, tr.Description)
	}
	return nil
}

func (t *Telegram) DeliverText(ctx context.Context, creds Credentials, text string) bool {
	form := url.Values{}
	form.Set("chat_id", creds.ChatID)
	form.Set("text", text)
	err := t.send(ctx, creds, "sendMessage", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		t.log.Errorf("Telegram sendMessage to %v failed: %v", creds.ChatID, err)
		return false
	}
	t.log.Infof("Telegram message sent to %v", creds.ChatID)
	return true
}

func (t *Telegram) DeliverImage(ctx context.Context, creds Credentials, filename string, jpg []byte) bool {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.WriteField("chat_id", creds.ChatID); err != nil {
		t.log.Errorf("Telegram sendPhoto: %v", err)
		return false
	}
	fw, err := w.CreateFormFile("photo", filename)
	if err != nil {
		t.log.Errorf("Telegram sendPhoto: %v", err)
		return false
	}
	fw.Write(jpg)
	w.Close()

	if err := t.send(ctx, creds, "sendPhoto", body, w.FormDataContentType()); err != nil {
		t.log.Errorf("Telegram sendPhoto to %v failed: %v", creds.ChatID, err)
		return false
	}
	t.log.Infof("Telegram photo %v sent to %v", filename, creds.ChatID)
	return true
}
