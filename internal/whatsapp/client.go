package whatsapp

import (
	"errors"
	"fmt"
	"time"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/phone"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned before any HTTP call when the Cloud API
	// credentials are missing from the environment.
	ErrNotConfigured = errors.New("whatsapp credentials not configured")

	// ErrUnsupportedType is returned for message types the payload builder
	// does not know how to format.
	ErrUnsupportedType = errors.New("unsupported message type")
)

// UpstreamError carries a non-2xx provider response.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("whatsapp api error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the WhatsApp Cloud API messages endpoint.
type Client struct {
	cfg  *config.Config
	http *resty.Client
}

func NewClient(cfg *config.Config) *Client {
	httpClient := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.WhatsAppToken)

	return &Client{cfg: cfg, http: httpClient}
}

// --- Message payload structures ---

type GenericMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *TextObj     `json:"text,omitempty"`
	Image            *MediaObj    `json:"image,omitempty"`
	Video            *MediaObj    `json:"video,omitempty"`
	Audio            *MediaObj    `json:"audio,omitempty"`
	Document         *MediaObj    `json:"document,omitempty"`
	Template         *TemplateObj `json:"template,omitempty"`
}

type TextObj struct {
	Body string `json:"body"`
}

type MediaObj struct {
	ID      string `json:"id,omitempty"`
	Link    string `json:"link,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type TemplateObj struct {
	Name     string      `json:"name"`
	Language LanguageObj `json:"language"`
}

type LanguageObj struct {
	Code string `json:"code"`
}

// SendResponse is the provider's reply to a successful send.
type SendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Messages         []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendRequest describes one outbound message.
type SendRequest struct {
	PhoneNumber  string
	Content      string
	MessageType  string // text (default), image, document, audio, video, template
	MediaURL     string
	TemplateName string
}

// BuildPayload formats the Cloud API request body for a send request. The
// recipient number is reduced to digits the way the provider expects it.
func BuildPayload(req SendRequest) (*GenericMessage, error) {
	msgType := req.MessageType
	if msgType == "" {
		msgType = "text"
	}

	msg := &GenericMessage{
		MessagingProduct: "whatsapp",
		To:               phone.Normalize(req.PhoneNumber),
		Type:             msgType,
	}

	switch msgType {
	case "text":
		msg.Text = &TextObj{Body: req.Content}
	case "image":
		msg.Image = &MediaObj{Link: req.MediaURL}
	case "document":
		msg.Document = &MediaObj{Link: req.MediaURL}
	case "audio":
		msg.Audio = &MediaObj{Link: req.MediaURL}
	case "video":
		msg.Video = &MediaObj{Link: req.MediaURL}
	case "template":
		msg.Template = &TemplateObj{
			Name:     req.TemplateName,
			Language: LanguageObj{Code: "en"},
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, msgType)
	}

	return msg, nil
}

// Send submits one message and returns the provider-assigned message ID.
func (c *Client) Send(req SendRequest) (string, error) {
	if c.cfg.PhoneNumberID == "" || c.cfg.WhatsAppToken == "" {
		return "", ErrNotConfigured
	}

	payload, err := BuildPayload(req)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/messages", c.cfg.GraphAPIBase, c.cfg.PhoneNumberID)

	var result SendResponse
	resp, err := c.http.R().
		SetBody(payload).
		SetResult(&result).
		Post(url)
	if err != nil {
		return "", err
	}

	if resp.IsError() {
		zap.L().Warn("whatsapp send failed",
			zap.String("to", payload.To),
			zap.Int("status", resp.StatusCode()))
		return "", &UpstreamError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	if len(result.Messages) == 0 {
		return "", &UpstreamError{StatusCode: resp.StatusCode(), Body: "response missing message id"}
	}

	zap.L().Info("whatsapp message sent",
		zap.String("to", payload.To),
		zap.String("type", payload.Type),
		zap.String("message_id", result.Messages[0].ID))

	return result.Messages[0].ID, nil
}
