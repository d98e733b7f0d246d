package models

// WebhookPayload represents the incoming JSON payload from the WhatsApp
// Cloud API. Only entry[0].changes[0] is ever inspected.
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Value *ChangeValue `json:"value"`
			Field string       `json:"field"`
		} `json:"changes"`
	} `json:"entry"`
}

// ChangeValue is the body of a webhook change notification
type ChangeValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Messages []InboundMessage `json:"messages,omitempty"`
	Statuses []StatusUpdate   `json:"statuses,omitempty"`
	Errors   []ProviderError  `json:"errors,omitempty"`
}

// InboundMessage is one received message
type InboundMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image    *MediaMessage `json:"image,omitempty"`
	Video    *MediaMessage `json:"video,omitempty"`
	Audio    *MediaMessage `json:"audio,omitempty"`
	Document *MediaMessage `json:"document,omitempty"`
}

// MediaMessage represents a media attachment in a received message
type MediaMessage struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// StatusUpdate is a delivery status callback for a previously sent message
type StatusUpdate struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// ProviderError is an error callback from the provider
type ProviderError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
	Details string `json:"error_data,omitempty"`
}
