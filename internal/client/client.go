// Package client is a Go SDK for the messaging service. It talks to the REST
// API, follows the websocket change feeds and does all encryption locally.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"messaging-service/internal/models"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("messaging api: %d %s", e.Status, e.Message)
}

// Temporary reports whether repeating the request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// Client calls the messaging service on behalf of one bearer token.
type Client struct {
	baseURL     string
	token       string
	http        *http.Client
	readRetries uint64
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithReadRetries sets how many times a failed GET is repeated.
func WithReadRetries(n uint64) Option {
	return func(c *Client) { c.readRetries = n }
}

// New creates a client for the service rooted at baseURL.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		http:        &http.Client{Timeout: 15 * time.Second},
		readRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// get retries transport failures and 5xx answers with exponential backoff.
func (c *Client) get(ctx context.Context, path string, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	return backoff.Retry(func() error {
		err := c.do(ctx, http.MethodGet, path, nil, out)
		if apiErr, ok := err.(*APIError); ok && !apiErr.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, c.readRetries), ctx))
}

func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	err := c.get(ctx, "/conversations", &resp)
	return resp.Conversations, err
}

func (c *Client) GetConversation(ctx context.Context, conversationID uuid.UUID) (models.Conversation, error) {
	var resp struct {
		Conversation models.Conversation `json:"conversation"`
	}
	err := c.get(ctx, "/conversations/"+conversationID.String(), &resp)
	return resp.Conversation, err
}

// CreateConversation opens a conversation between the caller and participantIDs.
func (c *Client) CreateConversation(ctx context.Context, participantIDs []uuid.UUID, metadata models.ConversationMetadata) (models.Conversation, error) {
	var resp struct {
		Conversation models.Conversation `json:"conversation"`
	}
	body := map[string]any{"participant_ids": participantIDs, "metadata": metadata}
	err := c.do(ctx, http.MethodPost, "/conversations", body, &resp)
	return resp.Conversation, err
}

func (c *Client) UpdateConversationMetadata(ctx context.Context, conversationID uuid.UUID, patch models.ConversationMetadata) (models.Conversation, error) {
	var resp struct {
		Conversation models.Conversation `json:"conversation"`
	}
	err := c.do(ctx, http.MethodPatch, "/conversations/"+conversationID.String()+"/metadata", patch, &resp)
	return resp.Conversation, err
}

func (c *Client) ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]models.ConversationParticipant, error) {
	var resp struct {
		Participants []models.ConversationParticipant `json:"participants"`
	}
	err := c.get(ctx, "/conversations/"+conversationID.String()+"/participants", &resp)
	return resp.Participants, err
}

func (c *Client) AddParticipant(ctx context.Context, conversationID uuid.UUID, email string) (models.ConversationParticipant, error) {
	var resp struct {
		Participant models.ConversationParticipant `json:"participant"`
	}
	err := c.do(ctx, http.MethodPost, "/conversations/"+conversationID.String()+"/participants", map[string]string{"email": email}, &resp)
	return resp.Participant, err
}

// ListMessages returns one page oldest first. Zero limit uses the server default.
func (c *Client) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/conversations/" + conversationID.String() + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	err := c.get(ctx, path, &resp)
	return resp.Messages, err
}

func (c *Client) SendMessage(ctx context.Context, conversationID uuid.UUID, payload models.EncryptedMessagePayload) (models.Message, error) {
	var resp struct {
		Message models.Message `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/conversations/"+conversationID.String()+"/messages", payload, &resp)
	return resp.Message, err
}

func (c *Client) UpdateMessageMetadata(ctx context.Context, messageID uuid.UUID, patch models.MetadataPatch) (models.Message, error) {
	var resp struct {
		Message models.Message `json:"message"`
	}
	err := c.do(ctx, http.MethodPatch, "/messages/"+messageID.String()+"/metadata", patch, &resp)
	return resp.Message, err
}

func (c *Client) MarkRead(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	var resp struct {
		Message models.Message `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/messages/"+messageID.String()+"/read", nil, &resp)
	return resp.Message, err
}

// StorePublicKey publishes the caller's public key.
func (c *Client) StorePublicKey(ctx context.Context, publicKey string) (int64, error) {
	var resp struct {
		Updated int64 `json:"updated_participants"`
	}
	err := c.do(ctx, http.MethodPut, "/keys", map[string]string{"public_key": publicKey}, &resp)
	return resp.Updated, err
}

func (c *Client) ListContacts(ctx context.Context, status models.ContactStatus) ([]models.Contact, error) {
	path := "/contacts"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var resp struct {
		Contacts []models.Contact `json:"contacts"`
	}
	err := c.get(ctx, path, &resp)
	return resp.Contacts, err
}

func (c *Client) LookupUser(ctx context.Context, email string) (models.UserProfile, error) {
	var resp struct {
		User models.UserProfile `json:"user"`
	}
	err := c.get(ctx, "/contacts/lookup?email="+url.QueryEscape(email), &resp)
	return resp.User, err
}

func (c *Client) AddContact(ctx context.Context, contactUserID uuid.UUID) (models.Contact, error) {
	var resp struct {
		Contact models.Contact `json:"contact"`
	}
	err := c.do(ctx, http.MethodPost, "/contacts", map[string]string{"contact_user_id": contactUserID.String()}, &resp)
	return resp.Contact, err
}

func (c *Client) UpdateContactStatus(ctx context.Context, contactID uuid.UUID, status models.ContactStatus) (models.Contact, error) {
	var resp struct {
		Contact models.Contact `json:"contact"`
	}
	err := c.do(ctx, http.MethodPatch, "/contacts/"+contactID.String(), map[string]string{"status": string(status)}, &resp)
	return resp.Contact, err
}

func (c *Client) DeleteContact(ctx context.Context, contactID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/contacts/"+contactID.String(), nil, nil)
}
