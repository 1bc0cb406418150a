package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"notes-bot/internal/config"
	"notes-bot/internal/interaction"

	"github.com/google/uuid"
)

// APIError is a non-2xx response from the platform's REST API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the platform's REST API. It implements Messenger and also
// carries the interaction-callback endpoints the gateway responder uses.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client

	limiter *RateLimiter

	ownerMu  sync.RWMutex
	ownerIDs map[string]string
}

// NewClient creates a REST client from the loaded config.
func NewClient() *Client {
	return &Client{
		Token:   config.Conf.Token,
		BaseURL: config.Conf.APIBaseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:  NewRateLimiter(config.Conf.RequestsPerSecond),
		ownerIDs: make(map[string]string),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Wire shapes for the message surface.

type apiEmbedAuthor struct {
	Name string `json:"name"`
}

type apiEmbedFooter struct {
	Text string `json:"text"`
}

type apiEmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type apiEmbed struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Color       int             `json:"color,omitempty"`
	Author      *apiEmbedAuthor `json:"author,omitempty"`
	Footer      *apiEmbedFooter `json:"footer,omitempty"`
	Fields      []apiEmbedField `json:"fields,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
}

type apiComponent struct {
	Type       int            `json:"type"`
	Style      int            `json:"style,omitempty"`
	Label      string         `json:"label,omitempty"`
	CustomID   string         `json:"custom_id,omitempty"`
	Components []apiComponent `json:"components,omitempty"`
}

type messagePayload struct {
	Embeds     []apiEmbed     `json:"embeds,omitempty"`
	Components []apiComponent `json:"components,omitempty"`
	Nonce      string         `json:"nonce,omitempty"`
}

type messageResult struct {
	ID string `json:"id"`
}

type apiChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

const (
	componentActionRow = 1
	componentButton    = 2
	componentTextInput = 4

	buttonStylePrimary = 1

	textInputShort     = 1
	textInputParagraph = 2

	channelTypeText         = 0
	channelTypeAnnouncement = 5
)

func buildPayload(msg OutgoingMessage) messagePayload {
	var payload messagePayload

	if msg.Embed != nil {
		e := apiEmbed{
			Title:       msg.Embed.Title,
			Description: msg.Embed.Description,
			Color:       msg.Embed.Color,
		}
		if msg.Embed.AuthorName != "" {
			e.Author = &apiEmbedAuthor{Name: msg.Embed.AuthorName}
		}
		if msg.Embed.FooterText != "" {
			e.Footer = &apiEmbedFooter{Text: msg.Embed.FooterText}
		}
		for _, f := range msg.Embed.Fields {
			e.Fields = append(e.Fields, apiEmbedField{Name: f.Name, Value: f.Value})
		}
		if !msg.Embed.Timestamp.IsZero() {
			e.Timestamp = msg.Embed.Timestamp.UTC().Format(time.RFC3339)
		}
		payload.Embeds = []apiEmbed{e}
	}

	if len(msg.Buttons) > 0 {
		row := apiComponent{Type: componentActionRow}
		for _, b := range msg.Buttons {
			row.Components = append(row.Components, apiComponent{
				Type:     componentButton,
				Style:    buttonStylePrimary,
				Label:    b.Label,
				CustomID: b.Token,
			})
		}
		payload.Components = []apiComponent{row}
	}

	return payload
}

// SendMessage posts a message and returns the platform-assigned message ID.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (string, error) {
	payload := buildPayload(msg)
	payload.Nonce = uuid.NewString()

	var result messageResult
	if err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", payload, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// EditMessage replaces the embed and components of an existing message.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, msg OutgoingMessage) error {
	payload := buildPayload(msg)
	return c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID, payload, nil)
}

// DeleteMessage removes a message. Returns ErrNotFound when it is already gone.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID+"/messages/"+messageID, nil, nil)
}

// Channel fetches channel metadata.
func (c *Client) Channel(ctx context.Context, channelID string) (ChannelInfo, error) {
	var ch apiChannel
	if err := c.do(ctx, http.MethodGet, "/channels/"+channelID, nil, &ch); err != nil {
		return ChannelInfo{}, err
	}
	return ChannelInfo{
		ID:   ch.ID,
		Name: ch.Name,
		Text: ch.Type == channelTypeText || ch.Type == channelTypeAnnouncement,
	}, nil
}

// GuildOwnerID returns the owner of a guild, cached after the first fetch.
// Ownership changes are rare enough that a stale entry only lasts until the
// process restarts.
func (c *Client) GuildOwnerID(ctx context.Context, guildID string) (string, error) {
	c.ownerMu.RLock()
	ownerID, ok := c.ownerIDs[guildID]
	c.ownerMu.RUnlock()
	if ok {
		return ownerID, nil
	}

	var guild struct {
		OwnerID string `json:"owner_id"`
	}
	if err := c.do(ctx, http.MethodGet, "/guilds/"+guildID, nil, &guild); err != nil {
		return "", err
	}

	c.ownerMu.Lock()
	c.ownerIDs[guildID] = guild.OwnerID
	c.ownerMu.Unlock()
	return guild.OwnerID, nil
}

const roleColor = 0x3498DB

// Channel permission bits granted to management roles in the notes channel:
// view, send, manage messages, embed links, attach files, read history.
const roleChannelAllow = 1<<10 | 1<<11 | 1<<13 | 1<<14 | 1<<15 | 1<<16

// The overwrite target type tag for a role.
const overwriteTypeRole = 0

// CreateRole creates a guild role with no guild-wide permissions; access is
// granted per channel via AllowRoleInChannel.
func (c *Client) CreateRole(ctx context.Context, guildID, name string) (string, error) {
	payload := struct {
		Name        string `json:"name"`
		Color       int    `json:"color"`
		Permissions string `json:"permissions"`
	}{Name: name, Color: roleColor, Permissions: "0"}

	var role struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/guilds/"+guildID+"/roles", payload, &role); err != nil {
		return "", err
	}
	return role.ID, nil
}

// AllowRoleInChannel adds a permission overwrite so the role can post and
// manage messages in one channel.
func (c *Client) AllowRoleInChannel(ctx context.Context, channelID, roleID string) error {
	payload := struct {
		Type  int    `json:"type"`
		Allow string `json:"allow"`
		Deny  string `json:"deny"`
	}{Type: overwriteTypeRole, Allow: strconv.Itoa(roleChannelAllow), Deny: "0"}

	return c.do(ctx, http.MethodPut, "/channels/"+channelID+"/permissions/"+roleID, payload, nil)
}

// AddMemberRole puts a guild member into a role.
func (c *Client) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.do(ctx, http.MethodPut, "/guilds/"+guildID+"/members/"+userID+"/roles/"+roleID, nil, nil)
}

// RemoveMemberRole takes a guild member out of a role.
func (c *Client) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.do(ctx, http.MethodDelete, "/guilds/"+guildID+"/members/"+userID+"/roles/"+roleID, nil, nil)
}

// Interaction callbacks. The response type tags mirror the platform's
// interaction protocol.
const (
	callbackMessage      = 4
	callbackAutocomplete = 8
	callbackModal        = 9
)

const flagEphemeral = 1 << 6

type interactionCallback struct {
	Type int         `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func (c *Client) respond(ctx context.Context, interactionID, interactionToken string, payload interactionCallback) error {
	path := "/interactions/" + interactionID + "/" + interactionToken + "/callback"
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

// RespondMessage replies to an interaction with plain content.
func (c *Client) RespondMessage(ctx context.Context, interactionID, interactionToken, content string, private bool) error {
	data := struct {
		Content string `json:"content"`
		Flags   int    `json:"flags,omitempty"`
	}{Content: content}
	if private {
		data.Flags = flagEphemeral
	}
	return c.respond(ctx, interactionID, interactionToken, interactionCallback{Type: callbackMessage, Data: data})
}

// RespondModal opens a data-entry prompt for an interaction.
func (c *Client) RespondModal(ctx context.Context, interactionID, interactionToken string, modal interaction.Modal) error {
	type apiTextInput struct {
		Type     int    `json:"type"`
		Style    int    `json:"style"`
		Label    string `json:"label"`
		CustomID string `json:"custom_id"`
		Value    string `json:"value,omitempty"`
		Required bool   `json:"required"`
	}
	type textInputRow struct {
		Type       int            `json:"type"`
		Components []apiTextInput `json:"components"`
	}
	data := struct {
		CustomID   string         `json:"custom_id"`
		Title      string         `json:"title"`
		Components []textInputRow `json:"components"`
	}{CustomID: modal.Token, Title: modal.Title}

	for _, in := range modal.Inputs {
		style := textInputShort
		if in.Paragraph {
			style = textInputParagraph
		}
		input := apiTextInput{
			Type:     componentTextInput,
			Style:    style,
			Label:    in.Label,
			CustomID: in.ID,
			Value:    in.Value,
			Required: in.Required,
		}
		data.Components = append(data.Components, textInputRow{Type: componentActionRow, Components: []apiTextInput{input}})
	}

	return c.respond(ctx, interactionID, interactionToken, interactionCallback{Type: callbackModal, Data: data})
}

// RespondChoices answers an autocomplete request.
func (c *Client) RespondChoices(ctx context.Context, interactionID, interactionToken string, choices []interaction.Choice) error {
	type apiChoice struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	data := struct {
		Choices []apiChoice `json:"choices"`
	}{Choices: make([]apiChoice, 0, len(choices))}
	for _, ch := range choices {
		data.Choices = append(data.Choices, apiChoice{Name: ch.Name, Value: ch.Value})
	}
	return c.respond(ctx, interactionID, interactionToken, interactionCallback{Type: callbackAutocomplete, Data: data})
}
