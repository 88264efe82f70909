package platform

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rcliao/plura-proxy/internal/model"
)

// DefaultSlackURL is the Slack Web API base.
const DefaultSlackURL = "https://slack.com/api/"

// SlackConfig configures the Slack Web API client.
type SlackConfig struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Slack implements Adapter over the Slack Web API.
type Slack struct {
	client *resty.Client
}

// NewSlack builds a Slack adapter. Posting as a member needs the
// chat:write.customize scope; deleting user messages needs a token allowed to
// remove them.
func NewSlack(cfg SlackConfig) *Slack {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultSlackURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := resty.New().
		SetBaseURL(strings.TrimSuffix(base, "/")).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetAuthToken(cfg.Token).
		SetTimeout(cfg.Timeout)

	return &Slack{client: c}
}

type slackAttachment struct {
	Fallback  string `json:"fallback"`
	Title     string `json:"title,omitempty"`
	TitleLink string `json:"title_link,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

type postMessageRequest struct {
	Channel     string            `json:"channel"`
	Text        string            `json:"text"`
	Username    string            `json:"username,omitempty"`
	IconURL     string            `json:"icon_url,omitempty"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
	UnfurlLinks bool              `json:"unfurl_links"`
}

type messageRef struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
	Text    string `json:"text,omitempty"`
}

type ephemeralRequest struct {
	Channel string `json:"channel"`
	User    string `json:"user"`
	Text    string `json:"text"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

func (s *Slack) call(ctx context.Context, method string, body interface{}) (*slackResponse, error) {
	var out slackResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/" + method)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &Error{Op: method, Kind: ErrPermanent, Err: ctx.Err()}
		}
		return nil, &Error{Op: method, Kind: ErrTransient, Err: err}
	}

	status := resp.StatusCode()
	if status == http.StatusTooManyRequests {
		return nil, &Error{Op: method, Code: http.StatusText(status), Kind: ErrRateLimited}
	}
	if status >= 500 {
		return nil, &Error{Op: method, Code: http.StatusText(status), Kind: ErrTransient}
	}
	if status >= 400 {
		return nil, &Error{Op: method, Code: http.StatusText(status), Kind: ErrPermanent}
	}
	if !out.OK {
		return nil, &Error{Op: method, Code: out.Error, Kind: classifySlack(out.Error)}
	}
	return &out, nil
}

// SlackMessageID is the proxy's id for a Slack message. A ts is only unique
// within its channel, so the channel is part of the id.
func SlackMessageID(channelID, ts string) string {
	return channelID + ":" + ts
}

// slackTS recovers the ts from an id made by SlackMessageID.
func slackTS(messageID string) string {
	if i := strings.LastIndexByte(messageID, ':'); i >= 0 {
		return messageID[i+1:]
	}
	return messageID
}

func classifySlack(code string) error {
	switch code {
	case "message_not_found":
		return ErrAlreadyDeleted
	case "cant_delete_message", "cant_update_message", "edit_window_closed",
		"not_authed", "invalid_auth", "account_inactive", "token_revoked",
		"missing_scope", "channel_not_found", "not_in_channel", "is_archived",
		"restricted_action":
		return ErrForbidden
	case "ratelimited":
		return ErrRateLimited
	case "internal_error", "fatal_error", "service_unavailable", "request_timeout":
		return ErrTransient
	}
	return ErrPermanent
}

func (s *Slack) PostAsMember(ctx context.Context, channelID string, member model.MemberProfile, text string, attachments []model.Attachment) (string, error) {
	req := postMessageRequest{
		Channel:  channelID,
		Text:     text,
		Username: member.Name,
		IconURL:  member.AvatarURL,
	}
	for _, a := range attachments {
		sa := slackAttachment{Fallback: a.Name, Title: a.Name, TitleLink: a.URL}
		if sa.Fallback == "" {
			sa.Fallback = a.URL
		}
		if strings.HasPrefix(a.MimeType, "image/") {
			sa.ImageURL = a.URL
		}
		req.Attachments = append(req.Attachments, sa)
	}

	resp, err := s.call(ctx, "chat.postMessage", req)
	if err != nil {
		return "", err
	}
	return SlackMessageID(channelID, resp.TS), nil
}

func (s *Slack) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	_, err := s.call(ctx, "chat.delete", messageRef{Channel: channelID, TS: slackTS(messageID)})
	return err
}

func (s *Slack) EditMessage(ctx context.Context, channelID, messageID, text string) error {
	_, err := s.call(ctx, "chat.update", messageRef{Channel: channelID, TS: slackTS(messageID), Text: text})
	return err
}

// EditAuthor is unsupported: chat.update cannot change a message's username.
func (s *Slack) EditAuthor(ctx context.Context, channelID, messageID string, member model.MemberProfile) error {
	return &Error{Op: "chat.update", Kind: ErrUnsupported}
}

func (s *Slack) Notify(ctx context.Context, channelID, userID, text string) error {
	_, err := s.call(ctx, "chat.postEphemeral", ephemeralRequest{Channel: channelID, User: userID, Text: text})
	return err
}
