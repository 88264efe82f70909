package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rcliao/plura-proxy/internal/model"
	"github.com/rcliao/plura-proxy/internal/platform"
	"github.com/rcliao/plura-proxy/internal/proxy"
)

const maxBody = 1 << 20

// slackEnvelope is the outer body of a Slack Events API request.
type slackEnvelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge,omitempty"`
	EventID   string          `json:"event_id,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
}

type slackMessageEvent struct {
	Type    string      `json:"type"`
	Subtype string      `json:"subtype,omitempty"`
	User    string      `json:"user"`
	BotID   string      `json:"bot_id,omitempty"`
	Channel string      `json:"channel"`
	TS      string      `json:"ts"`
	Text    string      `json:"text"`
	Files   []slackFile `json:"files,omitempty"`
}

type slackFile struct {
	Name       string `json:"name"`
	URLPrivate string `json:"url_private"`
	Mimetype   string `json:"mimetype"`
}

// toNewMessage converts a Slack message event, or reports false for events
// that are not user-authored messages.
func (ev slackMessageEvent) toNewMessage() (model.NewMessage, bool) {
	if ev.Type != "message" || ev.BotID != "" || ev.User == "" || ev.Channel == "" || ev.TS == "" {
		return model.NewMessage{}, false
	}
	if ev.Subtype != "" && ev.Subtype != "file_share" {
		return model.NewMessage{}, false
	}
	msg := model.NewMessage{
		UserID:    ev.User,
		ChannelID: ev.Channel,
		MessageID: platform.SlackMessageID(ev.Channel, ev.TS),
		Text:      ev.Text,
	}
	for _, f := range ev.Files {
		msg.Attachments = append(msg.Attachments, model.Attachment{
			Name:     f.Name,
			URL:      f.URLPrivate,
			MimeType: f.Mimetype,
		})
	}
	return msg, true
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var env slackEnvelope
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event body")
		return
	}

	switch env.Type {
	case "url_verification":
		writeJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	case "event_callback":
	default:
		w.WriteHeader(http.StatusOK)
		return
	}

	var ev slackMessageEvent
	if err := json.Unmarshal(env.Event, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event")
		return
	}
	msg, ok := ev.toNewMessage()
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Slack wants an answer within three seconds; the proxy runs after.
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.process(context.WithoutCancel(r.Context()), env.EventID, msg)
	}()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) process(ctx context.Context, eventID string, msg model.NewMessage) {
	log := s.log.With().Str("event_id", eventID).Str("source_id", msg.MessageID).Logger()
	out, err := s.engine.HandleNewMessage(ctx, msg)
	if err != nil {
		if errors.Is(err, proxy.ErrShuttingDown) {
			log.Warn().Msg("message dropped during shutdown")
			return
		}
		log.Error().Err(err).Str("state", string(out.State)).Msg("proxy failed")
		return
	}
	log.Debug().
		Str("state", string(out.State)).
		Bool("duplicate", out.Duplicate).
		Msg("message handled")
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var a model.MessageAction
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid action body")
		return
	}
	if a.MessageID == "" || a.ActingUserID == "" {
		writeError(w, http.StatusBadRequest, "message_id and acting_user_id are required")
		return
	}

	res, err := s.engine.Dispatch(r.Context(), a)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Error().Err(err).Str("action", string(a.Kind)).Str("message_id", a.MessageID).Msg("action failed")
		}
		writeError(w, status, proxy.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
