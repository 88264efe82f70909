package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/rcliao/plura-proxy/internal/model"
)

// FakeMessage is a message held by Fake.
type FakeMessage struct {
	ChannelID   string
	ID          string
	Text        string
	Author      model.MemberProfile
	Attachments []model.Attachment
}

// FakeNotice is a notification sent through Fake.
type FakeNotice struct {
	ChannelID string
	UserID    string
	Text      string
}

// Fake is an in-memory Adapter for tests. Fail* hooks, when set, run before
// the call and may return an error to inject.
type Fake struct {
	mu       sync.Mutex
	seq      int
	messages map[string]*FakeMessage

	Posts   []FakeMessage
	Deletes []string
	Edits   []string
	Notices []FakeNotice

	// EditAuthorSupported makes EditAuthor succeed instead of returning ErrUnsupported.
	EditAuthorSupported bool

	FailPost   func(channelID string) error
	FailDelete func(channelID, messageID string) error
	FailEdit   func(channelID, messageID string) error
	FailNotify func(channelID, userID string) error
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{messages: make(map[string]*FakeMessage)}
}

func fakeKey(channelID, messageID string) string {
	return channelID + "/" + messageID
}

// Seed places a user message on the fake platform.
func (f *Fake) Seed(channelID, messageID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[fakeKey(channelID, messageID)] = &FakeMessage{ChannelID: channelID, ID: messageID, Text: text}
}

// Message returns a copy of a live message.
func (f *Fake) Message(channelID, messageID string) (FakeMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[fakeKey(channelID, messageID)]
	if !ok {
		return FakeMessage{}, false
	}
	return *m, true
}

// PostCount returns how many messages were posted.
func (f *Fake) PostCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Posts)
}

// NoticeCount returns how many notifications were sent.
func (f *Fake) NoticeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Notices)
}

func (f *Fake) PostAsMember(ctx context.Context, channelID string, member model.MemberProfile, text string, attachments []model.Attachment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailPost != nil {
		if err := f.FailPost(channelID); err != nil {
			return "", err
		}
	}
	f.seq++
	m := FakeMessage{
		ChannelID:   channelID,
		ID:          fmt.Sprintf("posted-%d", f.seq),
		Text:        text,
		Author:      member,
		Attachments: attachments,
	}
	f.messages[fakeKey(channelID, m.ID)] = &m
	f.Posts = append(f.Posts, m)
	return m.ID, nil
}

func (f *Fake) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete != nil {
		if err := f.FailDelete(channelID, messageID); err != nil {
			return err
		}
	}
	k := fakeKey(channelID, messageID)
	if _, ok := f.messages[k]; !ok {
		return &Error{Op: "delete", Kind: ErrAlreadyDeleted}
	}
	delete(f.messages, k)
	f.Deletes = append(f.Deletes, messageID)
	return nil
}

func (f *Fake) EditMessage(ctx context.Context, channelID, messageID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailEdit != nil {
		if err := f.FailEdit(channelID, messageID); err != nil {
			return err
		}
	}
	m, ok := f.messages[fakeKey(channelID, messageID)]
	if !ok {
		return &Error{Op: "edit", Kind: ErrAlreadyDeleted}
	}
	m.Text = text
	f.Edits = append(f.Edits, messageID)
	return nil
}

func (f *Fake) EditAuthor(ctx context.Context, channelID, messageID string, member model.MemberProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.EditAuthorSupported {
		return &Error{Op: "edit_author", Kind: ErrUnsupported}
	}
	m, ok := f.messages[fakeKey(channelID, messageID)]
	if !ok {
		return &Error{Op: "edit_author", Kind: ErrAlreadyDeleted}
	}
	m.Author = member
	return nil
}

func (f *Fake) Notify(ctx context.Context, channelID, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNotify != nil {
		if err := f.FailNotify(channelID, userID); err != nil {
			return err
		}
	}
	f.Notices = append(f.Notices, FakeNotice{ChannelID: channelID, UserID: userID, Text: text})
	return nil
}
