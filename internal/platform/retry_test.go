package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/plura-proxy/internal/model"
)

func fastRetry(max int) RetryConfig {
	return RetryConfig{
		MaxRetries:      max,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		RPS:             1000,
		Burst:           100,
	}
}

func TestRetrying_PostRecoversFromRateLimit(t *testing.T) {
	fake := NewFake()
	calls := 0
	fake.FailPost = func(string) error {
		calls++
		if calls < 3 {
			return &Error{Op: "post", Code: "ratelimited", Kind: ErrRateLimited}
		}
		return nil
	}
	r := NewRetrying(fake, fastRetry(4), zerolog.Nop())

	id, err := r.PostAsMember(context.Background(), "C1", model.MemberProfile{Name: "Jordan"}, "hi", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, fake.PostCount())
}

func TestRetrying_PostNotRetriedOnTransient(t *testing.T) {
	fake := NewFake()
	calls := 0
	fake.FailPost = func(string) error {
		calls++
		return &Error{Op: "post", Kind: ErrTransient, Err: context.DeadlineExceeded}
	}
	r := NewRetrying(fake, fastRetry(4), zerolog.Nop())

	_, err := r.PostAsMember(context.Background(), "C1", model.MemberProfile{Name: "Jordan"}, "hi", nil)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, 1, calls)
}

func TestRetrying_DeleteRecoversFromTransient(t *testing.T) {
	fake := NewFake()
	fake.Seed("C1", "m1", "hi")
	calls := 0
	fake.FailDelete = func(string, string) error {
		calls++
		if calls < 2 {
			return &Error{Op: "delete", Kind: ErrTransient}
		}
		return nil
	}
	r := NewRetrying(fake, fastRetry(4), zerolog.Nop())

	require.NoError(t, r.DeleteMessage(context.Background(), "C1", "m1"))
	assert.Equal(t, 2, calls)
}

func TestRetrying_DoesNotRetryPermanent(t *testing.T) {
	fake := NewFake()
	calls := 0
	fake.FailDelete = func(string, string) error {
		calls++
		return &Error{Op: "delete", Code: "cant_delete_message", Kind: ErrForbidden}
	}
	r := NewRetrying(fake, fastRetry(4), zerolog.Nop())

	err := r.DeleteMessage(context.Background(), "C1", "m1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, 1, calls)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "cant_delete_message", perr.Code)
}

func TestRetrying_AlreadyDeletedPassesThrough(t *testing.T) {
	r := NewRetrying(NewFake(), fastRetry(4), zerolog.Nop())
	err := r.DeleteMessage(context.Background(), "C1", "gone")
	assert.ErrorIs(t, err, ErrAlreadyDeleted)
}

func TestRetrying_GivesUpAfterMaxRetries(t *testing.T) {
	fake := NewFake()
	calls := 0
	fake.FailEdit = func(string, string) error {
		calls++
		return &Error{Op: "edit", Kind: ErrTransient}
	}
	r := NewRetrying(fake, fastRetry(2), zerolog.Nop())

	err := r.EditMessage(context.Background(), "C1", "m1", "x")
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, 3, calls)
}

func TestRetrying_StopsOnCancelledContext(t *testing.T) {
	fake := NewFake()
	fake.FailNotify = func(string, string) error {
		return &Error{Op: "notify", Kind: ErrTransient}
	}
	r := NewRetrying(fake, RetryConfig{MaxRetries: 50, InitialInterval: 50 * time.Millisecond, RPS: 1000, Burst: 10}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := r.Notify(ctx, "C1", "U1", "x")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "chat.delete", Code: "message_not_found", Kind: ErrAlreadyDeleted}
	assert.Equal(t, "platform chat.delete: message already deleted (message_not_found)", err.Error())
	assert.ErrorIs(t, err, ErrAlreadyDeleted)
	assert.NotErrorIs(t, err, ErrTransient)

	limited := &Error{Op: "chat.postMessage", Kind: ErrRateLimited}
	assert.ErrorIs(t, limited, ErrRateLimited)
	assert.ErrorIs(t, limited, ErrTransient)
}
