package request

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/grovetools/inbox/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counts struct {
	Replies int `json:"replies"`
}

func kindOf[T any](s State[T]) string {
	return Match(s,
		func() string { return "empty" },
		func() string { return "loading" },
		func(T) string { return "success" },
		func(*errors.InboxError) string { return "failed" },
	)
}

func TestZeroValueIsEmpty(t *testing.T) {
	var s State[counts]
	assert.Equal(t, KindEmpty, s.Kind())
	assert.Equal(t, "empty", kindOf(s))
	_, ok := s.Data()
	assert.False(t, ok)
	assert.Nil(t, s.Err())

	var slot Slot[counts]
	assert.Equal(t, KindEmpty, slot.Load().Kind())
}

func TestWrapSuccess(t *testing.T) {
	s := Wrap(context.Background(), func(context.Context) (counts, error) {
		return counts{Replies: 4}, nil
	})
	require.Equal(t, KindSuccess, s.Kind())
	data, ok := s.Data()
	require.True(t, ok)
	assert.Equal(t, 4, data.Replies)
	assert.Nil(t, s.Err())
}

func TestWrapFailure(t *testing.T) {
	t.Run("foreign error is wrapped as internal", func(t *testing.T) {
		s := Wrap(context.Background(), func(context.Context) (counts, error) {
			return counts{}, fmt.Errorf("connection reset")
		})
		require.Equal(t, KindFailed, s.Kind())
		assert.Equal(t, errors.ErrCodeInternal, s.Err().Code)
		assert.Contains(t, s.Err().Message, "connection reset")
	})

	t.Run("coded error is preserved", func(t *testing.T) {
		s := Wrap(context.Background(), func(context.Context) (counts, error) {
			return counts{}, errors.HTTPStatus("/user/unread_count", 503)
		})
		require.Equal(t, KindFailed, s.Kind())
		assert.Equal(t, errors.ErrCodeHTTPStatus, s.Err().Code)
		assert.Equal(t, 503, s.Err().Details["status"])
	})

	t.Run("panic is captured", func(t *testing.T) {
		var s State[counts]
		assert.NotPanics(t, func() {
			s = Wrap(context.Background(), func(context.Context) (counts, error) {
				panic("boom")
			})
		})
		require.Equal(t, KindFailed, s.Kind())
		assert.Contains(t, s.Err().Message, "boom")
	})
}

func TestFromResult(t *testing.T) {
	assert.Equal(t, KindSuccess, FromResult(counts{Replies: 1}, nil).Kind())

	failed := FromResult(counts{}, errors.New(errors.ErrCodeAPI, "rate_limit_error"))
	assert.Equal(t, KindFailed, failed.Kind())
	assert.Equal(t, errors.ErrCodeAPI, failed.Err().Code)
}

func TestSlotStoreReplacesState(t *testing.T) {
	var slot Slot[counts]
	slot.Store(Loading[counts]())
	assert.Equal(t, "loading", kindOf(slot.Load()))

	slot.Store(Success(counts{Replies: 2}))
	data, ok := slot.Load().Data()
	require.True(t, ok)
	assert.Equal(t, 2, data.Replies)
}

func TestJSONRoundTripKeepsCase(t *testing.T) {
	cases := []State[counts]{
		Empty[counts](),
		Loading[counts](),
		Success(counts{Replies: 7}),
		Failed[counts](errors.API("/user/unread_count", 400, "not_logged_in")),
	}
	for _, in := range cases {
		t.Run(in.Kind().String(), func(t *testing.T) {
			b, err := json.Marshal(in)
			require.NoError(t, err)

			var out State[counts]
			require.NoError(t, json.Unmarshal(b, &out))
			assert.Equal(t, in.Kind(), out.Kind())
			if in.Kind() == KindFailed {
				assert.Equal(t, errors.ErrCodeNotLoggedIn, out.Err().Code)
			}
		})
	}

	var out State[counts]
	assert.Error(t, json.Unmarshal([]byte(`{"state":"stale"}`), &out))
	assert.Error(t, json.Unmarshal([]byte(`{"state":"success"}`), &out))
}
