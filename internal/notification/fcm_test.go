package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitLoopAPI/internal/types/notification"
)

type fakeSender struct {
	calls   []*messaging.MulticastMessage
	failAll bool
	err     error
}

func (f *fakeSender) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, m)

	resp := &messaging.BatchResponse{}
	for range m.Tokens {
		if f.failAll {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Error: errors.New("unregistered")})
		} else {
			resp.SuccessCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true})
		}
	}
	return resp, nil
}

func tokens(n int) []notification.DeviceToken {
	out := make([]notification.DeviceToken, n)
	for i := range out {
		out[i] = notification.DeviceToken{Token: fmt.Sprintf("tok-%d", i), Platform: "ios"}
	}
	return out
}

func TestSendPushBatches(t *testing.T) {
	sender := &fakeSender{}
	p := &FCMProvider{client: sender}

	push := &notification.Push{
		Type:  notification.TypeFriendCheckedIn,
		Title: "alice checked in",
		Body:  "Read",
		Data:  map[string]any{"habit_id": "h1", "streak": 3},
	}
	require.NoError(t, p.SendPush(context.Background(), tokens(maxMulticastTokens+1), push))

	require.Len(t, sender.calls, 2)
	assert.Len(t, sender.calls[0].Tokens, maxMulticastTokens)
	assert.Equal(t, []string{fmt.Sprintf("tok-%d", maxMulticastTokens)}, sender.calls[1].Tokens)

	msg := sender.calls[0]
	assert.Equal(t, "alice checked in", msg.Notification.Title)
	assert.Equal(t, "3", msg.Data["streak"])
	assert.Equal(t, string(notification.TypeFriendCheckedIn), msg.Data["type"])
}

func TestSendPushNoTokens(t *testing.T) {
	sender := &fakeSender{}
	p := &FCMProvider{client: sender}

	require.NoError(t, p.SendPush(context.Background(), nil, &notification.Push{}))
	assert.Empty(t, sender.calls)
}

func TestSendPushFailures(t *testing.T) {
	p := &FCMProvider{client: &fakeSender{failAll: true}}
	assert.ErrorIs(t, p.SendPush(context.Background(), tokens(2), &notification.Push{}), ErrAllPushesFailed)

	p = &FCMProvider{client: &fakeSender{err: errors.New("unavailable")}}
	assert.ErrorContains(t, p.SendPush(context.Background(), tokens(1), &notification.Push{}), "unavailable")
}
