package notification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"habitLoopAPI/internal/config"
	"habitLoopAPI/internal/types/notification"
)

// FCM caps a multicast at 500 tokens.
const maxMulticastTokens = 500

var ErrAllPushesFailed = errors.New("all push notifications failed")

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMProvider delivers pushes through Firebase Cloud Messaging.
type FCMProvider struct {
	client multicastSender
}

// NewFCMProvider prefers base64 service account JSON from cfg and falls back
// to a credentials file on disk.
func NewFCMProvider(ctx context.Context, cfg config.FCMConfig) (*FCMProvider, error) {
	var opt option.ClientOption

	if cfg.CredentialsJSON != "" {
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode FCM_SERVICE_ACCOUNT_JSON: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		slog.Info("initializing FCM from environment")
	} else {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("firebase credentials file %q unavailable and FCM_SERVICE_ACCOUNT_JSON not set: %w", cfg.CredentialsFile, err)
		}
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
		slog.Info("initializing FCM from file", "path", cfg.CredentialsFile)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMProvider{client: client}, nil
}

func (p *FCMProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, push *notification.Push) error {
	if len(tokens) == 0 {
		return nil
	}

	registration := make([]string, 0, len(tokens))
	for _, t := range tokens {
		registration = append(registration, t.Token)
	}

	var sent, failed int
	for start := 0; start < len(registration); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(registration))

		resp, err := p.client.SendEachForMulticast(ctx, buildMessage(registration[start:end], push))
		if err != nil {
			return fmt.Errorf("failed to send push: %w", err)
		}
		sent += resp.SuccessCount
		failed += resp.FailureCount

		for i, r := range resp.Responses {
			if !r.Success {
				slog.Debug("push to device failed", "token", registration[start+i], "error", r.Error)
			}
		}
	}

	slog.Info("push sent", "type", push.Type, "sent", sent, "failed", failed)
	if sent == 0 && failed > 0 {
		return ErrAllPushesFailed
	}
	return nil
}

func buildMessage(tokens []string, push *notification.Push) *messaging.MulticastMessage {
	data := make(map[string]string, len(push.Data)+1)
	for k, v := range push.Data {
		data[k] = fmt.Sprintf("%v", v)
	}
	data["type"] = string(push.Type)

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: push.Title,
			Body:  push.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}
