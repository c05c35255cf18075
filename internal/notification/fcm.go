package notification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMService struct {
	client *messaging.Client
}

// NewFCMService builds a Firebase messaging client. Base64 encoded service
// account JSON takes precedence over the credentials file.
func NewFCMService(ctx context.Context, encodedCreds, credentialsFile string) (*FCMService, error) {
	var opt option.ClientOption

	switch {
	case encodedCreds != "":
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("FCM: initializing from encoded service account")
	case credentialsFile != "":
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s: %w", credentialsFile, err)
		}
		opt = option.WithCredentialsFile(credentialsFile)
		log.Printf("FCM: initializing from %s", credentialsFile)
	default:
		return nil, errors.New("no firebase credentials configured")
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendPush sends one message per token. It fails only when every send fails.
func (s *FCMService) SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]any) error {
	if len(tokens) == 0 {
		return nil
	}

	stringData := make(map[string]string, len(data))
	for k, v := range data {
		stringData[k] = fmt.Sprintf("%v", v)
	}

	sent, failed := 0, 0
	for _, t := range tokens {
		_, err := s.client.Send(ctx, buildMessage(t, title, body, stringData))
		if err != nil {
			log.Printf("FCM: failed to send to %s token: %v", t.Platform, err)
			failed++
			continue
		}
		sent++
	}

	log.Printf("FCM: sent %d messages, %d failed", sent, failed)

	if sent == 0 && failed > 0 {
		return fmt.Errorf("all %d push notifications failed", failed)
	}
	return nil
}

func buildMessage(t DeviceToken, title, body string, data map[string]string) *messaging.Message {
	msg := &messaging.Message{
		Token: t.Token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	switch t.Platform {
	case "ios":
		msg.APNS = &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		}
	case "web":
		msg.Webpush = &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{Title: title, Body: body},
		}
	default:
		msg.Android = &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		}
	}
	return msg
}
