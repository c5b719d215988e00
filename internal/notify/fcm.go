package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/spec-kit/averias/internal/config"
	"github.com/spec-kit/averias/internal/domain"
)

const messagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// TokenSourceFromFile loads a service account key and returns a refreshing
// token source. Token exchanges share the notifier's timeout.
func TokenSourceFromFile(ctx context.Context, path string, timeout time.Duration) (oauth2.TokenSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fcm credentials: %w", err)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	creds, err := google.CredentialsFromJSON(ctx, raw, messagingScope)
	if err != nil {
		return nil, fmt.Errorf("parse fcm credentials: %w", err)
	}
	return creds.TokenSource, nil
}

// FCMNotifier sends Firebase Cloud Messaging HTTP v1 messages to every active
// device of the ticket's assignee.
type FCMNotifier struct {
	client    *resty.Client
	devices   DeviceStore
	tokens    oauth2.TokenSource
	projectID string
	baseURL   string
	logger    *zap.Logger
	now       func() time.Time
}

// NewFCMNotifier builds the notifier. The resty client carries the configured timeout.
func NewFCMNotifier(cfg config.NotificationConfig, devices DeviceStore, tokens oauth2.TokenSource, logger *zap.Logger) *FCMNotifier {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.FCMEndpoint, "/")).
		SetTimeout(cfg.Timeout()).
		SetHeader("Content-Type", "application/json; charset=UTF-8")
	return &FCMNotifier{
		client:    client,
		devices:   devices,
		tokens:    tokens,
		projectID: cfg.FCMProjectID,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

type fcmMessage struct {
	Message fcmBody `json:"message"`
}

type fcmBody struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data"`
	Android      fcmAndroid        `json:"android"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Notification struct {
		ClickAction string `json:"click_action"`
	} `json:"notification"`
}

type fcmError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

func (e fcmError) unregistered() bool {
	for _, d := range e.Error.Details {
		if d.ErrorCode == "UNREGISTERED" {
			return true
		}
	}
	return false
}

// NotifyTicketCreated pushes one message per device. An unassigned ticket or
// an assignee without devices is not an error.
func (n *FCMNotifier) NotifyTicketCreated(ctx context.Context, ticket domain.Ticket) (int, error) {
	if !ticket.IsAssigned() {
		n.logger.Debug("ticket unassigned; no push", zap.String("ticket_id", ticket.ID))
		return 0, nil
	}
	devices, err := n.devices.ListActiveByUser(ctx, *ticket.AssignedToID)
	if err != nil {
		return 0, fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		n.logger.Debug("assignee has no active devices",
			zap.String("ticket_id", ticket.ID),
			zap.String("assignee_id", *ticket.AssignedToID))
		return 0, nil
	}

	token, err := n.accessToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("fcm access token: %w", err)
	}

	path := fmt.Sprintf("/v1/projects/%s/messages:send", n.projectID)
	sent := 0
	var errs []error
	for _, device := range devices {
		if strings.TrimSpace(device.Token) == "" {
			continue
		}
		var failure fcmError
		resp, err := n.client.R().
			SetContext(ctx).
			SetAuthToken(token.AccessToken).
			SetBody(n.message(ticket, device.Token)).
			SetError(&failure).
			Post(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if resp.IsSuccess() {
			sent++
			if err := n.devices.Touch(ctx, device.Token, n.now()); err != nil {
				n.logger.Warn("touch device failed", zap.String("device_id", device.ID), zap.Error(err))
			}
			continue
		}
		if resp.StatusCode() == http.StatusNotFound || failure.unregistered() {
			if err := n.devices.Deactivate(ctx, device.Token); err != nil {
				errs = append(errs, err)
			}
			n.logger.Info("deactivated unregistered device",
				zap.String("ticket_id", ticket.ID),
				zap.String("device_id", device.ID))
			continue
		}
		errs = append(errs, fmt.Errorf("fcm %d: %s", resp.StatusCode(), failure.Error.Message))
	}
	return sent, errors.Join(errs...)
}

// accessToken bounds the token source by ctx; oauth2.TokenSource takes none.
func (n *FCMNotifier) accessToken(ctx context.Context) (*oauth2.Token, error) {
	type result struct {
		token *oauth2.Token
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		token, err := n.tokens.Token()
		ch <- result{token, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.token, r.err
	}
}

func (n *FCMNotifier) message(ticket domain.Ticket, token string) fcmMessage {
	msg := fcmMessage{Message: fcmBody{
		Token: token,
		Notification: fcmNotification{
			Title: "Nuevo ticket " + ticket.Number,
			Body:  pushBody(ticket),
		},
		Data: map[string]string{
			"ticket_id":  ticket.ID,
			"ticket_url": fmt.Sprintf("%s/tickets/%s/", n.baseURL, ticket.ID),
			"status":     string(ticket.Status),
		},
	}}
	msg.Message.Android.Notification.ClickAction = "FLUTTER_NOTIFICATION_CLICK"
	return msg
}

func pushBody(ticket domain.Ticket) string {
	loc := ticket.LocationName
	if ticket.LocationCode != "" {
		loc = ticket.LocationCode + " " + loc
	}
	return strings.TrimSpace(loc) + " - " + ticket.CategoryName
}
