package usecase

import (
	"context"
	"errors"
	"fmt"

	"diu-events-backend/internal/notification/domain"
	"diu-events-backend/internal/notification/repository"
	"diu-events-backend/pkg/callable"
	"diu-events-backend/pkg/fcm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	MsgUnauthenticated  = "User must be authenticated to send notifications"
	MsgPermissionDenied = "Only admins can send bulk notifications"
	MsgInvalidUserIDs   = "userIds must be a non-empty array"
	MsgBulkFailed       = "Failed to send bulk notifications"
	MsgNoTokens         = "No valid FCM tokens found"

	// maxConcurrentLookups bounds the parallel user reads of a bulk send.
	maxConcurrentLookups = 32
)

var ErrForbidden = errors.New("not allowed to notify this user")

var tracer = otel.Tracer("notification.usecase")

// notificationUsecase implements NotificationUsecase
type notificationUsecase struct {
	notifications repository.NotificationRepository
	users         UserDirectory
	sender        PushSender
	publisher     CreatedPublisher
	log           *zap.Logger
}

// NewNotificationUsecase creates a new instance of notificationUsecase
func NewNotificationUsecase(notifications repository.NotificationRepository, users UserDirectory, sender PushSender, log *zap.Logger) NotificationUsecase {
	return &notificationUsecase{
		notifications: notifications,
		users:         users,
		sender:        sender,
		log:           log,
	}
}

func (u *notificationUsecase) SetCreatedPublisher(p CreatedPublisher) {
	u.publisher = p
}

func (u *notificationUsecase) Create(ctx context.Context, callerID string, req domain.CreateRequest) (*domain.Notification, error) {
	if callerID != req.UserID {
		caller, err := u.users.FindByID(ctx, callerID)
		if err != nil {
			return nil, fmt.Errorf("find caller: %w", err)
		}
		if caller == nil || !caller.IsAdmin() {
			return nil, ErrForbidden
		}
	}

	n := &domain.Notification{
		UserID:     req.UserID,
		Title:      req.Title,
		Message:    req.Message,
		Type:       orDefault(req.Type, domain.DefaultType),
		EventID:    req.EventID,
		EventTitle: req.EventTitle,
	}
	if err := u.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if u.publisher != nil {
		if err := u.publisher.PublishCreated(ctx, n); err != nil {
			u.log.Warn("failed to announce notification", zap.String("notification_id", n.ID), zap.Error(err))
		}
	}
	return n, nil
}

func (u *notificationUsecase) DispatchCreated(ctx context.Context, n *domain.Notification) domain.Outcome {
	ctx, span := tracer.Start(ctx, "notification.dispatch_created",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("notification.id", n.ID),
			attribute.String("notification.user_id", n.UserID),
		),
	)
	defer span.End()

	outcome := u.dispatchCreated(ctx, n)
	span.SetAttributes(attribute.String("dispatch.outcome", outcome.Kind.String()))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	}
	return outcome
}

func (u *notificationUsecase) dispatchCreated(ctx context.Context, n *domain.Notification) domain.Outcome {
	user, err := u.users.FindByID(ctx, n.UserID)
	if err != nil {
		return domain.Failed(fmt.Errorf("find user %s: %w", n.UserID, err))
	}
	if user == nil {
		return domain.UserNotFound()
	}
	if !user.HasToken() {
		return domain.NoToken()
	}

	data := pushData(n.Type, n.EventID, n.EventTitle)
	data["notificationId"] = n.ID

	msg, err := buildMessage(n.Title, n.Message, data, true)
	if err != nil {
		return domain.Failed(err)
	}

	token := *user.FCMToken
	messageID, err := u.sender.Send(ctx, token, msg)
	if err != nil {
		if errors.Is(err, fcm.ErrInvalidToken) {
			u.dropTokens(ctx, []string{token})
		}
		return domain.Failed(err)
	}
	return domain.Sent(messageID)
}

func (u *notificationUsecase) SendBulk(ctx context.Context, callerID string, req domain.BulkRequest) (*domain.BulkResult, error) {
	ctx, span := tracer.Start(ctx, "notification.send_bulk")
	defer span.End()

	if callerID == "" {
		return nil, callable.NewError(callable.Unauthenticated, MsgUnauthenticated)
	}

	caller, err := u.users.FindByID(ctx, callerID)
	if err != nil {
		u.log.Error("error loading bulk caller", zap.String("caller", callerID), zap.Error(err))
		span.RecordError(err)
		return nil, callable.NewError(callable.Internal, MsgBulkFailed)
	}
	if caller == nil || !caller.IsAdmin() {
		return nil, callable.NewError(callable.PermissionDenied, MsgPermissionDenied)
	}

	if len(req.UserIDs) == 0 {
		return nil, callable.NewError(callable.InvalidArgument, MsgInvalidUserIDs)
	}
	span.SetAttributes(attribute.Int("bulk.user_ids", len(req.UserIDs)))

	result, err := u.sendBulk(ctx, req)
	if err != nil {
		u.log.Error("error sending bulk notifications", zap.String("caller", callerID), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, callable.NewError(callable.Internal, MsgBulkFailed)
	}
	return result, nil
}

func (u *notificationUsecase) sendBulk(ctx context.Context, req domain.BulkRequest) (*domain.BulkResult, error) {
	tokens, err := u.collectTokens(ctx, req.UserIDs)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return &domain.BulkResult{Success: false, Message: MsgNoTokens}, nil
	}

	msg, err := buildMessage(req.Title, req.Message, pushData(req.Type, req.EventID, req.EventTitle), false)
	if err != nil {
		return nil, err
	}

	res, err := u.sender.SendMulticast(ctx, tokens, msg)
	if res != nil {
		u.dropTokens(ctx, res.InvalidTokens)
	}
	if err != nil {
		// Nothing delivered: the caller may retry without duplicates.
		if res == nil || res.SuccessCount == 0 {
			return nil, fmt.Errorf("multicast: %w", err)
		}
		// Some devices already have the message, so report the counts
		// instead of an error the caller would answer with a resend.
		u.log.Error("bulk notifications partially sent",
			zap.Int("success", res.SuccessCount),
			zap.Int("failure", res.FailureCount),
			zap.Error(err),
		)
	} else {
		u.log.Info("bulk notifications sent",
			zap.Int("success", res.SuccessCount),
			zap.Int("failure", res.FailureCount),
		)
	}

	return &domain.BulkResult{
		Success:      true,
		SuccessCount: &res.SuccessCount,
		FailureCount: &res.FailureCount,
	}, nil
}

// collectTokens reads every user concurrently and returns the tokens of
// those that have one. A single failed read fails the whole call.
func (u *notificationUsecase) collectTokens(ctx context.Context, userIDs []string) ([]string, error) {
	found := make([]string, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, id := range userIDs {
		g.Go(func() error {
			user, err := u.users.FindByID(gctx, id)
			if err != nil {
				return fmt.Errorf("fetch user %s: %w", id, err)
			}
			if user != nil && user.HasToken() {
				found[i] = *user.FCMToken
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tokens := make([]string, 0, len(found))
	for _, t := range found {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

// dropTokens clears tokens the provider no longer accepts. Failures are
// logged only.
func (u *notificationUsecase) dropTokens(ctx context.Context, tokens []string) {
	for _, token := range tokens {
		if err := u.users.ClearTokenByValue(ctx, token); err != nil {
			u.log.Warn("failed to clear unregistered token", zap.Error(err))
		}
	}
	if len(tokens) > 0 {
		u.log.Info("cleared unregistered tokens", zap.Int("count", len(tokens)))
	}
}

func pushData(typ, eventID, eventTitle string) map[string]string {
	return map[string]string{
		"type":        orDefault(typ, domain.DefaultType),
		"eventId":     eventID,
		"eventTitle":  eventTitle,
		"clickAction": domain.ClickAction,
	}
}

// buildMessage applies the shared title default and platform blocks.
// Single-target pushes also bump the iOS badge.
func buildMessage(title, body string, data map[string]string, badge bool) (*fcm.Message, error) {
	apns := fcm.APNSConfig{Sound: fcm.SoundDefault}
	if badge {
		one := 1
		apns.Badge = &one
	}
	return fcm.NewMessage(orDefault(title, domain.DefaultTitle), body, data,
		fcm.AndroidConfig{
			Priority:  fcm.PriorityHigh,
			Sound:     fcm.SoundDefault,
			ChannelID: domain.AndroidChannelID,
		},
		apns,
	)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
