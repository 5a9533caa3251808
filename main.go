package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "diu-events-backend/cmd/api"
	authUsecase "diu-events-backend/internal/auth/usecase"
	notificationDomain "diu-events-backend/internal/notification/domain"
	notificationRepo "diu-events-backend/internal/notification/repository"
	"diu-events-backend/internal/notification/trigger"
	notificationUsecase "diu-events-backend/internal/notification/usecase"
	userDomain "diu-events-backend/internal/user/domain"
	userRepo "diu-events-backend/internal/user/repository"
	"diu-events-backend/internal/user/scheduler"
	userUsecase "diu-events-backend/internal/user/usecase"
	"diu-events-backend/pkg/config"
	"diu-events-backend/pkg/database"
	"diu-events-backend/pkg/fcm"
	"diu-events-backend/pkg/firebaseapp"
	"diu-events-backend/pkg/obs"
	"diu-events-backend/pkg/retry"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := obs.NewLogger(obs.LogConfig{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		App:    cfg.ServiceName,
		Env:    cfg.Environment,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing, err := obs.SetupOTel(ctx, obs.OTELConfig{
		Enable:      cfg.OTELEnabled,
		Endpoint:    cfg.OTELEndpoint,
		ServiceName: cfg.ServiceName,
		SampleRatio: cfg.OTELSampleRatio,
	})
	if err != nil {
		log.Fatal("failed to set up tracing", zap.Error(err))
	}

	// Firebase provides messaging, ID token verification and Firestore
	var (
		app             *firebase.App
		firestoreClient *firestore.Client
		sender          notificationUsecase.PushSender = disabledSender{log: log.Named("fcm")}
		verifier        authUsecase.TokenVerifier
	)
	if cfg.FirebaseEnabled() {
		app, err = firebaseapp.New(ctx, cfg.GoogleProjectID, cfg.FirebaseCredentials)
		if err != nil {
			log.Fatal("failed to initialize firebase", zap.Error(err))
		}

		fcmClient, err := fcm.NewClient(ctx, app, log.Named("fcm"))
		if err != nil {
			log.Warn("push notifications disabled", zap.Error(err))
		} else {
			sender = fcmClient
		}

		authClient, err := app.Auth(ctx)
		if err != nil {
			log.Fatal("failed to initialize firebase auth", zap.Error(err))
		}
		verifier = authUsecase.NewFirebaseVerifier(authClient)
	} else {
		log.Warn("firebase not configured, using HS256 tokens and no push delivery")
		verifier = authUsecase.NewJWTVerifier(cfg.JWTSecret)
	}

	// Initialize repositories (dependency injection)
	var (
		users         userRepo.UserRepository
		notifications notificationRepo.NotificationRepository
	)
	switch cfg.StoreBackend {
	case config.StoreFirestore:
		if app == nil {
			log.Fatal("firestore store requires GOOGLE_PROJECT_ID or FIREBASE_CREDENTIALS")
		}
		firestoreClient, err = app.Firestore(ctx)
		if err != nil {
			log.Fatal("failed to initialize firestore", zap.Error(err))
		}
		defer firestoreClient.Close()
		users = userRepo.NewFirestoreUserRepository(firestoreClient)
		notifications = notificationRepo.NewFirestoreNotificationRepository(firestoreClient)
	case config.StorePostgres:
		db, err := database.NewPostgresConnection(cfg)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := db.AutoMigrate(&userDomain.User{}, &notificationDomain.Notification{}); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
		users = userRepo.NewGormUserRepository(db)
		notifications = notificationRepo.NewGormNotificationRepository(db)
	default:
		log.Fatal("unknown STORE_BACKEND", zap.String("store", cfg.StoreBackend))
	}

	// Initialize use cases (dependency injection)
	userUc := userUsecase.NewUserUsecase(users)
	notificationUc := notificationUsecase.NewNotificationUsecase(notifications, users, sender, log.Named("notification"))

	// Initialize HTTP handler
	handler := api.NewHandler(verifier, userUc, notificationUc, cfg, log.Named("http"))

	// Create trigger: exactly one transport delivers each new record
	var inProcess *trigger.InProcessPublisher
	switch {
	case firestoreClient != nil && cfg.ListenFirestore:
		checkpoints := notificationRepo.NewFirestoreCheckpointStore(firestoreClient)
		listener := trigger.NewFirestoreListener(firestoreClient, checkpoints, notificationUc, log.Named("listener"))
		go func() {
			if err := listener.Start(ctx); err != nil {
				log.Error("firestore listener stopped", zap.Error(err))
			}
		}()
	case cfg.NotificationsTopic != "" && cfg.GoogleProjectID != "":
		// Accept a full resource name as well as the short topic name
		topicName := cfg.NotificationsTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		pubsubClient, err := trigger.NewPubSubClient(ctx, cfg.GoogleProjectID, cfg.FirebaseCredentials)
		if err != nil {
			log.Fatal("failed to initialize pubsub", zap.Error(err))
		}
		defer pubsubClient.Close()

		publisher := trigger.NewPubSubPublisher(pubsubClient, topicName)
		defer publisher.Stop()
		notificationUc.SetCreatedPublisher(publisher)

		subscriber := trigger.NewSubscriber(pubsubClient, topicName, notifications, notificationUc, log.Named("pubsub"))
		go func() {
			err := retry.Do(ctx, func() error { return subscriber.Start(ctx) }, retry.Policy{
				Name:    "pubsub_subscriber",
				Backoff: retry.ExpoJitter{Base: time.Second, Max: 30 * time.Second, Jitter: 0.2},
				OnAttempt: func(attempt int, err error) {
					log.Warn("notification subscriber interrupted, restarting", zap.Int("attempt", attempt+1), zap.Error(err))
				},
			})
			if err != nil && ctx.Err() == nil {
				log.Error("notification subscriber stopped", zap.Error(err))
			}
		}()
	default:
		inProcess = trigger.NewInProcessPublisher(notificationUc, log.Named("dispatch"))
		notificationUc.SetCreatedPublisher(inProcess)
	}

	// Token reaper
	reaper := userUsecase.NewTokenReaper(users, api.GetRuntimeTokenMaxAge, log.Named("reaper"))
	reaperScheduler := scheduler.NewTokenReaperScheduler(reaper, cfg.ReaperInterval, log.Named("reaper"))
	reaperScheduler.Start(ctx)

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- handler.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := handler.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}
	reaperScheduler.Stop()
	if inProcess != nil {
		inProcess.Wait()
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Warn("otel shutdown", zap.Error(err))
	}
}

var errPushDisabled = errors.New("push delivery is not configured")

// disabledSender stands in for FCM when Firebase is not configured.
type disabledSender struct {
	log *zap.Logger
}

func (s disabledSender) Send(_ context.Context, token string, msg *fcm.Message) (string, error) {
	s.log.Debug("push skipped", zap.String("title", msg.Title))
	return "", errPushDisabled
}

func (s disabledSender) SendMulticast(_ context.Context, tokens []string, msg *fcm.Message) (*fcm.MulticastResult, error) {
	s.log.Debug("multicast skipped", zap.Int("tokens", len(tokens)), zap.String("title", msg.Title))
	return nil, errPushDisabled
}
