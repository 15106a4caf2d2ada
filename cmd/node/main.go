package main

import (
	"context"
	"crypto/ed25519"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"private-groups/domain"
	"private-groups/domain/event"
	"private-groups/errors"
	"private-groups/internal"
	"private-groups/moderation"
	"private-groups/observability"
	"private-groups/repositories"
	"private-groups/runtime"
	"private-groups/runtime/workers"
	"private-groups/services"
	"private-groups/sink"
	"private-groups/transport"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the node and blocks until SIGINT or SIGTERM.
func run() error {
	var (
		contacts   contactFlags
		inviteTo   = flag.String("invite", "", "create a private group with this name and invite every contact")
		inviteText = flag.String("text", "", "text attached to the invitations")
		autoAccept = flag.Bool("auto-accept", false, "accept every invitation received")
	)
	flag.Var(&contacts, "contact", "contact as name=<base58 public key>@<contact group id>, repeatable")
	flag.Parse()

	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	key, err := config.IdentityKey()
	if err != nil {
		return err
	}
	censorChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Protocol pipeline
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	stores := runtime.Stores{
		Sessions: repositories.NewSessionRepository(log),
		Messages: repositories.NewMessageRepository(log),
		Groups:   repositories.NewGroupRepository(log),
		Contacts: repositories.NewContactRepository(),
		Outbox:   repositories.NewOutboxRepository(log),
	}
	notifications := make(chan event.Notification, config.BufferSize)
	local := domain.NewAuthor(config.IdentityName, key.Public().(ed25519.PublicKey))
	dispatcher := runtime.NewDispatcher(db, log, local, stores, notifications, config.DispatchMaxRetries).
		WithMetrics(metrics)
	svc := services.NewInvitationService(db, log, dispatcher, stores, key, config.IdentityName)
	log.Info("Node identity", "name", local.Name, "public_key", base58.Encode(local.PublicKey))

	// 4. Transport
	outbound, err := transport.NewSpool(config.SpoolOutboundDir, log)
	if err != nil {
		return err
	}
	inbound, err := transport.NewSpool(config.SpoolInboundDir, log)
	if err != nil {
		return err
	}

	// 5. Notification sinks
	moderator, err := moderation.NewModerator(config.CensoredWords, censorChar)
	if err != nil {
		return fmt.Errorf("moderator: %w", err)
	}
	responder := services.NewAutoResponder(svc, config.BufferSize, *autoAccept, log)
	fanout := workers.NewNotificationFanout(log, notifications, config.SinkTimeout).
		Add(sink.NewModeratedSink(sink.NewLogSink(log), moderator, log), responder)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = bootstrap(ctx, svc, contacts, *inviteTo, *inviteText); err != nil {
		return err
	}

	// 7. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		fanout,
		responder,
		workers.NewOutboxRelay(db, log, stores.Outbox, outbound, config.OutboxBatchSize,
			config.OutboxPollInterval, config.OutboxRatePerSec).WithMetrics(metrics),
		workers.NewSpoolInbox(inbound, svc, log, config.OutboxBatchSize, config.OutboxPollInterval),
		workers.NewChannelCapacityWorker(log, metrics, config.MetricInterval,
			workers.NamedChannel{Name: "notifications", Channel: notifications}),
		workers.NewProcessMonitoringWorker(log, metrics, config.MetricInterval),
	)
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 8. Metrics endpoint
	server := &http.Server{
		Addr:              config.MetricsAddr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		log.Info("Serving metrics", "address", config.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	<-supDone
	log.Info("Node stopped cleanly")
	return err
}

// bootstrap registers the contacts given on the command line and, when asked,
// creates a group and invites all of them.
func bootstrap(ctx context.Context, svc *services.InvitationService, contacts contactFlags, groupName, text string) error {
	for _, c := range contacts {
		if err := svc.AddContact(ctx, c.groupID, c.author); err != nil {
			return fmt.Errorf("add contact %s: %w", c.author.Name, err)
		}
	}
	if groupName == "" {
		return nil
	}
	group, err := svc.CreateGroup(ctx, groupName)
	if err != nil {
		return err
	}
	for _, c := range contacts {
		key := domain.SessionKey{ContactGroupID: c.groupID, PrivateGroupID: group.ID}
		if _, err = svc.SendInvitation(ctx, key, text); err != nil {
			return fmt.Errorf("invite %s: %w", c.author.Name, err)
		}
	}
	return nil
}
