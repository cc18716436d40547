package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Arman3747/BloodConnect-Server/access"
	"github.com/Arman3747/BloodConnect-Server/config"
	"github.com/Arman3747/BloodConnect-Server/directory"
	"github.com/Arman3747/BloodConnect-Server/donation"
	"github.com/Arman3747/BloodConnect-Server/editorial"
	"github.com/Arman3747/BloodConnect-Server/events"
	"github.com/Arman3747/BloodConnect-Server/identity"
	"github.com/Arman3747/BloodConnect-Server/ledger"
	"github.com/Arman3747/BloodConnect-Server/logger"
	"github.com/Arman3747/BloodConnect-Server/middleware"
	"github.com/Arman3747/BloodConnect-Server/payments"
	"github.com/Arman3747/BloodConnect-Server/routes"
	"github.com/Arman3747/BloodConnect-Server/store"
	"github.com/Arman3747/BloodConnect-Server/telemetry"
	"github.com/Arman3747/BloodConnect-Server/utils"
)

const serviceName = "bloodconnect-server"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(serviceName, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// --- Store ---
	st, err := store.Connect(ctx, cfg.MongoURI, cfg.DBName, cfg.StoreTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close(context.Background()) }()
	if err := st.EnsureIndexes(ctx); err != nil {
		return err
	}
	log.Info("connected to MongoDB", slog.String("db", cfg.DBName))

	// --- Identity ---
	keys, err := keySource(cfg.Auth)
	if err != nil {
		return err
	}
	verifier := identity.NewJWTVerifier(keys, identity.Options{
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})

	// --- Optional integrations ---
	var pub events.Publisher = events.Nop{}
	if cfg.RabbitURL != "" {
		amqp, err := events.NewAMQP(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return err
		}
		defer amqp.Close()
		pub = amqp
	}

	var provider ledger.PaymentProvider
	if cfg.PaymentKey != "" {
		provider = payments.NewStripe(cfg.PaymentKey)
	} else {
		log.Warn("PAYMENT_GATEWAY_KEY not set; payment endpoints will fail")
	}

	var images editorial.ImageStore
	if cfg.Cloudinary.Enabled() {
		cld, err := utils.NewCloudinary(cfg.Cloudinary)
		if err != nil {
			return err
		}
		images = cld
	}

	donationOpts := []donation.Option{donation.WithPublisher(pub)}
	if cfg.Mail.Enabled() {
		donationOpts = append(donationOpts, donation.WithMailer(utils.NewMailer(cfg.Mail, nil)))
	}

	// --- Services ---
	gate := access.NewGate(st.Users, cfg.Roles, log)
	svc := routes.Services{
		Directory: directory.NewService(st.Users, gate, cfg.DefaultRole, pub, log),
		Donations: donation.NewService(st.Requests, st.Users, gate, log, donationOpts...),
		Editorial: editorial.NewService(st.Blogs, images, gate, pub, log),
		Ledger:    ledger.NewService(st.Funds, provider, gate, cfg.PaymentCurrency, pub, log),
	}

	// --- HTTP ---
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.Tracing(serviceName),
		middleware.RequestLogger(log),
		middleware.CORS(cfg.CORSOrigins),
	)
	routes.SetupRoutes(r, svc, middleware.Authenticate(verifier, cfg.Auth.VerifyTimeout))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("BloodConnect is running", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func keySource(cfg config.AuthConfig) (identity.KeySource, error) {
	switch {
	case cfg.CertsURL != "":
		return identity.NewCertSet(cfg.CertsURL, &http.Client{Timeout: cfg.VerifyTimeout}), nil
	case cfg.PublicKey != "":
		return identity.ParseRSAKey(cfg.PublicKey)
	default:
		return identity.HMACKey(cfg.Secret), nil
	}
}
