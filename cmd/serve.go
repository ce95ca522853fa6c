package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/namastexlabs/automagik-omni-go/agentclient"
	"github.com/namastexlabs/automagik-omni-go/channels/discord"
	"github.com/namastexlabs/automagik-omni-go/channels/evolution"
	"github.com/namastexlabs/automagik-omni-go/core/config"
	"github.com/namastexlabs/automagik-omni-go/core/database"
	"github.com/namastexlabs/automagik-omni-go/domains/instance"
	"github.com/namastexlabs/automagik-omni-go/domains/omni"
	"github.com/namastexlabs/automagik-omni-go/pkg/ratelimit"
	"github.com/namastexlabs/automagik-omni-go/repository"
	"github.com/namastexlabs/automagik-omni-go/router"
	"github.com/namastexlabs/automagik-omni-go/ui/rest"
	"github.com/namastexlabs/automagik-omni-go/ui/rest/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Admin API and inbound message pipeline",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	configureLogging(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	if err := repository.Migrate(db); err != nil {
		return err
	}

	instances := repository.NewInstanceRepository(db)
	identities := repository.NewIdentityRepository(db)
	accessControl := repository.NewAccessRepository(db)
	traces := repository.NewTraceRepository(db, cfg.Trace.CompressionThresholdBytes)

	if err := accessControl.Reload(context.Background()); err != nil {
		return err
	}

	limiter := ratelimit.New(
		cfg.RateLimit.MaxRequests,
		cfg.RateLimit.Window(),
		cfg.RateLimit.CleanupInterval(),
	)
	defer limiter.Stop()

	// r is assigned once router.New returns; the discord session pool only
	// invokes this callback after Start, by which time r is non-nil.
	var r *router.Router
	discordPool := discord.NewSessionPool(cfg.Discord.EventQueueCapacity, func(instanceName string, ev discord.RawEvent) {
		msg := discord.ToOmniMessage(ev)
		if _, err := r.HandleParsed(context.Background(), instanceName, msg); err != nil {
			logrus.WithError(err).WithField("instance_name", instanceName).Warn("discord pipeline error")
		}
	})

	adapters := map[instance.ChannelType]omni.Adapter{
		instance.ChannelWhatsApp: evolution.New(),
		instance.ChannelDiscord:  discord.NewAdapter(discordPool),
	}

	r = router.New(
		instances,
		identities,
		accessControl,
		traces,
		agentclient.New(),
		limiter,
		adapters,
		cfg,
	)

	discordInstances, err := instances.List(context.Background(), instance.ListFilter{
		ChannelType: instance.ChannelDiscord,
		ActiveOnly:  true,
	})
	if err != nil {
		return err
	}
	for _, inst := range discordInstances {
		if err := discordPool.Start(inst); err != nil {
			logrus.WithError(err).WithField("instance_name", inst.Name).Error("failed to start discord session")
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})
	app.Use(middleware.Recovery())
	if cfg.App.Environment != "test" {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, x-api-key",
	}))

	rest.RegisterRoutes(app, rest.Dependencies{
		Config:    cfg,
		Instances: instances,
		Access:    accessControl,
		Traces:    traces,
		Router:    r,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.App.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logrus.Info("shutdown signal received, draining in-flight requests")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		for _, inst := range discordInstances {
			_ = discordPool.Stop(inst.Name)
		}
		return app.ShutdownWithContext(ctx)
	}
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
}
