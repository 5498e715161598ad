package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/awstrack/awstrack/internal/agent"
	"github.com/awstrack/awstrack/internal/api/handlers"
	"github.com/awstrack/awstrack/internal/api/router"
	"github.com/awstrack/awstrack/internal/cache"
	"github.com/awstrack/awstrack/internal/config"
	"github.com/awstrack/awstrack/internal/detector"
	"github.com/awstrack/awstrack/internal/domain/activity"
	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/domain/anomaly"
	"github.com/awstrack/awstrack/internal/notify"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/providers"
	"github.com/awstrack/awstrack/internal/repository/sqlite"
	"github.com/awstrack/awstrack/internal/services"
	"github.com/awstrack/awstrack/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logger.Global()

	if err := run(cfg, log); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	// runCtx is canceled on shutdown; every agent loop hangs off it.
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := providers.LoadAWSConfig(runCtx, cfg.AWS)
	if err != nil {
		return fmt.Errorf("aws config: %w", err)
	}

	// Activity source: trail archive in S3 when configured, the
	// LookupEvents API otherwise.
	var activitySource activity.Source
	if cfg.AWS.TrailBucket != "" {
		activitySource = providers.NewTrailArchiveSource(s3.NewFromConfig(awsCfg), cfg.AWS.TrailBucket, cfg.AWS.TrailKeyPrefix, log)
	} else {
		activitySource = providers.NewCloudTrailSource(cloudtrail.NewFromConfig(awsCfg), log)
	}

	// Cost Explorer only answers in us-east-1.
	ceCfg := awsCfg
	ceCfg.Region = "us-east-1"
	var costSource anomaly.Source = providers.NewCostAnomalySource(costexplorer.NewFromConfig(ceCfg), log)

	// Alert dedup cache: Redis when enabled, in-process otherwise.
	var dedup cache.Dedup
	var redisDedup *cache.Redis
	if cfg.Redis.Enabled {
		redisDedup, err = cache.NewRedis(runCtx, cache.RedisOptions{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Alerting.DedupRetention)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisDedup.Close()
		dedup = redisDedup
	} else {
		dedup = cache.NewMemory(cfg.Alerting.DedupRetention, cfg.Alerting.DedupMaxSize)
	}

	notifiers := buildNotifiers(cfg, awsCfg)
	if len(notifiers) == 0 {
		log.Warn("no notification channels configured, alerts will only be recorded")
	}

	resolver := providers.NewTagOwnerResolver(ec2.NewFromConfig(awsCfg), log)
	aggregator := services.NewAggregator(cfg.Analytics.Weights.Domain(), cfg.Analytics.Categories.Domain(), resolver, log)

	// Optional SQLite store for alert history and analytics snapshots.
	var db *sql.DB
	var alertRepo alert.Repository
	if cfg.Database.Path != "" {
		db, err = sqlite.Open(runCtx, cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		defer db.Close()
		alertRepo = sqlite.NewAlertRepository(db)

		snapshotWorker := worker.NewSnapshotWorker(aggregator, sqlite.NewSnapshotRepository(db), cfg.Database.SnapshotSchedule, log)
		if err := snapshotWorker.Start(); err != nil {
			return fmt.Errorf("snapshot worker: %w", err)
		}
		defer snapshotWorker.Stop()
	}

	dispatcher := services.NewDispatcher(dedup, notifiers, alertRepo, log)

	rules := detector.NewActivityRuleSet(
		cfg.Detection.HighRiskOperations,
		cfg.Detection.AccessDeniedCodes,
		cfg.Detection.SuspiciousAgents,
		cfg.Detection.SuspiciousIPs,
	)
	cloudTrailDetector := detector.NewCloudTrail(activitySource, rules, dispatcher, aggregator,
		cfg.Monitor.InitialLookback, cfg.Analytics.RecentBufferSize, log)
	costDetector := detector.NewCost(costSource,
		detector.SeverityThresholds{Warning: cfg.Detection.WarningThreshold, Critical: cfg.Detection.CriticalThreshold},
		dispatcher, aggregator, cfg.Monitor.InitialLookback, cfg.Analytics.RecentBufferSize, log)

	orchestrator := agent.NewOrchestrator(log)
	orchestrator.Register(agent.New("cloudtrail-monitor", cfg.Monitor.CloudTrailInterval, cloudTrailDetector.CheckOnce, log,
		agent.WithStatusFunc(cloudTrailDetector.StatusFields)))
	orchestrator.Register(agent.New("cost-monitor", cfg.Monitor.CostInterval, costDetector.CheckOnce, log,
		agent.WithStatusFunc(costDetector.StatusFields)))
	orchestrator.Register(agent.New("user-analytics", cfg.Monitor.AnalyticsInterval, aggregator.RefreshScores, log,
		agent.WithStatusFunc(aggregator.StatusFields)))

	for name, err := range orchestrator.StartAll(runCtx) {
		if err != nil {
			log.WithError(err).With("agent", name).Error("agent failed to start")
		}
	}
	defer orchestrator.StopAll()

	h := &router.Handlers{
		Health:    handlers.NewHealthHandler(db, log),
		Agent:     handlers.NewAgentHandler(orchestrator, runCtx, log),
		Activity:  handlers.NewActivityHandler(cloudTrailDetector, log),
		Anomaly:   handlers.NewAnomalyHandler(costDetector, log),
		Alert:     handlers.NewAlertHandler(alertRepo, log),
		Analytics: handlers.NewAnalyticsHandler(aggregator, log),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.With("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-runCtx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "server shutdown failed")
	}
	return nil
}

func buildNotifiers(cfg *config.Config, awsCfg aws.Config) []alert.Notifier {
	var notifiers []alert.Notifier
	for _, channel := range cfg.Alerting.Channels {
		switch channel {
		case alert.ChannelSlack:
			if cfg.Alerting.SlackWebhookURL != "" {
				notifiers = append(notifiers, notify.NewSlack(cfg.Alerting.SlackWebhookURL, cfg.Alerting.SlackChannel))
			}
		case alert.ChannelSNS:
			if cfg.Alerting.SNSTopicARN != "" {
				notifiers = append(notifiers, notify.NewSNS(sns.NewFromConfig(awsCfg), cfg.Alerting.SNSTopicARN))
			}
		case alert.ChannelEmail:
			if cfg.Alerting.EmailFrom != "" {
				notifiers = append(notifiers, notify.NewEmail(sesv2.NewFromConfig(awsCfg), cfg.Alerting.EmailFrom, cfg.Alerting.EmailTo))
			}
		}
	}
	return notifiers
}
