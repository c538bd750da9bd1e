package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caseflow/internal/db"
	"caseflow/internal/drafts"
	"caseflow/internal/intake"
	"caseflow/internal/server"
	"caseflow/internal/spool"
	"caseflow/internal/storage"
	"caseflow/internal/store"
	"caseflow/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Apply the schema before serving",
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig()
	if err != nil {
		return err
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cCtx.Bool("migrate") {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	redisClient := drafts.NewRedisClient(config.RedisAddr, config.RedisPassword, config.RedisDB)
	defer func() { _ = redisClient.Close() }()

	draftRepo := drafts.New(redisClient, config.DraftTTL)
	if err := draftRepo.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach redis at %s: %w", config.RedisAddr, err)
	}

	spoolDir, err := spool.New(config.SpoolDir, config.MaxUploadBytes)
	if err != nil {
		return err
	}

	caseRepo := store.NewCaseRepository(pool)
	documentRepo := store.NewDocumentRepository(pool)
	historyRepo := store.NewHistoryRepository(pool)
	residencyRepo := store.NewResidencyRepository(pool)
	flightRepo := store.NewFlightRepository(pool)

	blobs := newBlobStore(config, awsConfig)

	var requirementSource intake.RequirementSource = intake.StaticRequirements{}
	if config.RequirementsSource == types.RequirementsSourceDatabase {
		requirementSource = store.NewRequirementRepository(pool)
	}
	requirements := intake.NewCachedRequirements(requirementSource, config.RequirementsCacheTTL)

	uploader := intake.NewUploader(blobs, documentRepo, caseRepo, logger, intake.UploaderConfig{
		Concurrency: config.UploadConcurrency,
		Timeout:     config.UploadTimeout,
	})

	submitter := intake.NewSubmitter(intake.Stores{
		Cases:     caseRepo,
		History:   historyRepo,
		Residency: residencyRepo,
		Family:    residencyRepo,
		Flights:   flightRepo,
	}, uploader, logger)

	jwkCache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(ctx, jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
	}

	srv, err := server.New(config, logger, server.Dependencies{
		Authenticator: cognitoClient,
		Verifier:      server.NewJWKSVerifier(jwkCache, jwksURL),

		Cases:        caseRepo,
		Documents:    documentRepo,
		History:      historyRepo,
		Residency:    residencyRepo,
		Flights:      flightRepo,
		Requirements: requirements,

		Drafts:    draftRepo,
		Spool:     spoolDir,
		Submitter: submitter,
	})
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	// SIGHUP drops the cached checklists, e.g. after `caseflow seed`.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

loop:
	for {
		select {
		case <-reload:
			requirements.Invalidate("")
			logger.Info("document requirement cache flushed")
		case <-ctx.Done():
			break loop
		}
	}
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

func newBlobStore(config *types.Config, awsConfig aws.Config) intake.BlobStore {
	if config.StorageBackend == types.StorageBackendSupabase {
		return storage.NewSupabaseStorage(config.SupabaseProjectID, config.SupabaseAPIKey, config.SupabaseBucket)
	}
	return storage.NewS3Storage(s3.NewFromConfig(awsConfig), config.S3BucketName)
}
