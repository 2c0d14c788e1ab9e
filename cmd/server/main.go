package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookshelf-server/internal/catalog"
	"bookshelf-server/internal/config"
	"bookshelf-server/internal/covers"
	apphttp "bookshelf-server/internal/http"
	"bookshelf-server/internal/repository/sqlite"
	"bookshelf-server/internal/service"
	"bookshelf-server/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	bookRepo := sqlite.NewSavedBookRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := bookRepo.Init(ctx); err != nil {
		logger.Fatalf("init saved book repository: %v", err)
	}

	userService := service.NewUserService(userRepo, bookRepo)
	bookService := service.NewBookService(userRepo, bookRepo)
	tokenService := service.NewTokenService(
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
	)

	catalogClient := catalog.NewClient(catalog.Config{
		Endpoint:   cfg.Catalog.Endpoint,
		MaxResults: cfg.Catalog.MaxResults,
	})

	coverMirror, err := buildCoverMirror(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup cover mirror: %v", err)
	}
	if coverMirror != nil {
		if err := coverMirror.Start(ctx); err != nil {
			logger.Fatalf("start cover mirror: %v", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		userService,
		bookService,
		tokenService,
		catalogClient,
		coverMirror,
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if coverMirror != nil {
		coverMirror.Shutdown()
	}

	logger.Info("bye")
}

// buildCoverMirror returns a nil manager when no bucket is configured; cover
// mirroring is optional.
func buildCoverMirror(ctx context.Context, cfg config.Config, logger *logrus.Logger) (covers.Manager, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured, cover mirroring disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)

	return covers.NewManager(covers.Config{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Logger:    logger,
	}, storage.NewS3Service(client)), nil
}
