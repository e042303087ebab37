package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/inventory-sidecar/internal/inventory"
)

// seedImage is one entry of the YAML seed file.
type seedImage struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Size    int64  `yaml:"size"`
}

func main() {
	listen := flag.String("listen", "127.0.0.1:15441", "Listen address")
	seed := flag.String("seed", "", "YAML file listing the images to serve")
	count := flag.Int("images", 3, "Number of generated images when no seed file is given")
	dev := flag.Bool("dev", false, "Development mode (colored logs, debug level)")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	if *dev {
		logCfg = logging.DevelopmentConfig()
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	images, err := loadImages(*seed, *count)
	if err != nil {
		logger.Fatal("Failed to load images", zap.Error(err))
	}
	store := inventory.NewStore(images...)

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Fatal("Failed to listen", zap.String("addr", *listen), zap.Error(err))
	}

	srv := grpc.NewServer(grpc.UnaryInterceptor(logCalls(logger)))
	inventory.Register(srv, store)

	// Reload the seed file on SIGHUP
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			images, err := loadImages(*seed, *count)
			if err != nil {
				logger.Warn("Reload failed", zap.Error(err))
				continue
			}
			store.Replace(images...)
			logger.Info("Images reloaded", zap.Int("images", store.Len()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("Shutting down")
		srv.GracefulStop()
	}()

	logger.Info("Serving inventory",
		zap.String("addr", lis.Addr().String()),
		zap.Int("images", store.Len()),
	)
	if err := srv.Serve(lis); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func loadImages(path string, count int) ([]inventory.Image, error) {
	if path == "" {
		images := make([]inventory.Image, count)
		for i := range images {
			images[i] = inventory.Image{
				ID:      fmt.Sprintf("sha512-%064d", i),
				Name:    fmt.Sprintf("example.com/dev/image-%d", i),
				Version: "latest",
			}
		}
		return images, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seeds []seedImage
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	images := make([]inventory.Image, 0, len(seeds))
	for _, s := range seeds {
		images = append(images, inventory.Image{ID: s.ID, Name: s.Name, Version: s.Version, Size: s.Size})
	}
	return images, nil
}

func logCalls(logger *logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		traceID, spanID := tracing.ExtractTraceContext(ctx)
		resp, err := handler(ctx, req)
		logger.Debug("call",
			zap.String("method", info.FullMethod),
			zap.String("trace_id", traceID),
			zap.String("span_id", spanID),
			zap.Error(err),
		)
		return resp, err
	}
}
