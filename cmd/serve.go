package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/server"
	"github.com/spigell/hh-matcher/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the match API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default is server.addr from config)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := newEngine(config.Matching, logger)
	if err != nil {
		logger.Fatal("creating relevance engine", zap.Error(err))
	}

	var runs server.RunStore
	if config.Storage != nil && config.Storage.DSN != "" {
		s, err := store.Open(ctx, config.Storage.Driver, config.Storage.DSN)
		if err != nil {
			logger.Fatal("opening run history", zap.Error(err))
		}
		defer s.Close()
		runs = s
	}

	addr := server.DefaultAddr
	if config.Server != nil && config.Server.Addr != "" {
		addr = config.Server.Addr
	}

	logger.Info("starting the hh-matcher server", zap.String("version", version), zap.Bool("history", runs != nil))

	if err := server.New(engine, runs, logger).ListenAndServe(ctx, addr); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
}
