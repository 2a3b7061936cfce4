package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/vasilisp/pagechat/internal/cli"
	"github.com/vasilisp/pagechat/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	verbose    bool
	port       int
)

func newLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func loadConfig(cmd *cobra.Command) (*server.Config, error) {
	config, err := server.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("port") {
		config.Port = port
	}
	return config, nil
}

var rootCmd = &cobra.Command{
	Use:   "pagechat",
	Short: "Chat with an AI model about the web page you are reading",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the companion panel and its API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		app, err := server.NewApp(config, zap.L())
		if err != nil {
			return err
		}
		defer app.Close()

		return server.Serve(cmd.Context(), app)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <url>",
	Short: "Chat about a page in the terminal through a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
		if err != nil {
			return fmt.Errorf("failed to create renderer: %w", err)
		}

		client := cli.NewClient(fmt.Sprintf("http://localhost:%d", config.Port), nil)
		return cli.Run(cmd.Context(), client, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), renderer)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/pagechat.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on")
	chatCmd.Flags().IntVarP(&port, "port", "p", 0, "port of the running server")

	rootCmd.AddCommand(serveCmd, chatCmd)
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}
