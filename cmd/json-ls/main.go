// Command json-ls is a Language Server for JSON documents that provides
// hover, completion, and schema validation driven by each document's
// declared $schema. It speaks the Language Server Protocol over stdio.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	jsonls "github.com/jacobcolvin/json-ls/lsp"
	"github.com/jacobcolvin/json-ls/log"
	"github.com/jacobcolvin/json-ls/profile"
	"github.com/jacobcolvin/json-ls/rpc"
	"github.com/jacobcolvin/json-ls/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	logConfig := log.NewConfig()
	profileConfig := profile.NewConfig()

	cmd := &cobra.Command{
		Use:     "json-ls",
		Short:   "A Language Server for JSON documents",
		Version: version.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, logConfig, profileConfig)
		},
	}

	cmd.Flags().BoolP("version", "V", false, "print the build version and exit")

	logConfig.RegisterFlags(cmd.Flags())
	profileConfig.RegisterFlags(cmd.Flags())

	// JSON_LS_LOG_LEVEL replaces the flag's default; an explicit
	// --log-level still wins because flags are parsed afterwards.
	if level, ok := os.LookupEnv("JSON_LS_LOG_LEVEL"); ok {
		logConfig.Level = level
	}

	if err := logConfig.RegisterCompletions(cmd); err != nil {
		cobra.CheckErr(err)
	}

	if err := profileConfig.RegisterCompletions(cmd); err != nil {
		cobra.CheckErr(err)
	}

	return cmd
}

func run(cmd *cobra.Command, logConfig *log.Config, profileConfig *profile.Config) error {
	profiler := profileConfig.NewProfiler()
	if err := profiler.Start(); err != nil {
		return fmt.Errorf("starting profiler: %w", err)
	}

	defer func() {
		if err := profiler.Stop(); err != nil {
			fmt.Fprintln(os.Stderr, "stopping profiler:", err)
		}
	}()

	publisher := log.NewPublisher()
	defer publisher.Close()

	handler, err := logConfig.NewHandler(io.MultiWriter(os.Stderr, publisher))
	if err != nil {
		return fmt.Errorf("creating log handler: %w", err)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	mux := rpc.NewMux(os.Stdin, os.Stdout, logger)
	server := jsonls.NewServer(mux)

	registerHandlers(mux, server)

	sub := publisher.Subscribe()
	defer sub.Close()

	go forwardLogEntries(mux, sub.C())

	logger.Info("json-ls starting", "version", version.Version)

	return mux.Process(cmd.Context())
}

func registerHandlers(mux *rpc.Mux, server *jsonls.Server) {
	mux.HandleMethod(rpc.MethodInitialize, server.Initialize)
	mux.HandleMethod(rpc.MethodShutdown, server.Shutdown)
	mux.HandleMethod(rpc.MethodHover, server.Hover)
	mux.HandleMethod(rpc.MethodCompletion, server.Completion)

	mux.HandleNotification(rpc.MethodInitialized, func(_ context.Context, _ json.RawMessage) error {
		slog.Info("json-ls initialized")
		return nil
	})

	mux.HandleNotification(rpc.MethodDidOpen, server.DidOpen)
	mux.HandleNotification(rpc.MethodDidChange, server.DidChange)
	mux.HandleNotification(rpc.MethodDidClose, server.DidClose)

	mux.HandleNotification(rpc.MethodExit, func(_ context.Context, _ json.RawMessage) error {
		os.Exit(0)
		return nil
	})
}

// forwardLogEntries relays lines written through the log publisher to the
// client as window/logMessage notifications, so editor-side log panels
// show server diagnostics without a separate stderr redirection.
func forwardLogEntries(mux *rpc.Mux, entries <-chan []byte) {
	for entry := range entries {
		err := mux.Notify(rpc.MethodLogMessage, rpc.LogMessageParams{
			Type:    rpc.MessageTypeLog,
			Message: string(entry),
		})
		if err != nil {
			return
		}
	}
}
