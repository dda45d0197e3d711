package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrarejimmyz/chatcore"
	"github.com/mrarejimmyz/chatcore/config"
	"github.com/mrarejimmyz/chatcore/logging"
	"github.com/mrarejimmyz/chatcore/metrics"
	"github.com/mrarejimmyz/chatcore/server"
)

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "chatcore",
	Short:        "Conversational engine that executes portfolio actions or answers through a cascade of generation backends.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			c.Log.Level = logLevel
		}
		cfg = c
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		prom := metrics.NewPrometheus(metrics.DefaultConfig())
		cc, err := chatcore.NewFromConfig(cfg, func(o *chatcore.Options) { o.Metrics = prom })
		if err != nil {
			return err
		}
		defer cc.Close()

		srv := server.New(cc, func(o *server.Options) {
			o.Metrics = prom.Handler()
			o.Logger = newLogger()
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(cfg.Server.Addr) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively on stdin/stdout",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetString("conversation")
		cc, err := chatcore.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		defer cc.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return repl(ctx, cc, id, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Probe configured backends and print their status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cc, err := chatcore.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		defer cc.Close()

		descs := cc.ProbeBackends(cmd.Context())
		if len(descs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No backends configured; replies come from the rule-based responder.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tNAME\tPROVIDER\tMODEL\tAVAILABLE\tENDPOINT")
		for _, d := range descs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", d.Rank, d.Name, d.Provider, d.Model, d.Available, d.Endpoint.BaseURL)
		}
		return tw.Flush()
	},
}

// repl reads one message per line and streams each reply. Lines starting
// with "/" are commands: /history, /clear, /exit.
func repl(ctx context.Context, cc *chatcore.ChatCore, id string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "chatcore (conversation %q). /history, /clear, /exit\n", id)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			if err := cc.ClearHistory(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(out, "history cleared")
			continue
		case "/history":
			msgs, err := cc.GetHistory(ctx, id)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
			}
			continue
		}

		st := cc.StreamResponse(ctx, id, line)
		for chunk := range st.Chan(ctx) {
			if chunk.Done {
				r := chunk.Response
				fmt.Fprintf(out, "\n  (%s, confidence %.2f)\n", r.Backend, r.Confidence)
				continue
			}
			fmt.Fprint(out, chunk.Delta)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func newLogger() logging.Logger {
	return logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, false).WithComponent("server")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	serveCmd.Flags().String("addr", "", "listen address, overrides server.addr")
	chatCmd.Flags().String("conversation", "cli", "conversation id")

	rootCmd.AddCommand(serveCmd, chatCmd, backendsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
