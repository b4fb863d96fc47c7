package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bitkill/hello-blea/internal/config"
	"github.com/bitkill/hello-blea/internal/encoding"
	"github.com/bitkill/hello-blea/internal/gateway"
	"github.com/bitkill/hello-blea/internal/publish"
	"github.com/bitkill/hello-blea/internal/source"
	"github.com/bitkill/hello-blea/pkg/blea"
)

var (
	rootCmd = &cobra.Command{
		Use:   "hello-blea",
		Short: "Decode BLE sensor advertisements",
		Long:  "hello-blea decodes Bluetooth LE service data from Xiaomi and Qingping sensors and forwards the readings.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		SilenceUsage: true,
	}

	decodeCmd = &cobra.Command{
		Use:   "decode [service] [hex]",
		Short: "Decode a single service data payload",
		Long:  "decode prints the readings for one payload. Without arguments it reads \"service hex\" lines interactively.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected a service and a hex payload, got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := blea.AnalyzeOptions{Inspect: inspect}
			ctx := cmd.Context()
			if len(args) == 0 {
				return runInteractive(ctx, opts, os.Stdin, cmd.OutOrStdout())
			}
			return runDecode(ctx, opts, cmd.OutOrStdout(), args[0], args[1])
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Decode an advertisement feed and publish readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(cmd.Context())
		},
	}

	driversCmd = &cobra.Command{
		Use:   "drivers",
		Short: "List registered decoders",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range blea.Drivers() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}

	configPath string
	logLevel   string
	inspect    bool
	format     string
	sourcePath string
)

var _ source.Subscriber = (*publish.Client)(nil)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config and "+config.LogLevelEnv+")")
	decodeCmd.Flags().BoolVar(&inspect, "inspect", false, "include driver diagnostics (mac, model, flags)")
	runCmd.Flags().StringVar(&format, "format", "", "reading encoding: json or cbor (overrides config)")
	runCmd.Flags().StringVar(&sourcePath, "input", "", "read advertisements from this file instead of the configured source")
	rootCmd.AddCommand(decodeCmd, runCmd, driversCmd)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	return cfg.Apply(config.Overrides{
		LogLevel: logLevel,
		Format:   format,
		Input:    sourcePath,
	}), nil
}

// setupLogging only needs the level, so a bad level falls back to info with
// a warning instead of failing commands that never touch the gateway.
func setupLogging() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.WithError(err).Warn("invalid log level, using info")
	}
	logrus.SetLevel(cfg.Level())
	return nil
}

func runInteractive(ctx context.Context, opts blea.AnalyzeOptions, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	logrus.Info("hello-blea decode mode. Enter \"service hex\" and press Enter (Ctrl+D to exit).")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		service, hex, found := strings.Cut(line, " ")
		if !found {
			logrus.WithField("line", line).Error("expected a service and a hex payload")
			continue
		}
		if err := runDecode(ctx, opts, out, service, hex); err != nil {
			logrus.WithError(err).Error("failed to decode payload")
		}
	}
	return scanner.Err()
}

func runDecode(ctx context.Context, opts blea.AnalyzeOptions, out io.Writer, service, hex string) error {
	result, err := blea.AnalyzeWithOptions(ctx, service, hex, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, result.String())
	return nil
}

func runGateway(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	enc, err := encoding.Lookup(cfg.Format)
	if err != nil {
		return err
	}
	log := logrus.WithField("component", "gateway")

	var client *publish.Client
	if cfg.MQTT.Broker != "" {
		client, err = publish.NewClient(publish.ClientOptions{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			KeepAlive:      cfg.MQTT.KeepAlive,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
			QoS:            cfg.MQTT.QoS,
			Retain:         cfg.MQTT.Retain,
		}, logrus.WithField("component", "mqtt"))
		if err != nil {
			return err
		}
		defer client.Close()
	}

	var pub gateway.Publisher = publish.NewWriter(os.Stdout)
	if client != nil {
		pub = client
	}

	srcLog := logrus.WithField("component", "source")
	var src source.Source
	switch strings.ToLower(cfg.Source.Type) {
	case config.SourceFile:
		f, err := os.Open(cfg.Source.Path)
		if err != nil {
			return fmt.Errorf("open advertisements: %w", err)
		}
		defer f.Close()
		src = source.NewLines(f, srcLog)
	case config.SourceMQTT:
		src = source.NewTopic(client, cfg.Source.Topic, srcLog)
	default:
		src = source.NewLines(os.Stdin, srcLog)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"source":       cfg.Source.Type,
		"format":       enc.Format(),
		"content_type": enc.ContentType(),
		"drivers":      strings.Join(blea.Drivers(), ","),
	}).Info("gateway started")
	g := gateway.New(pub, enc, gateway.Options{
		TopicPrefix:  cfg.MQTT.TopicPrefix,
		PublishEmpty: cfg.PublishEmpty,
	}, log)
	if err := g.Run(ctx, src); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
