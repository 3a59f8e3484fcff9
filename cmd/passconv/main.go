// passconv converts pass files between the archive and payload formats.
//
//	passconv --to payload ticket.pkpass
//	passconv --to pkpass --out-dir out/ offer.json loyalty.json
//	passconv --to url --persist boarding.pkpass
//
// Inputs ending in .pkpass are read as archives, everything else as payload
// JSON. Several inputs are converted concurrently.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bionicotaku/passbridge"
	"github.com/bionicotaku/passbridge/internal/envfile"
)

type options struct {
	configPath  string
	to          string
	outDir      string
	logLevel    string
	concurrency int
	persist     bool
	updatable   bool
	timeout     time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envPath := envfile.DefaultPath()
	if err := envfile.Load(envPath); err != nil {
		slog.Warn("load env file", "path", envPath, "error", err)
	}

	var opts options
	var envFlag string
	flagSet := pflag.NewFlagSet("passconv", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", envfile.Lookup("PASSBRIDGE_CONFIG", ""), "YAML config file (env PASSBRIDGE_CONFIG)")
	flagSet.StringVarP(&opts.to, "to", "t", "payload", "output format: pkpass, payload, token or url")
	flagSet.StringVarP(&opts.outDir, "out-dir", "o", "", "write outputs here instead of stdout")
	flagSet.StringVar(&opts.logLevel, "log-level", envfile.Lookup("PASSBRIDGE_LOG_LEVEL", "info"), "debug, info, warn or error")
	flagSet.IntVarP(&opts.concurrency, "concurrency", "j", 4, "conversions run in parallel")
	flagSet.BoolVar(&opts.persist, "persist", false, "persist oversized classes and objects through the wallet API")
	flagSet.BoolVar(&opts.updatable, "updatable", false, "attach web service credentials to archives")
	flagSet.DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout for the whole run")
	flagSet.StringVar(&envFlag, "env", envPath, "path to .env file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if envFlag != envPath {
		if err := envfile.Load(envFlag); err != nil {
			slog.Warn("load env file", "path", envFlag, "error", err)
		}
		if opts.configPath == "" {
			opts.configPath = os.Getenv("PASSBRIDGE_CONFIG")
		}
	}

	inputs := flagSet.Args()
	if len(inputs) == 0 {
		flagSet.Usage()
		return fmt.Errorf("at least one input file is required")
	}
	switch opts.to {
	case "pkpass", "payload", "token", "url":
	default:
		return fmt.Errorf("unknown output format %q", opts.to)
	}

	logger := newLogger(opts.logLevel)
	slog.SetDefault(logger)

	cfg := passbridge.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := passbridge.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	ctx = passbridge.ContextWithLogger(ctx, logger)

	converter, err := passbridge.NewConverter(cfg, passbridge.WithLogger(logger))
	if err != nil {
		return err
	}
	var dispatcher *passbridge.Dispatcher
	if opts.to == "token" || opts.to == "url" {
		dispatcher, err = newDispatcher(ctx, cfg, opts, logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.concurrency, 1))
	for _, input := range inputs {
		g.Go(func() error {
			if err := convertFile(gctx, converter, dispatcher, opts, input); err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func newDispatcher(ctx context.Context, cfg *passbridge.Config, opts options, logger *slog.Logger) (*passbridge.Dispatcher, error) {
	path := cfg.Wallet.ServiceAccountFile
	if path == "" {
		path = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if path == "" {
		return nil, fmt.Errorf("a service account file is required for --to %s", opts.to)
	}
	account, err := passbridge.LoadServiceAccount(path)
	if err != nil {
		return nil, err
	}
	signer, err := passbridge.NewTokenSignerFromAccount(account, cfg.Wallet.Origins)
	if err != nil {
		return nil, err
	}
	dispatchOpts := []passbridge.DispatcherOption{passbridge.WithDispatchLogger(logger)}
	if opts.persist {
		provider := passbridge.NewCredentialProvider(passbridge.CredentialProviderConfig{Account: account})
		persister, err := passbridge.NewWalletPersister(ctx, provider)
		if err != nil {
			return nil, err
		}
		dispatchOpts = append(dispatchOpts, passbridge.WithPersister(persister))
	}
	return passbridge.NewDispatcher(cfg, signer, dispatchOpts...)
}

func convertFile(ctx context.Context, c *passbridge.Converter, d *passbridge.Dispatcher, opts options, input string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	var pass *passbridge.Pass
	if strings.EqualFold(filepath.Ext(input), ".pkpass") {
		pass, err = c.DecodeArchive(ctx, data)
	} else {
		var payload passbridge.Payload
		payload, err = passbridge.ParsePayload(data)
		if err == nil {
			pass, err = c.DecodePayload(ctx, payload)
		}
	}
	if err != nil {
		return err
	}
	passbridge.LoggerFromContext(ctx, nil).Info("decoded pass", "input", input, "kind", pass.Kind(), "id", pass.ID)

	var out []byte
	ext := ".json"
	switch opts.to {
	case "pkpass":
		if opts.updatable {
			c.IssueUpdatable(pass)
		}
		out, err = c.EncodeArchive(ctx, pass)
		ext = ".pkpass"
	case "payload":
		var payload passbridge.Payload
		payload, err = c.EncodePayload(ctx, pass)
		if err == nil {
			out, err = payload.MarshalJSON()
		}
	case "token", "url":
		var payload passbridge.Payload
		payload, err = c.EncodePayload(ctx, pass)
		if err != nil {
			return err
		}
		var token string
		token, err = d.Issue(ctx, payload)
		if opts.to == "url" {
			token = d.SaveURL(token)
		}
		out = []byte(token + "\n")
		ext = ".txt"
	}
	if err != nil {
		return err
	}
	return writeOutput(opts.outDir, input, ext, out)
}

func writeOutput(dir, input, ext string, data []byte) error {
	if dir == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return os.WriteFile(filepath.Join(dir, base+ext), data, 0o644)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
