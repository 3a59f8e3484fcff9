// passinspect verifies a save token or save link and prints the pass it
// carries.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/spf13/pflag"

	"github.com/bionicotaku/passbridge"
	"github.com/bionicotaku/passbridge/internal/envfile"
)

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

	var (
		token          string
		serviceAccount string
		configPath     string
	)
	flagSet := pflag.NewFlagSet("passinspect", pflag.ContinueOnError)
	flagSet.StringVar(&token, "token", envfile.Lookup("PASSBRIDGE_TOKEN", ""), "save token or save link (env PASSBRIDGE_TOKEN)")
	flagSet.StringVar(&serviceAccount, "service-account", envfile.Lookup("GOOGLE_APPLICATION_CREDENTIALS", ""), "key file used to verify the signature; empty skips verification")
	flagSet.StringVarP(&configPath, "config", "c", envfile.Lookup("PASSBRIDGE_CONFIG", ""), "YAML config file (env PASSBRIDGE_CONFIG)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if token == "" && flagSet.NArg() > 0 {
		token = flagSet.Arg(0)
	}
	if token == "" {
		flagSet.Usage()
		return fmt.Errorf("token is required (via flag, argument, .env, or environment variables)")
	}

	cfg := passbridge.DefaultConfig()
	if configPath != "" {
		loaded, err := passbridge.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if serviceAccount == "" {
		serviceAccount = cfg.Wallet.ServiceAccountFile
	}
	token = strings.TrimPrefix(strings.TrimSpace(token), cfg.Wallet.SaveURL)

	var key jwk.Key
	if serviceAccount != "" {
		account, err := passbridge.LoadServiceAccount(serviceAccount)
		if err != nil {
			return err
		}
		signer, err := passbridge.NewTokenSignerFromAccount(account, nil)
		if err != nil {
			return err
		}
		if key, err = signer.PublicKey(); err != nil {
			return fmt.Errorf("derive public key: %w", err)
		}
	}

	claims, err := passbridge.VerifyToken(token, key)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	converter, err := passbridge.NewConverter(cfg)
	if err != nil {
		return err
	}
	pass, err := converter.DecodePayload(context.Background(), claims.Payload)
	if err != nil {
		return err
	}
	printClaims(claims, key != nil)
	printPass(pass)
	return nil
}

func printClaims(claims *passbridge.SaveClaims, verified bool) {
	if verified {
		fmt.Println("== Save Token Verified ==")
	} else {
		fmt.Println("== Save Token (signature not checked) ==")
	}
	fmt.Printf("issuer       : %s\n", claims.Issuer)
	fmt.Printf("audience     : %s\n", strings.Join(claims.Audience, ","))
	fmt.Printf("type         : %s\n", claims.Type)
	if len(claims.Origins) > 0 {
		fmt.Printf("origins      : %s\n", strings.Join(claims.Origins, ","))
	}
	if !claims.IssuedAt.IsZero() {
		fmt.Printf("issued_at    : %s\n", claims.IssuedAt.Format(time.RFC3339))
	}
	fmt.Printf("payload      : %s (class present: %t)\n", claims.Payload.Prefix, len(claims.Payload.Class) > 0)
}

func printPass(p *passbridge.Pass) {
	fmt.Println("== Pass ==")
	fmt.Printf("kind         : %s\n", p.Kind())
	fmt.Printf("id           : %s\n", p.ID)
	fmt.Printf("title        : %s\n", p.Title)
	fmt.Printf("issuer       : %s\n", p.Issuer)
	if p.Barcode != nil {
		fmt.Printf("barcode      : %s %q\n", p.Barcode.Format, p.Barcode.Message)
	}
	if p.BackgroundColor != nil {
		fmt.Printf("background   : %s\n", p.BackgroundColor.Hex())
	}
	for i, row := range p.FrontContent {
		for _, f := range row {
			fmt.Printf("front[%d]     : %s = %s\n", i, f.Label, f.Value)
		}
	}
	for _, f := range p.BackContent {
		fmt.Printf("back         : %s = %s\n", f.Label, f.Value)
	}
	for _, lang := range p.Strings.Languages() {
		fmt.Printf("strings      : %s (%d entries)\n", lang, len(p.Strings[lang]))
	}
}
