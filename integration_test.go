package passbridge

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

func TestWalletIntegration(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("RUN_INTEGRATION_TESTS not set to true")
	}

	keyFile := strings.TrimSpace(os.Getenv("WALLET_SERVICE_ACCOUNT_FILE"))
	issuerID := strings.TrimSpace(os.Getenv("WALLET_ISSUER_ID"))
	if keyFile == "" || issuerID == "" {
		t.Fatal("WALLET_SERVICE_ACCOUNT_FILE and WALLET_ISSUER_ID environment variables required")
	}

	account, err := LoadServiceAccount(keyFile)
	if err != nil {
		t.Fatalf("LoadServiceAccount: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := &Config{Wallet: WalletConfig{IssuerID: issuerID}}
	converter, err := NewConverter(cfg)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	payload, err := converter.EncodePayload(ctx, &Pass{
		ID:           fmt.Sprintf("integration-%d", time.Now().Unix()),
		TypeID:       "integration.generic",
		Title:        "Integration pass",
		FrontContent: []Row{{{Key: "run", Label: "Run", Value: time.Now().UTC().Format(time.RFC3339)}}},
	})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}

	persister, err := NewWalletPersister(ctx, NewCredentialProvider(CredentialProviderConfig{Account: account}))
	if err != nil {
		t.Fatalf("NewWalletPersister: %v", err)
	}
	if err := persister.PersistClass(ctx, payload.Prefix, payload.Class); err != nil {
		t.Fatalf("PersistClass: %v", err)
	}
	if err := persister.PersistObject(ctx, payload.Prefix, payload.Object); err != nil {
		t.Fatalf("PersistObject: %v", err)
	}

	signer, err := NewTokenSignerFromAccount(account, nil)
	if err != nil {
		t.Fatalf("NewTokenSignerFromAccount: %v", err)
	}
	dispatcher, err := NewDispatcher(cfg, signer, WithPersister(persister))
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	token, err := dispatcher.Issue(ctx, payload)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("empty save token")
	}
	t.Logf("save url: %s", dispatcher.SaveURL(token))
}
