package config

import (
	"strings"
	"testing"
)

func TestParseStringSlice(t *testing.T) {
	got := parseStringSlice(" http://a.test, ,http://b.test ")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", got)
	}
	if got := parseStringSlice(""); len(got) != 0 {
		t.Fatalf("expected empty slice, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEDGER_STORE", "Memory")
	t.Setenv("CUSTOMER_DIRECTORY", "CRM")
	t.Setenv("CRM_TIMEOUT_SECONDS", "oops")

	cfg := Load()
	if cfg.LedgerStore != StoreMemory || cfg.CustomerDirectory != DirectoryCRM {
		t.Fatalf("expected lower-cased modes, got %q %q", cfg.LedgerStore, cfg.CustomerDirectory)
	}
	if cfg.CRMTimeoutSeconds != 10 {
		t.Fatalf("expected default timeout, got %d", cfg.CRMTimeoutSeconds)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "local directory on postgres",
			cfg:  Config{LedgerStore: StorePostgres, CustomerDirectory: DirectoryLocal},
		},
		{
			name:    "unknown store",
			cfg:     Config{LedgerStore: "mongo", CustomerDirectory: DirectoryLocal},
			wantErr: "LEDGER_STORE",
		},
		{
			name:    "crm without url",
			cfg:     Config{LedgerStore: StorePostgres, CustomerDirectory: DirectoryCRM},
			wantErr: "CRM_BASE_URL",
		},
		{
			name: "local directory in memory",
			cfg:  Config{LedgerStore: StoreMemory, CustomerDirectory: DirectoryLocal},
		},
		{
			name:    "production defaults",
			cfg:     Config{Env: "production", LedgerStore: StorePostgres, CustomerDirectory: DirectoryLocal, JWTSecret: defaultJWTSecret},
			wantErr: "JWT_SECRET",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
