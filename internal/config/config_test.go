package config

import (
	"testing"
	"time"
)

// TestLedgerDefaults pins the ledger tunables shipped when no environment
// overrides are set. The contribution floor defaults to one minimal unit so
// any representable positive amount is accepted out of the box.
func TestLedgerDefaults(t *testing.T) {
	t.Setenv("LEDGER_MIN_CONTRIBUTION", "")
	t.Setenv("LEDGER_INACTIVITY_PERIOD", "")
	t.Setenv("LEDGER_SWEEP_INTERVAL", "")
	t.Setenv("LEDGER_SUMMARY_INTERVAL", "")

	cfg, err := load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Ledger.MinContribution != 0.0001 {
		t.Errorf("MinContribution default = %v, want 0.0001", cfg.Ledger.MinContribution)
	}
	if cfg.Ledger.InactivityPeriod != 7*24*time.Hour {
		t.Errorf("InactivityPeriod default = %s, want 168h", cfg.Ledger.InactivityPeriod)
	}
	if cfg.Ledger.SweepInterval != time.Minute {
		t.Errorf("SweepInterval default = %s, want 1m", cfg.Ledger.SweepInterval)
	}
	if cfg.Ledger.SummaryInterval != 30*time.Second {
		t.Errorf("SummaryInterval default = %s, want 30s", cfg.Ledger.SummaryInterval)
	}
}

func TestValidateRejectsNonPositiveLedgerValues(t *testing.T) {
	cfg := &Config{
		JWT: JWTConfig{Secret: "test-secret"},
		Ledger: LedgerConfig{
			MinContribution:  0,
			InactivityPeriod: 7 * 24 * time.Hour,
			SweepInterval:    time.Minute,
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("zero MinContribution should fail validation")
	}

	cfg.Ledger.MinContribution = 0.0001
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid ledger config rejected: %v", err)
	}
}
