package matcher

import (
	"errors"
	"strings"
	"testing"

	"ingot/internal/ledger"
)

func testConfigs() []ledger.IngestionConfig {
	return []ledger.IngestionConfig{
		{ConfigID: 1, SourceSystem: "crm", SourceType: "csv", LogicalSourceFile: "orders", TargetTable: "orders", Active: true},
		{ConfigID: 2, SourceSystem: "crm", SourceType: "csv", LogicalSourceFile: "customers", TargetTable: "customers", Active: true},
		{ConfigID: 3, SourceSystem: "erp", SourceType: "csv", LogicalSourceFile: "orders", TargetTable: "erp_orders", Active: true},
		{ConfigID: 4, SourceSystem: "crm", SourceType: "csv", LogicalSourceFile: "retired", Active: false},
	}
}

func TestResolveSingleMatch(t *testing.T) {
	cfg, err := Resolve(testConfigs(), "crm", "Orders-BATCH000002.CSV")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg == nil || cfg.ConfigID != 1 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestResolveScopedBySourceSystem(t *testing.T) {
	cfg, err := Resolve(testConfigs(), "erp", "orders.csv")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg == nil || cfg.ConfigID != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestResolveNoMatch(t *testing.T) {
	cfg, err := Resolve(testConfigs(), "crm", "unknown.csv")
	if err != nil || cfg != nil {
		t.Fatalf("cfg = %+v err = %v, want nil/nil", cfg, err)
	}
}

func TestResolveIgnoresInactive(t *testing.T) {
	cfg, err := Resolve(testConfigs(), "crm", "retired.csv")
	if err != nil || cfg != nil {
		t.Fatalf("inactive config matched: cfg = %+v err = %v", cfg, err)
	}
}

func TestResolveRequiresMatchingSourceType(t *testing.T) {
	cfg, err := Resolve(testConfigs(), "crm", "orders_BATCH000002.json")
	if err != nil || cfg != nil {
		t.Fatalf("json file claimed by csv config: cfg = %+v err = %v", cfg, err)
	}
}

func TestResolveDistinguishesBySourceType(t *testing.T) {
	configs := append(testConfigs(), ledger.IngestionConfig{
		ConfigID: 7, SourceSystem: "crm", SourceType: "json", LogicalSourceFile: "orders", Active: true,
	})
	if err := ValidateConfigs(configs); err != nil {
		t.Fatalf("csv and json configs for one logical file should coexist: %v", err)
	}

	cfg, err := Resolve(configs, "crm", "orders_BATCH000002.json")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg == nil || cfg.ConfigID != 7 {
		t.Fatalf("cfg = %+v, want config 7", cfg)
	}

	cfg, err = Resolve(configs, "crm", "orders_BATCH000002.csv")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg == nil || cfg.ConfigID != 1 {
		t.Fatalf("cfg = %+v, want config 1", cfg)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	configs := append(testConfigs(), ledger.IngestionConfig{
		ConfigID: 9, SourceSystem: "crm", SourceType: "csv", LogicalSourceFile: "orders", Active: true,
	})
	_, err := Resolve(configs, "crm", "orders.csv")
	if !errors.Is(err, ErrAmbiguousConfig) {
		t.Fatalf("err = %v, want ErrAmbiguousConfig", err)
	}
	for _, id := range []string{"1", "9"} {
		if !strings.Contains(err.Error(), id) {
			t.Fatalf("error should name config %s: %v", id, err)
		}
	}
}

func TestValidateConfigs(t *testing.T) {
	if err := ValidateConfigs(testConfigs()); err != nil {
		t.Fatalf("clean set should validate: %v", err)
	}

	configs := append(testConfigs(), ledger.IngestionConfig{
		ConfigID: 9, SourceSystem: "CRM", SourceType: "CSV", LogicalSourceFile: "orders", Active: true,
	})
	err := ValidateConfigs(configs)
	if !errors.Is(err, ErrAmbiguousConfig) {
		t.Fatalf("err = %v, want ErrAmbiguousConfig", err)
	}
}
