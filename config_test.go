// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package libsupla

import "testing"

func validConfig() Config {
	var cfg Config
	cfg.GUID[0] = 1
	cfg.AuthKey[0] = 1
	cfg.ServerAddress = "svr1.example.com"
	return cfg
}

func TestConfigApplyDefaultsFillsNameAndSoftVersion(t *testing.T) {
	cfg := validConfig().applyDefaults()
	if cfg.Name != DefaultName {
		t.Fatalf("expected default Name %q, got %q", DefaultName, cfg.Name)
	}
	if cfg.SoftVersion == "" {
		t.Fatalf("expected a default SoftVersion, got empty string")
	}
}

func TestConfigApplyDefaultsLeavesExplicitValuesAlone(t *testing.T) {
	cfg := validConfig()
	cfg.Name = "kitchen-sensor"
	cfg.SoftVersion = "2.3.1"
	cfg = cfg.applyDefaults()
	if cfg.Name != "kitchen-sensor" || cfg.SoftVersion != "2.3.1" {
		t.Fatalf("expected explicit Name/SoftVersion to survive defaulting, got %+v", cfg)
	}
}

func TestConfigValidateAcceptsDefaultedEmptyName(t *testing.T) {
	cfg := validConfig().applyDefaults()
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected defaulted config to validate, got %v", err)
	}
}
