package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reflector.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "reflector:\n  callsign: TESTCALL\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Network.Port != 42000 {
		t.Fatalf("port = %d, want default 42000", cfg.Network.Port)
	}
	if cfg.MQTT.TopicPrefix != "ysfreflector" {
		t.Fatalf("topic prefix = %q", cfg.MQTT.TopicPrefix)
	}
}

func TestLoadRejectsMissingCallsign(t *testing.T) {
	path := writeConfig(t, "network:\n  port: 1000\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing callsign")
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := writeConfig(t, "reflector:\n  callsign: TESTCALL\nnetwork:\n  port: 99999\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestMQTTRequiresBrokerWhenEnabled(t *testing.T) {
	path := writeConfig(t, "reflector:\n  callsign: TESTCALL\nmqtt:\n  enabled: true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for mqtt enabled without broker")
	}
}
