package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scobuck/CastKit/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.DefaultAppID != "CC1AD845" {
		t.Errorf("expected default app id CC1AD845, got %q", cfg.DefaultAppID)
	}
	if cfg.Volume != 1.0 {
		t.Errorf("expected volume 1.0, got %v", cfg.Volume)
	}
	if len(cfg.Devices) != 0 {
		t.Error("expected no remembered devices by default")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := config.Config{
		DefaultAppID: "233637DE",
		Volume:       0.5,
		LastDevice:   "living-room",
		Devices: []config.DeviceEntry{
			{Name: "Living Room", HostName: "192.168.1.10", Port: 8009},
		},
	}

	if err := config.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := config.Load()
	if loaded.DefaultAppID != cfg.DefaultAppID {
		t.Errorf("default app id: want %q got %q", cfg.DefaultAppID, loaded.DefaultAppID)
	}
	if loaded.Volume != cfg.Volume {
		t.Errorf("volume: want %v got %v", cfg.Volume, loaded.Volume)
	}
	if loaded.LastDevice != cfg.LastDevice {
		t.Errorf("last device: want %q got %q", cfg.LastDevice, loaded.LastDevice)
	}
	if len(loaded.Devices) != 1 || loaded.Devices[0].HostName != "192.168.1.10" {
		t.Errorf("devices: unexpected value %+v", loaded.Devices)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := config.Load()
	if cfg.DefaultAppID == "" {
		t.Error("expected non-empty default app id from defaults")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "castkit", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json {{{"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Load()
	if cfg.DefaultAppID != "CC1AD845" {
		t.Errorf("expected default app id on corrupt file, got %q", cfg.DefaultAppID)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := config.Save(config.Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, "castkit", "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}

func TestRememberDeviceUpsertsByHostName(t *testing.T) {
	cfg := config.Default()
	cfg.RememberDevice(config.DeviceEntry{Name: "Kitchen", HostName: "192.168.1.20", Port: 8009})
	cfg.RememberDevice(config.DeviceEntry{Name: "Kitchen Mini", HostName: "192.168.1.20", Port: 8009})

	if len(cfg.Devices) != 1 {
		t.Fatalf("expected one device after upsert, got %d", len(cfg.Devices))
	}
	if cfg.Devices[0].Name != "Kitchen Mini" {
		t.Errorf("expected upsert to replace name, got %q", cfg.Devices[0].Name)
	}
}
