// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func writeDMI(t *testing.T, sysRoot, attribute, value string) {
	t.Helper()
	directory := filepath.Join(sysRoot, "class/dmi/id")
	if err := os.MkdirAll(directory, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(directory, attribute), []byte(value+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveDevice(t *testing.T) {
	sysRoot := t.TempDir()
	writeDMI(t, sysRoot, "sys_vendor", "Framework")
	writeDMI(t, sysRoot, "product_name", "Laptop 13")

	cfg := Default()
	cfg.Application.ID = "checkout"
	cfg.resolveDevice(HostInfo{
		HostID:          "5b1c6f6e-0000-4000-8000-000000000001",
		OS:              "linux",
		Platform:        "ubuntu",
		PlatformVersion: "24.04",
	}, sysRoot)

	if cfg.Device.OperatingSystem != "linux ubuntu 24.04" {
		t.Errorf("operating system = %q", cfg.Device.OperatingSystem)
	}
	if cfg.Device.Manufacturer != "Framework" || cfg.Device.Model != "Laptop 13" {
		t.Errorf("manufacturer/model = %q/%q", cfg.Device.Manufacturer, cfg.Device.Model)
	}
	if _, err := strconv.ParseInt(cfg.Device.ID, 10, 64); err != nil {
		t.Errorf("device id %q is not a positive int64: %v", cfg.Device.ID, err)
	}
}

func TestResolveDeviceKeepsConfiguredValues(t *testing.T) {
	cfg := Default()
	cfg.Device = DeviceConfig{ID: "7", OperatingSystem: "plan9", Manufacturer: "Bell", Model: "Terminal"}
	cfg.resolveDevice(HostInfo{HostID: "x", OS: "linux"}, t.TempDir())

	if cfg.Device != (DeviceConfig{ID: "7", OperatingSystem: "plan9", Manufacturer: "Bell", Model: "Terminal"}) {
		t.Errorf("configured device overwritten: %+v", cfg.Device)
	}
}

func TestResolveDeviceWithoutDMI(t *testing.T) {
	cfg := Default()
	cfg.resolveDevice(HostInfo{Hostname: "build-01"}, t.TempDir())
	if cfg.Device.Manufacturer != "" || cfg.Device.Model != "" {
		t.Errorf("expected empty manufacturer and model, got %+v", cfg.Device)
	}
	if cfg.Device.ID == "" {
		t.Error("device id not derived from hostname")
	}
}

func TestDeviceIDStableAndScoped(t *testing.T) {
	info := HostInfo{HostID: "host-a"}
	first := DeviceID(info, "checkout")
	if DeviceID(info, "checkout") != first {
		t.Fatal("device id not stable")
	}
	if DeviceID(info, "search") == first {
		t.Fatal("device id identical across applications")
	}
	if DeviceID(HostInfo{HostID: "host-b"}, "checkout") == first {
		t.Fatal("device id identical across hosts")
	}
}
