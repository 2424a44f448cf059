// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/zeebo/blake3"
)

// HostInfo is what device detection needs to know about the host.
type HostInfo struct {
	HostID          string
	Hostname        string
	OS              string
	Platform        string
	PlatformVersion string
}

// DetectHost reads host information through gopsutil. Fields it cannot
// determine are left empty.
func DetectHost() HostInfo {
	info, err := host.Info()
	if err != nil || info == nil {
		hostname, _ := os.Hostname()
		return HostInfo{Hostname: hostname}
	}
	return HostInfo{
		HostID:          info.HostID,
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
	}
}

// ResolveDevice fills empty device fields from the running host.
func (c *Config) ResolveDevice() {
	c.resolveDevice(DetectHost(), "/sys")
}

// resolveDevice is the testable implementation of ResolveDevice.
func (c *Config) resolveDevice(info HostInfo, sysRoot string) {
	if c.Device.OperatingSystem == "" {
		c.Device.OperatingSystem = operatingSystem(info)
	}
	if c.Device.Manufacturer == "" {
		c.Device.Manufacturer = readSysfsString(filepath.Join(sysRoot, "class/dmi/id/sys_vendor"))
	}
	if c.Device.Model == "" {
		c.Device.Model = readSysfsString(filepath.Join(sysRoot, "class/dmi/id/product_name"))
	}
	if c.Device.ID == "" {
		c.Device.ID = DeviceID(info, c.Application.ID)
	}
}

// operatingSystem renders e.g. "linux ubuntu 24.04".
func operatingSystem(info HostInfo) string {
	var parts []string
	for _, part := range []string{info.OS, info.Platform, info.PlatformVersion} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// DeviceID derives a stable decimal visitor id from the host identity
// and the application id, so the same machine gets different ids in
// different applications. The result fits in a positive int64.
func DeviceID(info HostInfo, applicationID string) string {
	seed := info.HostID
	if seed == "" {
		seed = info.Hostname
	}
	digest := blake3.Sum256([]byte("beacon device id\x00" + seed + "\x00" + applicationID))
	value := binary.BigEndian.Uint64(digest[:8]) >> 1
	return strconv.FormatUint(value, 10)
}

// readSysfsString returns the trimmed content of a sysfs attribute,
// or "" on any error.
func readSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
