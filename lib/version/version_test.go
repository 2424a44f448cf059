// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoMarksDirtyBuilds(t *testing.T) {
	previousCommit, previousDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = previousCommit, previousDirty })

	GitCommit = "abc1234"
	GitDirty = "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Fatalf("Info() = %q, want dirty marker", got)
	}

	GitDirty = "false"
	if got := Info(); strings.Contains(got, "-dirty") {
		t.Fatalf("Info() = %q, clean build marked dirty", got)
	}
}

func TestUserAgentCarriesAgentVersion(t *testing.T) {
	if got := UserAgent(); !strings.HasPrefix(got, "beacon-go/"+Agent()+" ") {
		t.Fatalf("UserAgent() = %q", got)
	}
}
