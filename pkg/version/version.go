// Copyright ©️ Ferry Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import "runtime"

// Overridden at build time via -ldflags.
var (
	version   = "0.9.0-dev"
	buildTime = "none"
)

func GetVersion() string {
	return version
}

func GetVersionString() string {
	return version + " (" + runtime.Version() + ", built " + buildTime + ")"
}
