// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package radixscan

import (
	"runtime/debug"
)

const root = "github.com/LynnColeArt/radixscan"

// Version returns the version of radixscan and its checksum as recorded in
// the running binary. It is empty when build info is unavailable or the
// binary does not link radixscan as a module.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return moduleVersion(b)
}

// moduleVersion finds radixscan in b, either as the main module of a
// command built inside this repository or as a dependency.
func moduleVersion(b *debug.BuildInfo) (version, sum string) {
	if b.Main.Path == root {
		return b.Main.Version, b.Main.Sum
	}
	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if r := m.Replace; r != nil {
			// local replacements carry no version of their own
			if r.Version == "" {
				return m.Version + "=>" + r.Path, r.Sum
			}
			return m.Version + "=>" + r.Version, r.Sum
		}
		return m.Version, m.Sum
	}
	return "", ""
}

// VersionString is Version formatted for logs, "(unknown)" when unavailable
func VersionString() string {
	v, _ := Version()
	if v == "" {
		return "(unknown)"
	}
	return v
}
