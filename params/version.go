// Copyright 2022-2026 The shadowtrace Authors
// This file is part of the shadowtrace library.
//
// The shadowtrace library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The shadowtrace library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the shadowtrace library. If not, see <http://www.gnu.org/licenses/>.

package params

import "fmt"

var (
	// Following vars are injected at link time through -ldflags "-X"
	GitCommit string
	GitBranch string
	GitTag    string
)

const (
	VersionMajor    = 1  // Major version component of the current release
	VersionMinor    = 3  // Minor version component of the current release
	VersionBuild    = 42 // Build number, auto-incremented on each build
	VersionModifier = "" // Modifier component (alpha, beta, stable)
)

func withModifier(vsn string) string {
	if !isStable() {
		vsn += "-" + VersionModifier
	}
	return vsn
}

func isStable() bool {
	return VersionModifier == "stable"
}

// Version holds the textual version string.
var Version = func() string {
	return fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionBuild)
}()

// VersionWithModifier holds the textual version string including the modifier.
var VersionWithModifier = func() string {
	v := Version
	if VersionModifier != "" {
		v = withModifier(v)
	}
	return v
}()

// VersionWithCommit returns the version string augmented with commit metadata.
func VersionWithCommit(gitCommit, gitDate string) string {
	vsn := VersionWithModifier
	if len(gitCommit) >= 8 {
		vsn += "-" + gitCommit[:8]
	}
	if gitDate != "" {
		vsn += "-" + gitDate
	}
	return vsn
}
