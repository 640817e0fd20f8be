// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package release

import "github.com/Masterminds/semver"

// MinorVersionGreater reports whether remote is on the same major version
// as current but has a strictly greater minor version (spec section 4.5.4).
// An unparsable version on either side is treated as "not greater" rather
// than erroring, matching the teacher's own utils.IsNewVersion which
// likewise degrades to false on a bad semver string instead of failing the
// calling command.
func MinorVersionGreater(current, remote string) bool {
	c, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	r, err := semver.NewVersion(remote)
	if err != nil {
		return false
	}
	return c.Major() == r.Major() && r.Minor() > c.Minor()
}

// IsNewer reports whether remote is a strictly greater semver than
// current. pluginmanager.UserProvider.Update calls this after refreshing a
// plugin's descriptor to decide whether the refresh was an actual version
// bump worth logging.
func IsNewer(remote, current string) bool {
	r, err := semver.NewVersion(remote)
	if err != nil {
		return false
	}
	c, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	return r.Compare(c) > 0
}
