// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import "testing"

func TestIsAutoupdateInvocation(t *testing.T) {
	cases := []struct {
		name string
		argv []string
		want bool
	}{
		{"bare update", []string{"update"}, false},
		{"autoupdate child", []string{"update", "--autoupdate"}, true},
		{"autoupdate child with channel", []string{"update", "beta", "--autoupdate"}, true},
		{"flag after dash-dash is not consulted", []string{"update", "--", "--autoupdate"}, false},
		{"empty argv", nil, false},
		{"unrelated command", []string{"plugins:install", "widget"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := isAutoupdateInvocation(c.argv)
			if got != c.want {
				t.Errorf("isAutoupdateInvocation(%v) = %v, want %v", c.argv, got, c.want)
			}
		})
	}
}
