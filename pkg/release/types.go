// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package release holds the Version/Manifest wire types and the HTTP
// client that fetches them, implementing spec section 4.3 (HTTP/Manifest).
package release

import "encoding/json"

// Build describes a single platform-arch download within a Manifest.
type Build struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
}

// Manifest describes one downloadable release for one channel.
type Manifest struct {
	Version  string           `json:"version"`
	Channel  string           `json:"channel"`
	SHA256Gz string           `json:"sha256gz"`
	Priority int              `json:"priority,omitempty"`
	Builds   map[string]Build `json:"builds,omitempty"`
}

// Version is the small JSON document published at
// <s3Host>/<name>/channels/<channel>/version and cached locally at
// <cacheDir>/<channel>.version.
//
// Its Unmarshal/Marshal pair round-trips fields this build doesn't know
// about (spec section 6, "persisted state versioning: ... unknown fields
// are preserved on re-write where possible"), by keeping them in extra and
// re-emitting them alongside the known fields.
type Version struct {
	Version string `json:"version"`
	Channel string `json:"channel"`
	Message string `json:"message,omitempty"`

	extra map[string]json.RawMessage
}

type versionKnownFields struct {
	Version string `json:"version"`
	Channel string `json:"channel"`
	Message string `json:"message,omitempty"`
}

// UnmarshalJSON decodes the known fields and stashes everything else.
func (v *Version) UnmarshalJSON(data []byte) error {
	var known versionKnownFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	delete(all, "version")
	delete(all, "channel")
	delete(all, "message")

	v.Version = known.Version
	v.Channel = known.Channel
	v.Message = known.Message
	v.extra = all
	return nil
}

// MarshalJSON re-emits the known fields plus whatever unknown fields were
// captured on decode.
func (v Version) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	for k, raw := range v.extra {
		out[k] = raw
	}

	encode := func(val interface{}) (json.RawMessage, error) {
		b, err := json.Marshal(val)
		return json.RawMessage(b), err
	}

	versionRaw, err := encode(v.Version)
	if err != nil {
		return nil, err
	}
	out["version"] = versionRaw

	channelRaw, err := encode(v.Channel)
	if err != nil {
		return nil, err
	}
	out["channel"] = channelRaw

	if v.Message != "" {
		messageRaw, err := encode(v.Message)
		if err != nil {
			return nil, err
		}
		out["message"] = messageRaw
	} else {
		delete(out, "message")
	}

	return json.Marshal(out)
}
