// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"errors"
	"net/url"
	"strings"
)

// JoinURL joins a base URL and a relative URL, ensuring there are no
// unnecessary or duplicate slashes, regardless of whether baseURL already
// carries a scheme.
func JoinURL(baseURL, relativeURL string) (string, error) {
	if baseURL == "" {
		return "", errors.New("base url is empty")
	}

	schemaNotPresent := !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://")
	if schemaNotPresent {
		baseURL = "https://" + baseURL
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	parsed = parsed.JoinPath(relativeURL)

	if schemaNotPresent {
		return strings.TrimPrefix(parsed.String(), "https://"), nil
	}
	return parsed.String(), nil
}
