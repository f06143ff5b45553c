// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package config

import (
	"fmt"
	"net/url"
)

// validateHTTPURL checks that rawURL is an absolute http(s) origin. A path
// prefix is allowed because the upstream may be mounted below the host root,
// but query strings and fragments are not.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	if parsedURL.Fragment != "" || parsedURL.User != nil {
		return fmt.Errorf("%s must not contain credentials or a fragment", fieldName)
	}

	return nil
}
