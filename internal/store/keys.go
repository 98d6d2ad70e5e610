// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Key prefixes. Exported builders exist where other packages (the alert
// deduplicator) share the layout.
const (
	prefixIdentity    = "identity:"
	prefixIdentityOcc = "identity_occ:"
	prefixToken       = "token:"
	prefixResource    = "resource:"
	prefixEvent       = "event:"
	prefixEventToken  = "event_token:"
	prefixAlertHead   = "alert_head:"
	prefixAPIKey      = "apikey:"
)

// eventIndexTimeWidth zero-pads event times in index keys so that
// lexicographic order matches numeric order.
const eventIndexTimeWidth = 12

func identityKey(id string) []byte {
	return []byte(prefixIdentity + id)
}

func identityOccKey(occupancy int, id string) []byte {
	return []byte(fmt.Sprintf("%s%d:%s", prefixIdentityOcc, occupancy, id))
}

func identityOccPrefix(occupancy int) []byte {
	return []byte(fmt.Sprintf("%s%d:", prefixIdentityOcc, occupancy))
}

func tokenKey(accessKeyID string) []byte {
	return []byte(prefixToken + accessKeyID)
}

func resourceKey(resourceARN string) []byte {
	return []byte(prefixResource + resourceARN)
}

// EventKey is the primary key for an event record.
func EventKey(eventID string) []byte {
	return []byte(prefixEvent + eventID)
}

// EventTokenKey is the (credential, time) index key for an event. The
// stored value is "1" when the event alerted, "0" otherwise.
func EventTokenKey(accessKeyID string, eventTime int64, eventID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%0*d:%s", prefixEventToken, accessKeyID, eventIndexTimeWidth, eventTime, eventID))
}

// EventTokenPrefix is the index prefix covering all events for a
// credential, ordered by event time.
func EventTokenPrefix(accessKeyID string) []byte {
	return []byte(prefixEventToken + accessKeyID + ":")
}

// ParseEventTokenKey extracts the event time and event ID from an index
// key produced by EventTokenKey.
func ParseEventTokenKey(key []byte) (eventTime int64, eventID string, err error) {
	rest := strings.TrimPrefix(string(key), prefixEventToken)
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) != 3 {
		return 0, "", fmt.Errorf("malformed event index key %q", key)
	}
	eventTime, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed event time in key %q: %w", key, err)
	}
	return eventTime, parts[2], nil
}

// AlertHeadKey stores the most recent alerted event time for a
// credential, as a decimal string. Every alert decision point-reads this
// key and every alert writes it, so concurrent decisions for one
// credential conflict instead of racing past each other. (Badger tracks
// point reads for conflict detection but not range scans.)
func AlertHeadKey(accessKeyID string) []byte {
	return []byte(prefixAlertHead + accessKeyID)
}

func apiKeyKey(keyID string) []byte {
	return []byte(prefixAPIKey + keyID)
}
