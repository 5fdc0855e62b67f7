// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package loki

import (
	"strconv"
)

// PushRequest is the Loki JSON push payload:
//
//	{"streams":[{"stream":{"label":"value"},"values":[["<unix_ns>","line"], ...]}]}
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a set of log lines sharing the same labels.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"` // [timestamp (ns as string), line]
}

// Build groups the entries into streams. Unlabelled entries share a single stream keyed
// by the default labels, while every labelled entry gets its own single value stream keyed
// by the default labels merged with its labels. It returns false if there are no entries.
func Build(defaults map[string]string, entries []Entry) (PushRequest, bool) {
	if len(entries) == 0 {
		return PushRequest{}, false
	}

	var (
		main    [][2]string
		labeled []Stream
	)
	for _, entry := range entries {
		value := [2]string{strconv.FormatInt(entry.Timestamp, 10), entry.Line}

		if len(entry.Labels) == 0 {
			main = append(main, value)
			continue
		}

		labeled = append(labeled, Stream{
			Stream: mergeLabels(defaults, entry.Labels),
			Values: [][2]string{value},
		})
	}

	var req PushRequest
	if len(main) > 0 {
		req.Streams = append(req.Streams, Stream{
			Stream: mergeLabels(defaults, nil),
			Values: main,
		})
	}
	req.Streams = append(req.Streams, labeled...)

	return req, true
}

// mergeLabels returns a new label set containing the defaults overridden by extra.
func mergeLabels(defaults, extra map[string]string) map[string]string {
	resp := make(map[string]string, len(defaults)+len(extra))
	for k, v := range defaults {
		resp[k] = v
	}
	for k, v := range extra {
		resp[k] = v
	}

	return resp
}

// entryCount returns the total number of values in the request.
func (r PushRequest) entryCount() int {
	var n int
	for _, s := range r.Streams {
		n += len(s.Values)
	}

	return n
}
