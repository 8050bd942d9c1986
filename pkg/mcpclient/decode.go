package mcpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const sseDataPrefix = "data: "

// DecodeResponse turns a response body into a JSON-RPC response object.
//
// A body without any "data: " marker is parsed as JSON. Otherwise the first
// line starting with "data: " is stripped of the prefix, trimmed, and parsed;
// later events are ignored.
func DecodeResponse(text string) (Response, error) {
	if !strings.Contains(text, sseDataPrefix) {
		resp, err := parseResponse([]byte(text))
		if err != nil {
			return Response{}, &DecodeError{Err: fmt.Errorf("%w: %v", ErrNotJSONOrSSE, err)}
		}
		return resp, nil
	}

	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}
		payload := strings.TrimSpace(line[len(sseDataPrefix):])
		resp, err := parseResponse([]byte(payload))
		if err != nil {
			return Response{}, &DecodeError{Err: fmt.Errorf("invalid JSON in SSE data line: %w", err)}
		}
		return resp, nil
	}

	return Response{}, &DecodeError{Err: ErrNoDataLine}
}

// parseResponse decodes one JSON object, keeping numbers as json.Number and
// the trimmed input as the raw form.
func parseResponse(data []byte) (Response, error) {
	data = bytes.TrimSpace(data)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Response{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Response{}, errors.New("unexpected data after top-level value")
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return Response{fields: fields, raw: raw}, nil
}
