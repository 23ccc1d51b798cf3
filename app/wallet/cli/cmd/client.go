package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var client = http.Client{Timeout: 30 * time.Second}

// apiError is the body the node returns on failure.
type apiError struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields"`
}

// call performs the request against the node and decodes a successful
// response into v.
func call(method string, endpoint string, body any, v any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, endpoint, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if err := json.NewDecoder(resp.Body).Decode(&ae); err != nil {
			return fmt.Errorf("node responded %s", resp.Status)
		}
		if len(ae.Fields) > 0 {
			return fmt.Errorf("node responded %s: %s: %v", resp.Status, ae.Error, ae.Fields)
		}
		return fmt.Errorf("node responded %s: %s", resp.Status, ae.Error)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
