// Package commands contains the functionality for the admin tooling.
package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client reads from the public api of a node.
type Client struct {
	url  string
	http http.Client
}

// NewClient constructs a client for the node at the url.
func NewClient(url string) *Client {
	return &Client{
		url:  url,
		http: http.Client{Timeout: 30 * time.Second},
	}
}

// get decodes the response of the path into v.
func (c *Client) get(path string, v any) error {
	resp, err := c.http.Get(c.url + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&er)
		return fmt.Errorf("%s: %s: %s", path, resp.Status, er.Error)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
