package cli

import (
	"fmt"
	"net/http"
	"time"
)

// checkTimeout bounds the background backend reachability check.
const checkTimeout = 3 * time.Second

// backendNotice receives the message from the background check.
var backendNotice = make(chan string, 1)

// startBackendCheck checks in the background that the order permission
// backend answers at all. Any HTTP status counts as reachable; only
// transport failures are reported. Call printBackendNotice() later to print
// the result.
func startBackendCheck(url string) {
	ch := backendNotice
	if url == "" {
		ch <- ""
		return
	}
	go func() {
		client := &http.Client{Timeout: checkTimeout}

		req, err := http.NewRequest(http.MethodHead, url, nil)
		if err != nil {
			ch <- fmt.Sprintf("\n  Order permission URL is invalid: %v\n", err)
			return
		}
		req.Header.Set("User-Agent", "cartpilot/"+Version)

		resp, err := client.Do(req)
		if err != nil {
			ch <- fmt.Sprintf("\n  Order permission backend unreachable: %v\n  Purchases were checked with retries; verify %s\n", err, url)
			return
		}
		_ = resp.Body.Close()
		ch <- ""
	}()
}

// printBackendNotice prints the check message if one is available.
func printBackendNotice() {
	select {
	case msg := <-backendNotice:
		if msg != "" {
			fmt.Print(msg)
		}
	default:
		// Check not finished yet, don't block
	}
}
