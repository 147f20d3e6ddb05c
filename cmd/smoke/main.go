// Command smoke exercises the endpoints of a running server.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
)

type check struct {
	name   string
	path   string
	status []int
}

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "server base URL")
		userID  = flag.Int64("user", 1, "user id with ratings")
		title   = flag.String("movie", "Toy Story (1995)", "exact title in the catalog")
		target  = flag.String("target", "Toy Story 2 (1999)", "second title for the path check")
	)
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	checks := []check{
		{"health", "/health", []int{http.StatusOK}},
		{"search", "/movies/search?q=" + url.QueryEscape("toy story"), []int{http.StatusOK}},
		{"user recommendations", fmt.Sprintf("/recommend/%d?n=5", *userID), []int{http.StatusOK}},
		{"guest recommendations", "/recommend/by-movie/" + url.PathEscape(*title) + "?n=5", []int{http.StatusOK}},
		{"rated movies", fmt.Sprintf("/user/%d/rated?limit=5", *userID), []int{http.StatusOK}},
		// No path between the two titles is a valid outcome.
		{"graph path", "/graph/path/" + url.PathEscape(*title) + "/" + url.PathEscape(*target), []int{http.StatusOK, http.StatusNotFound}},
		{"unknown user", "/recommend/999999999", []int{http.StatusNotFound}},
		{"bad input", "/recommend/not-a-number", []int{http.StatusBadRequest}},
	}

	failed := 0
	for i, c := range checks {
		fmt.Printf("%d. %s ... ", i+1, c.name)
		body, err := run(client, *baseURL+c.path, c.status)
		if err != nil {
			color.Red("FAILED: %v", err)
			failed++
			continue
		}
		color.Green("PASSED")
		fmt.Printf("   %s\n", color.HiBlackString("%s", summarize(body)))
	}

	if failed > 0 {
		color.Red("%d of %d checks failed", failed, len(checks))
		os.Exit(1)
	}
	color.Green("All %d checks passed", len(checks))
}

func run(client *http.Client, target string, want []int) ([]byte, error) {
	resp, err := client.Get(target)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	for _, s := range want {
		if resp.StatusCode == s {
			return body, nil
		}
	}
	return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
}

// summarize shortens a JSON body for display.
func summarize(body []byte) string {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return "non-JSON response"
	}
	out, _ := json.Marshal(v)
	if len(out) > 160 {
		return string(out[:160]) + "..."
	}
	return string(out)
}
