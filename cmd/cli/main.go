package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type checkResponse struct {
	Exists bool   `json:"exists"`
	Link   string `json:"link"`
}

type recentResponse struct {
	Count int `json:"count"`
	Items []struct {
		Link         string  `json:"link"`
		Title        string  `json:"title"`
		Organization string  `json:"organization"`
		Confidence   float64 `json:"confidence"`
		Affected     *int64  `json:"affected"`
		PublishedAt  string  `json:"published_at"`
	} `json:"items"`
}

func main() {
	serverAddr := flag.String("server", "http://localhost:8080", "BreachRadar API address")
	apiToken := flag.String("token", os.Getenv("REST_API_AUTH_TOKEN"), "Bearer token for the API")
	link := flag.String("link", "", "Check a single article link against the database")
	linksFile := flag.String("file", "", "Check every link listed in a file (one URL per line)")
	recent := flag.String("recent", "", "List incidents ingested within a window, e.g. 24h or 168h")
	flag.Parse()

	cli := &apiClient{
		base:   strings.TrimRight(*serverAddr, "/"),
		token:  *apiToken,
		client: &http.Client{Timeout: 15 * time.Second},
	}

	switch {
	case *recent != "":
		if err := cli.listRecent(*recent); err != nil {
			log.Fatalf("❌ %v", err)
		}

	case *link != "":
		known, err := cli.checkLink(*link)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		if known {
			fmt.Printf("🚨 [KNOWN] %s\n", *link)
			os.Exit(1)
		}
		fmt.Printf("✅ [NEW] %s\n", *link)

	case *linksFile != "":
		known, err := cli.checkFile(*linksFile)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		if known > 0 {
			fmt.Printf("❌ %d links already reported as incidents.\n", known)
			os.Exit(1)
		}
		fmt.Println("✅ No known incidents found.")

	default:
		flag.Usage()
		os.Exit(2)
	}
}

type apiClient struct {
	base   string
	token  string
	client *http.Client
}

func (c *apiClient) get(path string, query url.Values, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) checkLink(link string) (bool, error) {
	var result checkResponse
	if err := c.get("/api/v1/items/check", url.Values{"link": {link}}, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}

func (c *apiClient) checkFile(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("error reading file: %w", err)
	}
	defer file.Close()

	fmt.Printf("🔍 Checking links from %s against %s...\n\n", path, c.base)

	known := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		exists, err := c.checkLink(line)
		if err != nil {
			log.Printf("⚠️ error checking %s: %v", line, err)
			continue
		}
		if exists {
			fmt.Printf("🚨 [KNOWN] %s\n", line)
			known++
		} else {
			fmt.Printf("✅ [NEW] %s\n", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return known, err
	}

	fmt.Println("------------------------------------------------")
	return known, nil
}

func (c *apiClient) listRecent(window string) error {
	var result recentResponse
	if err := c.get("/api/v1/items/recent", url.Values{"since": {window}}, &result); err != nil {
		return err
	}

	fmt.Printf("📋 %d incidents in the last %s:\n\n", result.Count, window)
	for _, item := range result.Items {
		affected := "unknown"
		if item.Affected != nil {
			affected = fmt.Sprintf("%d", *item.Affected)
		}
		org := item.Organization
		if org == "" {
			org = "(organization not identified)"
		}
		fmt.Printf("• %s - affected: %s, confidence: %.2f\n  %s\n", org, affected, item.Confidence, item.Link)
	}
	return nil
}
