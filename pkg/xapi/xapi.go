// Package xapi fetches public engagement metrics for posts on X via the v2
// tweet lookup endpoint.
package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// MaxBatchSize is the lookup endpoint's per-call id cap.
const MaxBatchSize = 100

var tweetIDPattern = regexp.MustCompile(`status/(\d+)`)

// TweetIDFromURL extracts the numeric tweet id from a status URL, or "".
func TweetIDFromURL(tweetURL string) string {
	m := tweetIDPattern.FindStringSubmatch(tweetURL)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

// PublicMetrics is the engagement block returned per tweet.
type PublicMetrics struct {
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	LikeCount       int `json:"like_count"`
	QuoteCount      int `json:"quote_count"`
	BookmarkCount   int `json:"bookmark_count"`
	ImpressionCount int `json:"impression_count"`
}

// TweetEngagement pairs a tweet id with its public metrics.
type TweetEngagement struct {
	ID            string        `json:"id"`
	PublicMetrics PublicMetrics `json:"public_metrics"`
}

type lookupResponse struct {
	Data []TweetEngagement `json:"data"`
}

// Client talks to the X API with an app-only bearer token.
type Client struct {
	BaseURL string
	client  *http.Client
}

func NewClient(baseURL, bearerToken string) *Client {
	if baseURL == "" {
		baseURL = "https://api.twitter.com"
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearerToken, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second
	return &Client{BaseURL: baseURL, client: httpClient}
}

// LookupEngagement fetches public metrics for up to MaxBatchSize tweet ids in
// one call.
func (c *Client) LookupEngagement(ctx context.Context, tweetIDs []string) ([]TweetEngagement, error) {
	if len(tweetIDs) == 0 {
		return nil, nil
	}
	if len(tweetIDs) > MaxBatchSize {
		return nil, fmt.Errorf("at most %d tweet ids per lookup, got %d", MaxBatchSize, len(tweetIDs))
	}
	q := url.Values{}
	q.Set("ids", strings.Join(tweetIDs, ","))
	q.Set("tweet.fields", "public_metrics")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/2/tweets?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tweet lookup: %d %s", resp.StatusCode, string(body))
	}
	var out lookupResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
