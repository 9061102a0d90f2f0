package xapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTweetIDFromURL(t *testing.T) {
	assert.Equal(t, "1790000000000000001", TweetIDFromURL("https://x.com/alice/status/1790000000000000001"))
	assert.Equal(t, "123", TweetIDFromURL("https://twitter.com/bob/status/123?s=20"))
	assert.Equal(t, "", TweetIDFromURL("https://x.com/alice"))
	assert.Equal(t, "", TweetIDFromURL(""))
}

func TestLookupEngagement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "11,22", r.URL.Query().Get("ids"))
		assert.Equal(t, "public_metrics", r.URL.Query().Get("tweet.fields"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"11","public_metrics":{"like_count":5,"impression_count":100}},{"id":"22","public_metrics":{"retweet_count":2}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")
	got, err := client.LookupEngagement(context.Background(), []string{"11", "22"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].PublicMetrics.LikeCount)
	assert.Equal(t, 100, got[0].PublicMetrics.ImpressionCount)
	assert.Equal(t, 2, got[1].PublicMetrics.RetweetCount)
}

func TestLookupEngagement_Limits(t *testing.T) {
	client := NewClient("http://unused", "t")

	got, err := client.LookupEngagement(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	ids := make([]string, MaxBatchSize+1)
	for i := range ids {
		ids[i] = "1"
	}
	_, err = client.LookupEngagement(context.Background(), ids)
	assert.Error(t, err)
}

func TestLookupEngagement_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad")
	_, err := client.LookupEngagement(context.Background(), []string{"11"})
	assert.Error(t, err)
}
