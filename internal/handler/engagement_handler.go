package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"affily/config"
	"affily/pkg/xapi"

	"github.com/gin-gonic/gin"
)

type EngagementHandler struct {
	cfg     *config.XAPIConfig
	xClient *xapi.Client
}

func NewEngagementHandler(cfg *config.XAPIConfig, xClient *xapi.Client) *EngagementHandler {
	return &EngagementHandler{cfg: cfg, xClient: xClient}
}

// Fetch handles GET /engagement?tweetIds=1,2,3 — proxies a batched public
// metrics lookup for internal callers holding the shared key.
func (h *EngagementHandler) Fetch(c *gin.Context) {
	key := c.GetHeader("x-api-key")
	if h.cfg.BearerToken == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.cfg.BearerToken)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid api key"})
		return
	}
	raw := c.Query("tweetIds")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing tweetIds"})
		return
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing tweetIds"})
		return
	}
	if len(ids) > xapi.MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at most 100 tweet ids per call"})
		return
	}
	data, err := h.xClient.LookupEngagement(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch engagement data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
