package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifemakers/pirates-api/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	requestStartKey = "response_meta_start"
)

// ResponseMeta is the "meta" object attached to envelope responses.
type ResponseMeta map[string]interface{}

// WithResponseMeta starts the response clock and seeds the meta object for handlers below it.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		meta := ResponseMeta{}
		if id := requestid.Value(c); id != "" {
			meta["request_id"] = id
		}
		c.Set(responseMetaKey, meta)
		c.Next()
	}
}

// SetCacheHit marks whether the payload was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	Meta(c)["cache_hit"] = hit
}

// Meta returns the meta object of the current request with processing_time_ms refreshed.
// Handlers mounted without WithResponseMeta get a fresh object stored on the context.
func Meta(c *gin.Context) ResponseMeta {
	meta, ok := c.Value(responseMetaKey).(ResponseMeta)
	if !ok {
		meta = ResponseMeta{}
		c.Set(responseMetaKey, meta)
	}
	if start, ok := c.Value(requestStartKey).(time.Time); ok {
		meta["processing_time_ms"] = time.Since(start).Milliseconds()
	}
	return meta
}
