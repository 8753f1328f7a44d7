package httpx

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderPlayerID carries the acting player on every request. Actor identity
// is always explicit; there is no ambient "current user".
const HeaderPlayerID = "X-Player-ID"

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("rid", rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rid, _ := c.Get("rid")
		log.Printf("[http] rid=%v %s %s status=%d dur=%s",
			rid, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// ActorID extracts the acting player id, aborting with 400 when missing.
func ActorID(c *gin.Context) (string, bool) {
	id := c.GetHeader(HeaderPlayerID)
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + HeaderPlayerID + " header"})
		return "", false
	}
	return id, true
}
