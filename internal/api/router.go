package api

// #region imports
import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// #endregion

// #region request-id

const requestIDHeader = "X-Request-ID"
const requestIDKey = "request_id"

// RequestID assigns every request an identifier, honoring one supplied
// by the caller. The identifier is echoed back in the response header
// and keyed into the decision log.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestIDFrom returns the identifier assigned by the middleware.
func RequestIDFrom(c *gin.Context) string {
	if id, ok := c.Get(requestIDKey); ok {
		if s, ok := id.(string); ok && s != "" {
			return s
		}
	}
	return uuid.NewString()
}

// #endregion request-id

// #region router

// NewRouter builds the gin engine with middleware and all chat routes.
// CORS is permissive; the service sits behind the faculty gateway.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(RequestID())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", requestIDHeader}
	corsCfg.ExposeHeaders = []string{requestIDHeader}
	corsCfg.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsCfg))

	r.GET("/health", h.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/chat/process", h.handleProcess)
		v1.GET("/chat/process", h.handleProcessQuery)
		v1.POST("/chat/demo", h.handleDemo)
		v1.GET("/status", h.handleStatus)
	}

	return r
}

// #endregion router
