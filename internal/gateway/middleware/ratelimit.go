package middleware

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewRateLimit limits requests per client IP. formatted uses limiter's
// syntax, e.g. "10-M" for ten per minute.
func NewRateLimit(formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", formatted, err)
	}

	store := memory.NewStore()
	instance := limiter.New(store, rate)

	limiterMiddleware := stdlib.NewMiddleware(instance)

	return func(c *gin.Context) {
		limiterMiddleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if c.Writer.Status() == http.StatusTooManyRequests {
			c.Abort()
			return
		}
	}, nil
}

func RateLimit(formatted string) gin.HandlerFunc {
	mw, err := NewRateLimit(formatted)
	if err != nil {
		log.Fatalf("Error while running ratelimiter middleware: %v", err)
	}
	return mw
}
