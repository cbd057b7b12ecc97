package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/logger"
	"github.com/kbukum/flowgraph/resilience"
)

// ConcurrencyConfig bounds how many API requests are handled at once.
type ConcurrencyConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// MaxInFlight is the number of requests handled concurrently.
	MaxInFlight int `yaml:"max_in_flight" mapstructure:"max_in_flight"`
	// MaxWait is how long a request queues for a slot before it is refused.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// ConcurrencyLimit runs each request inside a bulkhead. Requests that find
// no slot within MaxWait are answered 503 OVERLOADED.
func ConcurrencyLimit(cfg ConcurrencyConfig, log *logger.Logger) gin.HandlerFunc {
	bh := resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "api",
		MaxConcurrent: cfg.MaxInFlight,
		MaxWait:       cfg.MaxWait,
		OnReject: func(name string, err error) {
			log.Warn("Request refused, no free slot", logger.Fields("bulkhead", name, logger.FieldError, err.Error()))
		},
	})

	return func(c *gin.Context) {
		err := bh.Execute(c.Request.Context(), func() error {
			c.Next()
			return nil
		})
		if err != nil {
			appErr := errors.Overloaded()
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
		}
	}
}
