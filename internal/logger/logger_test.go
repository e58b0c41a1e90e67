package logger_test

import (
	"sync"
	"testing"

	"github.com/craterdb/crater/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.LogLevelDebug, logger.ParseLevel("debug"))
	assert.Equal(t, logger.LogLevelInfo, logger.ParseLevel("info"))
	assert.Equal(t, logger.LogLevelWarn, logger.ParseLevel("WARN"))
	assert.Equal(t, logger.LogLevelError, logger.ParseLevel("error"))
	assert.Equal(t, logger.LogLevelInfo, logger.ParseLevel("bogus"))
}

// The level may be reset by one store while another's background task is
// logging; exercised here for the race detector.
func TestConcurrentSetLevel(t *testing.T) {
	defer logger.SetLevel(logger.LogLevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if n%2 == 0 {
					logger.SetLevel(logger.LogLevelError)
				} else {
					logger.Debug("message %d", j)
				}
			}
		}(i)
	}
	wg.Wait()
}
