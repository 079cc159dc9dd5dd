package service

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeFormats(t *testing.T) {
	g := NewCodeGeneratorWithNode("a1b2c3")
	now := time.Date(2025, 6, 1, 8, 30, 15, 123456789, time.UTC)

	assert.Equal(t, "OD-20250601083015123-a1b2c3", g.OrderNumber(now))
	assert.Equal(t, "KM-20250601083015-a1b2c3", g.PromotionCode(now))
	assert.Equal(t, "NTF-20250601083015-a1b2c3", g.NotificationCode(now))
}

func TestCodesIncreaseWithinPrefix(t *testing.T) {
	g := NewCodeGeneratorWithNode("n")
	now := time.Date(2025, 6, 1, 8, 30, 15, 0, time.UTC)

	assert.Equal(t, "OD-20250601083015000-n", g.OrderNumber(now))
	assert.Equal(t, "OD-20250601083015001-n", g.OrderNumber(now))
	assert.Equal(t, "OD-20250601083015002-n", g.OrderNumber(now.Add(-time.Hour)))
	assert.Equal(t, "KM-20250601083015-n", g.PromotionCode(now))
	assert.Equal(t, "KM-20250601083016-n", g.PromotionCode(now))
}

func TestCodesUniqueUnderConcurrency(t *testing.T) {
	g := NewCodeGenerator()
	now := time.Now()

	var mu sync.Mutex
	seen := map[string]struct{}{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := g.OrderNumber(now)
			mu.Lock()
			seen[code] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, seen, 50)

	for code := range seen {
		assert.Regexp(t, regexp.MustCompile(`^OD-\d{17}-[0-9a-f]{6}$`), code)
	}
}
