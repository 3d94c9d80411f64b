package tokens

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tiktoken-go/tokenizer"
)

func TestCounter_Count(t *testing.T) {
	c := NewCounter()

	assert.Equal(t, 0, c.Count("gpt-3.5-turbo", ""))
	assert.Equal(t, 2, c.Count("gpt-3.5-turbo", "hello world"))

	long := strings.Repeat("market research ", 50)
	n := c.Count("gemini-1.5-flash", long)
	assert.Greater(t, n, 50)
	assert.Less(t, n, len(long))
}

func TestCounter_ConcurrentUse(t *testing.T) {
	c := NewCounter()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, 2, c.Count("gpt-4", "hello world"))
		}()
	}
	wg.Wait()
}

func TestEncodingFor(t *testing.T) {
	assert.Equal(t, tokenizer.O200kBase, encodingFor("gpt-4o-mini"))
	assert.Equal(t, tokenizer.Cl100kBase, encodingFor("gpt-3.5-turbo"))
	assert.Equal(t, tokenizer.Cl100kBase, encodingFor("claude-3-5-haiku-latest"))
}

func TestEstimate(t *testing.T) {
	assert.Equal(t, 1, estimate("hi"))
	assert.Equal(t, 3, estimate("twelve chars"))
}
