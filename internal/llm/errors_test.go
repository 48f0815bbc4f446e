package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("text/html; charset=utf-8", []byte(`{}`)))
	assert.True(t, LooksLikeHTML("", []byte("  <!DOCTYPE html><html></html>")))
	assert.True(t, LooksLikeHTML("", []byte("<HTML><body>denied</body></HTML>")))
	assert.False(t, LooksLikeHTML("application/json", []byte(`{"choices": []}`)))
	assert.False(t, LooksLikeHTML("", nil))
}

func TestNewUpstreamGatewayError_ExtractsTitle(t *testing.T) {
	page := []byte("<!DOCTYPE html><html><head><title>\n  Sign in required </title></head><body>nope</body></html>")
	err := NewUpstreamGatewayError(ProviderOpenRouter, 401, page)

	assert.Equal(t, "Sign in required", err.PageTitle)
	assert.Equal(t, 401, err.StatusCode)
	assert.Contains(t, err.Error(), "OpenRouter returned an HTML response")
	assert.Contains(t, err.Error(), "OPENROUTER_API_KEY")
}

func TestUpstreamGatewayError_Gemini(t *testing.T) {
	err := NewUpstreamGatewayError(ProviderGemini, 0, []byte("<html></html>"))

	assert.Empty(t, err.PageTitle)
	assert.Equal(t, "Gemini returned an HTML response. Confirm GEMINI_API_KEY and requested model access.", err.Error())
}

func TestHTMLFragment(t *testing.T) {
	assert.Equal(t, "<!DOCTYPE html><p>x</p>", htmlFragment("googleapi: got HTTP response code 403 with body: <!DOCTYPE html><p>x</p>"))
	assert.Equal(t, "", htmlFragment("rpc error: code = Unavailable"))
}
