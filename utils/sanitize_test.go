package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "<b>hi</b>", Sanitize(`<b>hi</b><script>alert(1)</script>`))
	assert.Equal(t, "Go & Gin", SanitizeText(`  <i>Go &amp; Gin</i> `))
}
