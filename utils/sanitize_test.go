package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Bold", SanitizePlain("<b>Bold</b>"))
	assert.Equal(t, "<b>Bold</b>", Sanitize("<b>Bold</b>"))
	assert.NotContains(t, Sanitize(`hi<script>alert(1)</script>`), "script")
}

func TestSanitizeEscapesTextTheSameWayForBothPolicies(t *testing.T) {
	in := `Tom's CSS & HTML: a < b`
	assert.Equal(t, "Tom&#39;s CSS &amp; HTML: a &lt; b", SanitizePlain(in))
	assert.Equal(t, SanitizePlain(in), Sanitize(in))
}
