package html

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Spray copper fungicide", "Spray copper fungicide"},
		{"tags and entities", "<p>Late blight &amp; early blight</p><p>seen in <b>Nashik</b></p>", "Late blight & early blight seen in Nashik"},
		{"script dropped", "<div>Warning<script>alert(1)</script></div><style>p{}</style>", "Warning"},
		{"breaks", "line one<br/>line two", "line one line two"},
		{"devanagari", "<p>पत्ती&nbsp;झुलसा</p>", "पत्ती झुलसा"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "Remove infected…", Truncate("Remove infected leaves today", 18))
	assert.Equal(t, "अगेती…", Truncate("अगेती झुलसा रोग", 8))
	assert.Equal(t, "unbounded", Truncate("unbounded", 0))
}
