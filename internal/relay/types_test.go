package relay

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStem(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)

	a := NewStem(now)
	b := NewStem(now)

	assert.True(t, strings.HasPrefix(a, "20240601T123045-"))
	assert.Len(t, a, len("20240601T123045-")+8)
	// Random suffix keeps concurrent uploads from colliding.
	assert.NotEqual(t, a, b)
}

func TestVariantNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		input        string
		wantOriginal string
		wantResized  string
	}{
		{
			name:         "original name",
			input:        "20240601T123045-ab12cd34.jpg",
			wantOriginal: "20240601T123045-ab12cd34.jpg",
			wantResized:  "20240601T123045-ab12cd34_small.jpg",
		},
		{
			name:         "resized name",
			input:        "20240601T123045-ab12cd34_small.jpg",
			wantOriginal: "20240601T123045-ab12cd34.jpg",
			wantResized:  "20240601T123045-ab12cd34_small.jpg",
		},
		{
			name:         "bare stem",
			input:        "20240601T123045-ab12cd34",
			wantOriginal: "20240601T123045-ab12cd34.jpg",
			wantResized:  "20240601T123045-ab12cd34_small.jpg",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			original, resized := VariantNames(tt.input)
			assert.Equal(t, tt.wantOriginal, original)
			assert.Equal(t, tt.wantResized, resized)
		})
	}
}

func TestOriginalAndResizedShareStem(t *testing.T) {
	t.Parallel()

	stem := NewStem(time.Now())
	original := OriginalName(stem)
	resized := ResizedName(stem)

	assert.True(t, strings.HasPrefix(original, stem))
	assert.True(t, strings.HasPrefix(resized, stem))
	assert.NotEqual(t, original, resized)
}
