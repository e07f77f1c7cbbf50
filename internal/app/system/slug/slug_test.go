package slug

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Multiple   spaces---and dashes", "multiple-spaces-and-dashes"},
		{"Ünïcödé Café", "unicode-cafe"},
		{"3D Models & More!", "3d-models-more"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.in))
		})
	}
}

func TestMake_TruncatesLongInput(t *testing.T) {
	got := Make(strings.Repeat("word ", 40))
	assert.LessOrEqual(t, len(got), MaxLen)
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.True(t, Valid(got))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("hello-world"))
	assert.True(t, Valid("a1"))
	assert.False(t, Valid("Hello"))
	assert.False(t, Valid("-leading"))
	assert.False(t, Valid("double--dash"))
	assert.False(t, Valid(""))
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{"post": true, "post-2": true}
	exists := func(_ context.Context, s string) (bool, error) { return taken[s], nil }

	got, err := Unique(context.Background(), "post", exists)
	require.NoError(t, err)
	assert.Equal(t, "post-3", got)

	got, err = Unique(context.Background(), "fresh", exists)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)

	got, err = Unique(context.Background(), "", exists)
	require.NoError(t, err)
	assert.Equal(t, "item", got)
}

func TestUnique_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Unique(context.Background(), "x", func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}
