package aiwriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGen struct {
	out    string
	err    error
	system string
	prompt string
}

func (f *fakeGen) Generate(_ context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.out, f.err
}

func TestDraft(t *testing.T) {
	gen := &fakeGen{out: "```html\nTitle: Launching <b>Our</b> Studio\n<p>We build <strong>3D</strong> sites.</p><script>x()</script>\n```"}
	w := New(gen, zap.NewNop())

	d, err := w.Draft(context.Background(), DraftRequest{Kind: "news", Topic: "our launch", Tone: "friendly", Words: 200})
	require.NoError(t, err)
	assert.Equal(t, "Launching Our Studio", d.Title)
	assert.Equal(t, "<p>We build <strong>3D</strong> sites.</p>", d.HTML)
	assert.Equal(t, "We build 3D sites.", d.Excerpt)

	assert.Contains(t, gen.prompt, "news article")
	assert.Contains(t, gen.prompt, "Tone: friendly")
	assert.Contains(t, gen.prompt, "about 200 words")
}

func TestDraft_DefaultsToneAndLength(t *testing.T) {
	gen := &fakeGen{out: "<p>Body only</p>"}
	w := New(gen, zap.NewNop())

	d, err := w.Draft(context.Background(), DraftRequest{Kind: "service", Topic: "web design", Tone: "sarcastic"})
	require.NoError(t, err)
	assert.Empty(t, d.Title)
	assert.Equal(t, "<p>Body only</p>", d.HTML)
	assert.Contains(t, gen.prompt, "Tone: professional")
	assert.Contains(t, gen.prompt, "about 300 words")
}

func TestDraft_Errors(t *testing.T) {
	ctx := context.Background()

	var disabled *Writer
	_, err := disabled.Draft(ctx, DraftRequest{Kind: "news", Topic: "x"})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(nil, zap.NewNop()).Draft(ctx, DraftRequest{Kind: "news", Topic: "x"})
	assert.ErrorIs(t, err, ErrDisabled)

	w := New(&fakeGen{out: "<p>x</p>"}, zap.NewNop())
	_, err = w.Draft(ctx, DraftRequest{Kind: "poem", Topic: "x"})
	assert.Error(t, err)

	w = New(&fakeGen{err: errors.New("quota")}, zap.NewNop())
	_, err = w.Draft(ctx, DraftRequest{Kind: "news", Topic: "x"})
	assert.ErrorContains(t, err, "quota")

	w = New(&fakeGen{out: "Title: Only a title\n<script>x</script>"}, zap.NewNop())
	_, err = w.Draft(ctx, DraftRequest{Kind: "news", Topic: "x"})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestAltText(t *testing.T) {
	w := New(&fakeGen{out: "\"A red bicycle leaning on a brick wall.\"\n"}, zap.NewNop())
	got, err := w.AltText(context.Background(), "bike photo")
	require.NoError(t, err)
	assert.Equal(t, "A red bicycle leaning on a brick wall.", got)

	w = New(&fakeGen{out: strings.Repeat("word ", 60)}, zap.NewNop())
	got, err = w.AltText(context.Background(), "long")
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(got)), MaxAltText)
}

func TestValidKindTone(t *testing.T) {
	assert.True(t, ValidKind("portfolio"))
	assert.False(t, ValidKind("poem"))
	assert.True(t, ValidTone("formal"))
	assert.False(t, ValidTone(""))
}
