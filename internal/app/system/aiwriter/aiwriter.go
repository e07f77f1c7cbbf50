// Package aiwriter drafts site copy with a generative model.
package aiwriter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/stratasite/internal/app/system/htmltrunc"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"go.uber.org/zap"
)

// ErrDisabled is returned when no model is configured.
var ErrDisabled = errors.New("aiwriter: not configured")

// ErrEmpty is returned when the model produced nothing usable.
var ErrEmpty = errors.New("aiwriter: empty response")

// Generator produces text from a system instruction and a prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Kinds of content that can be drafted.
var Kinds = []string{"news", "service", "portfolio", "product", "about"}

// Tones accepted by Draft.
var Tones = []string{"professional", "friendly", "playful", "formal"}

// ValidKind reports whether k is one of Kinds.
func ValidKind(k string) bool { return contains(Kinds, k) }

// ValidTone reports whether t is one of Tones.
func ValidTone(t string) bool { return contains(Tones, t) }

// Writer drafts content. A nil Writer or one without a generator is disabled.
type Writer struct {
	gen Generator
	log *zap.Logger
}

// New creates a Writer. gen may be nil.
func New(gen Generator, log *zap.Logger) *Writer {
	return &Writer{gen: gen, log: log}
}

// Enabled reports whether drafting is available.
func (w *Writer) Enabled() bool { return w != nil && w.gen != nil }

// DraftRequest describes a piece of copy to write.
type DraftRequest struct {
	Kind  string `json:"kind" validate:"required,max=20" label:"Kind"`
	Topic string `json:"topic" validate:"required,max=500" label:"Topic"`
	Tone  string `json:"tone" validate:"max=20" label:"Tone"`
	Words int    `json:"words" validate:"max=1500" label:"Length"`
}

// Draft is generated copy, sanitized and ready to store.
type Draft struct {
	Title   string `json:"title"`
	HTML    string `json:"html"`
	Excerpt string `json:"excerpt"`
}

const draftSystem = `You write copy for a small studio's marketing website.
Reply with a first line of the form "Title: <title>" followed by the body as
simple HTML using only <p>, <h2>, <h3>, <ul>, <ol>, <li>, <strong>, <em> and <a>.
Do not include <html>, <head>, <body>, scripts, styles, or markdown.`

// ExcerptLength is the rune length of Draft.Excerpt.
const ExcerptLength = 200

// Draft writes copy for req.
func (w *Writer) Draft(ctx context.Context, req DraftRequest) (Draft, error) {
	if !w.Enabled() {
		return Draft{}, ErrDisabled
	}
	if !ValidKind(req.Kind) {
		return Draft{}, fmt.Errorf("aiwriter: unknown kind %q", req.Kind)
	}
	tone := req.Tone
	if !ValidTone(tone) {
		tone = "professional"
	}
	words := req.Words
	if words <= 0 {
		words = 300
	}

	prompt := fmt.Sprintf("Write a %s page about: %s\nTone: %s\nLength: about %d words.",
		kindPhrase(req.Kind), req.Topic, tone, words)

	out, err := w.gen.Generate(ctx, draftSystem, prompt)
	if err != nil {
		return Draft{}, fmt.Errorf("aiwriter: generate: %w", err)
	}
	d := parseDraft(out)
	if d.HTML == "" {
		return Draft{}, ErrEmpty
	}
	w.log.Info("ai draft generated",
		zap.String("kind", req.Kind),
		zap.Int("chars", len(d.HTML)))
	return d, nil
}

const altSystem = `You write alt text for website images. Reply with one plain
sentence under 125 characters, no quotes, no "image of" prefix.`

// MaxAltText caps generated alt text.
const MaxAltText = 125

// AltText writes alt text for an image described by description.
func (w *Writer) AltText(ctx context.Context, description string) (string, error) {
	if !w.Enabled() {
		return "", ErrDisabled
	}
	out, err := w.gen.Generate(ctx, altSystem, "Image: "+description)
	if err != nil {
		return "", fmt.Errorf("aiwriter: generate: %w", err)
	}
	alt := strings.Trim(security.SanitizeText(out), "\"' \n")
	if alt == "" {
		return "", ErrEmpty
	}
	if utf8.RuneCountInString(alt) > MaxAltText {
		alt = string([]rune(alt)[:MaxAltText])
	}
	return alt, nil
}

// parseDraft splits the model's reply into title and sanitized body.
func parseDraft(out string) Draft {
	out = stripFences(strings.TrimSpace(out))

	var d Draft
	if first, rest, ok := strings.Cut(out, "\n"); ok || strings.HasPrefix(first, "Title:") {
		if t, found := strings.CutPrefix(strings.TrimSpace(first), "Title:"); found {
			d.Title = security.SanitizeText(t)
			out = rest
		}
	}
	d.HTML = strings.TrimSpace(security.SanitizeRich(out))
	d.Excerpt = htmltrunc.Truncate(htmltrunc.PlainText(d.HTML), ExcerptLength, htmltrunc.Ellipsis)
	return d
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func kindPhrase(kind string) string {
	switch kind {
	case "news":
		return "news article"
	case "service":
		return "service description"
	case "portfolio":
		return "portfolio case study"
	case "product":
		return "product description"
	default:
		return "company about"
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
