// Package mediaupload checks uploaded files and stores them in file storage.
//
// Images are sniffed from their first bytes; 3D assets are recognised by
// extension and checked against their container magic. SVG is accepted
// only when it carries no script.
package mediaupload

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
)

// Size limits per folder.
const (
	MaxImageSize = 10 << 20
	MaxModelSize = 50 << 20
)

var (
	// ErrUnsupportedType is returned for files outside the allowed types.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned when a file exceeds its folder's limit.
	ErrTooLarge = errors.New("file too large")
	// ErrSuspicious is returned when content contradicts its declared
	// type or an SVG embeds script.
	ErrSuspicious = errors.New("suspicious file content")
	// ErrEmpty is returned for zero-byte uploads.
	ErrEmpty = errors.New("empty file")
)

// Kind describes an accepted file.
type Kind struct {
	ContentType string
	Folder      string
	Ext         string
	MaxSize     int64
}

var imageTypes = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

var modelTypes = map[string]string{
	".glb":  "model/gltf-binary",
	".gltf": "model/gltf+json",
	".usdz": "model/vnd.usdz+zip",
}

// svgBannedElements are compared against the lowercased local name, so a
// namespace prefix does not hide them.
var svgBannedElements = map[string]bool{
	"script":        true,
	"foreignobject": true,
	"iframe":        true,
	"embed":         true,
	"object":        true,
}

// svgDataImages are the only data: URLs an href may carry.
var svgDataImages = []string{"data:image/png", "data:image/jpeg", "data:image/gif", "data:image/webp"}

// Detect classifies a file from its name and leading bytes. head should hold
// at least the first 512 bytes, or the whole file when shorter.
func Detect(filename string, head []byte) (Kind, error) {
	if len(head) == 0 {
		return Kind{}, ErrEmpty
	}
	ext := strings.ToLower(filepath.Ext(filename))

	if ct, ok := modelTypes[ext]; ok {
		if !modelMagicOK(ext, head) {
			return Kind{}, ErrSuspicious
		}
		return Kind{ContentType: ct, Folder: models.MediaFolderModels, Ext: ext, MaxSize: MaxModelSize}, nil
	}

	if ext == ".svg" {
		if !looksLikeSVG(head) {
			return Kind{}, ErrSuspicious
		}
		return Kind{ContentType: "image/svg+xml", Folder: models.MediaFolderImages, Ext: ".svg", MaxSize: MaxImageSize}, nil
	}

	sniffed := http.DetectContentType(head)
	if e, ok := imageTypes[sniffed]; ok && sniffed != "image/svg+xml" {
		if ext != "" && !extMatches(sniffed, ext) {
			return Kind{}, ErrSuspicious
		}
		return Kind{ContentType: sniffed, Folder: models.MediaFolderImages, Ext: e, MaxSize: MaxImageSize}, nil
	}
	if isExecutable(head) {
		return Kind{}, ErrSuspicious
	}
	return Kind{}, ErrUnsupportedType
}

// CheckSVG parses a whole SVG document and rejects script content: script
// and foreignObject elements, on* event attributes, javascript: URLs in any
// attribute and non-raster data: URLs in href. Entities are decoded before
// the checks. A document that does not parse is rejected too.
func CheckSVG(body []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Entity = xml.HTMLEntity
	sawSVG := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ErrSuspicious
		}
		switch t := tok.(type) {
		case xml.StartElement:
			local := strings.ToLower(t.Name.Local)
			if svgBannedElements[local] {
				return ErrSuspicious
			}
			if local == "svg" {
				sawSVG = true
			}
			for _, a := range t.Attr {
				if !svgAttrOK(a) {
					return ErrSuspicious
				}
			}
		case xml.Directive:
			// Internal DTD subsets can define entities that expand to markup.
			if bytes.Contains(bytes.ToUpper(t), []byte("ENTITY")) {
				return ErrSuspicious
			}
		case xml.ProcInst:
			if strings.EqualFold(t.Target, "xml-stylesheet") {
				return ErrSuspicious
			}
		}
	}
	if !sawSVG {
		return ErrSuspicious
	}
	return nil
}

func svgAttrOK(a xml.Attr) bool {
	local := strings.ToLower(a.Name.Local)
	if a.Name.Space == "xmlns" || local == "xmlns" {
		return true
	}
	if strings.HasPrefix(local, "on") {
		return false
	}
	v := normalizeURL(a.Value)
	if strings.Contains(v, "javascript:") || strings.Contains(v, "vbscript:") {
		return false
	}
	if local == "href" && strings.HasPrefix(v, "data:") {
		for _, p := range svgDataImages {
			if strings.HasPrefix(v, p) {
				return true
			}
		}
		return false
	}
	return true
}

// normalizeURL lowercases v and drops whitespace and control characters,
// which browsers ignore inside a URL scheme.
func normalizeURL(v string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, strings.ToLower(v))
}

func extMatches(ct, ext string) bool {
	switch ct {
	case "image/jpeg":
		return ext == ".jpg" || ext == ".jpeg"
	default:
		return imageTypes[ct] == ext
	}
}

func modelMagicOK(ext string, head []byte) bool {
	switch ext {
	case ".glb":
		return bytes.HasPrefix(head, []byte("glTF"))
	case ".usdz":
		return bytes.HasPrefix(head, []byte("PK\x03\x04"))
	case ".gltf":
		return bytes.HasPrefix(bytes.TrimSpace(head), []byte("{"))
	}
	return false
}

func looksLikeSVG(head []byte) bool {
	h := bytes.ToLower(head)
	return bytes.Contains(h, []byte("<svg"))
}

func isExecutable(head []byte) bool {
	return bytes.HasPrefix(head, []byte("MZ")) ||
		bytes.HasPrefix(head, []byte("\x7fELF")) ||
		bytes.HasPrefix(head, []byte("#!"))
}

// ObjectPath returns the storage key for a new upload:
// media/<yyyy>/<mm>/<uuid><ext>.
func ObjectPath(now time.Time, ext string) string {
	now = now.UTC()
	return fmt.Sprintf("media/%04d/%02d/%s%s", now.Year(), now.Month(), uuid.New().String(), ext)
}

// Save checks fh and writes it to store. The returned MediaRef carries the
// storage path, public URL and detected content type.
func Save(ctx context.Context, store storage.Store, fh *multipart.FileHeader) (models.MediaRef, Kind, error) {
	f, err := fh.Open()
	if err != nil {
		return models.MediaRef{}, Kind{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return models.MediaRef{}, Kind{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	kind, err := Detect(fh.Filename, head)
	if err != nil {
		return models.MediaRef{}, kind, err
	}
	if fh.Size > kind.MaxSize {
		return models.MediaRef{}, kind, ErrTooLarge
	}

	body := io.MultiReader(bytes.NewReader(head), f)
	if kind.ContentType == "image/svg+xml" {
		all, err := io.ReadAll(io.LimitReader(body, kind.MaxSize+1))
		if err != nil {
			return models.MediaRef{}, kind, fmt.Errorf("read upload: %w", err)
		}
		if err := CheckSVG(all); err != nil {
			return models.MediaRef{}, kind, err
		}
		body = bytes.NewReader(all)
	}

	path := ObjectPath(time.Now(), kind.Ext)
	if err := store.Put(ctx, path, body, &storage.PutOptions{ContentType: kind.ContentType}); err != nil {
		return models.MediaRef{}, kind, fmt.Errorf("store upload: %w", err)
	}
	return models.MediaRef{
		Path:        path,
		URL:         store.URL(path),
		Name:        filepath.Base(fh.Filename),
		ContentType: kind.ContentType,
		Size:        fh.Size,
	}, kind, nil
}
