package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"visionlex-server-go/internal/platform/config"
	"visionlex-server-go/internal/platform/errors"
	"visionlex-server-go/internal/platform/logging"
)

// Supported upload extensions mapped to the MIME type embedded in the URI.
var supportedFormats = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var imageSignatures = map[string][]byte{
	".jpg":  {0xFF, 0xD8},
	".jpeg": {0xFF, 0xD8},
	".png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	".gif":  {0x47, 0x49, 0x46, 0x38},
	".webp": {0x52, 0x49, 0x46, 0x46},
}

// Ingester validates uploads and produces the data-URI snapshot handed to the
// inference client. Purely local; no network access, no retry.
type Ingester struct {
	cfg    config.ImageConfig
	logger *logging.Logger
}

func NewIngester(cfg config.ImageConfig, logger *logging.Logger) *Ingester {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Ingester{
		cfg:    cfg,
		logger: logger,
	}
}

// Ingest turns an uploaded file into a data URI. Files within the direct
// limit are passed through byte-exact; larger ones are downsampled to the
// configured width and re-encoded as JPEG.
func (s *Ingester) Ingest(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mime, ok := supportedFormats[ext]
	if !ok {
		return "", errors.New(errors.KindInvalidFormat, "image.ingest",
			fmt.Sprintf("unsupported extension %q", ext))
	}

	if int64(len(data)) > s.cfg.MaxFileSize {
		return "", errors.New(errors.KindTooLarge, "image.ingest",
			fmt.Sprintf("file size %d exceeds limit %d", len(data), s.cfg.MaxFileSize))
	}
	if len(data) == 0 {
		return "", errors.New(errors.KindUnknown, "image.ingest", "empty file")
	}

	// The decoder is the arbiter; a signature mismatch is only worth a warning.
	if sig, known := imageSignatures[ext]; known {
		if len(data) < len(sig) || !bytes.Equal(data[:len(sig)], sig) {
			s.logger.WarnTag("IMAGE", "file signature mismatch for %s: header=%x",
				filename, data[:min(len(data), 16)])
		}
	}

	if int64(len(data)) <= s.cfg.DirectLimit {
		return dataURI(mime, data), nil
	}

	encoded, err := s.downsample(ctx, data)
	if err != nil {
		return "", err
	}
	return dataURI("image/jpeg", encoded), nil
}

func (s *Ingester) downsample(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.KindCancelled, "image.downsample", "ingestion aborted", err)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "image.downsample", "decode image", err)
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > s.cfg.MaxWidth {
		scaled := image.NewRGBA(image.Rect(0, 0, s.cfg.MaxWidth,
			height*s.cfg.MaxWidth/width))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		src = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: s.cfg.JPEGQuality}); err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "image.downsample", "encode jpeg", err)
	}

	s.logger.DebugTag("IMAGE", "downsampled %s %dx%d -> %d bytes (q=%d)",
		format, width, height, buf.Len(), s.cfg.JPEGQuality)
	return buf.Bytes(), nil
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
