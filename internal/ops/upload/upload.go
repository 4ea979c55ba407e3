// Package upload turns local media files into the data-URL attachment
// maps the chat operations embed in message content.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/sandbox"
)

const category = "FileUpload"

// DefaultMaxMB caps file size when configuration does not say otherwise.
const DefaultMaxMB = 20.0

// Service encodes media files, caching encoded URLs keyed by path,
// modification time, and size so repeated references skip the read.
type Service struct {
	sb       *sandbox.Resolver
	maxBytes int64
	cache    *gocache.Cache
	reads    atomic.Int64
}

func New(sb *sandbox.Resolver, maxMB float64) *Service {
	if maxMB <= 0 {
		maxMB = DefaultMaxMB
	}
	return &Service{
		sb:       sb,
		maxBytes: int64(maxMB * (1 << 20)),
		cache:    gocache.New(10*time.Minute, 5*time.Minute),
	}
}

// extMIME pins the types the chat providers accept. Extensions outside
// this table fall through to the platform registry.
var extMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

func mimeFor(abs string) (string, error) {
	ext := strings.ToLower(filepath.Ext(abs))
	if m, ok := extMIME[ext]; ok {
		return m, nil
	}
	if m := mime.TypeByExtension(ext); m != "" {
		if i := strings.IndexByte(m, ';'); i >= 0 {
			m = m[:i]
		}
		return m, nil
	}
	return "", fmt.Errorf("cannot determine media type for %q", abs)
}

// dataURL reads abs and encodes it as a base64 data URL. The cache key
// includes modification time and size, so edits invalidate naturally.
func (s *Service) dataURL(abs, mimeType string) (string, error) {
	st, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !st.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", abs)
	}
	if st.Size() > s.maxBytes {
		return "", fmt.Errorf("%s is %.1f MB, over the %.1f MB limit",
			abs, float64(st.Size())/(1<<20), float64(s.maxBytes)/(1<<20))
	}
	key := fmt.Sprintf("%s|%d|%d", abs, st.ModTime().UnixNano(), st.Size())
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), nil
	}
	s.reads.Add(1)
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	s.cache.Set(key, url, gocache.DefaultExpiration)
	return url, nil
}

// mediaMap builds the attachment map for one file, checking that its
// detected type matches the requested media category.
func (s *Service) mediaMap(path, mediaType, detail string) (core.Value, error) {
	abs, err := s.sb.Resolve(path)
	if err != nil {
		return core.Value{}, err
	}
	mimeType, err := mimeFor(abs)
	if err != nil {
		return core.Value{}, err
	}
	if !strings.HasPrefix(mimeType, mediaType+"/") {
		return core.Value{}, fmt.Errorf("%s is %s, not %s", abs, mimeType, mediaType)
	}
	url, err := s.dataURL(abs, mimeType)
	if err != nil {
		return core.Value{}, err
	}
	if mediaType == "image" {
		return core.MapOf(map[string]core.Value{
			"type": core.String("image_url"),
			"image_url": core.MapOf(map[string]core.Value{
				"url":    core.String(url),
				"detail": core.String(detail),
			}),
		}), nil
	}
	return core.MapOf(map[string]core.Value{
		"type": core.String(mediaType),
		mediaType: core.MapOf(map[string]core.Value{
			"url":       core.String(url),
			"mime_type": core.String(mimeType),
			"filename":  core.String(filepath.Base(abs)),
		}),
	}), nil
}

// autoMediaMap picks the media category from the detected type.
func (s *Service) autoMediaMap(path string) (core.Value, error) {
	abs, err := s.sb.Resolve(path)
	if err != nil {
		return core.Value{}, err
	}
	mimeType, err := mimeFor(abs)
	if err != nil {
		return core.Value{}, err
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return s.mediaMap(path, "image", "auto")
	case strings.HasPrefix(mimeType, "video/"):
		return s.mediaMap(path, "video", "")
	case strings.HasPrefix(mimeType, "audio/"):
		return s.mediaMap(path, "audio", "")
	default:
		return core.Value{}, fmt.Errorf("unsupported media type %s for %s", mimeType, abs)
	}
}

// batchPaths accepts either one list of path strings or varargs strings.
func batchPaths(call *core.Call) ([]string, error) {
	if call.Len() == 1 && call.Args[0].Kind() == core.KindList {
		items := call.Args[0].Items()
		out := make([]string, len(items))
		for i, e := range items {
			if e.Kind() != core.KindString {
				return nil, fmt.Errorf("item %d: expected string, got %s", i, e.Kind())
			}
			out[i] = e.Str()
		}
		return out, nil
	}
	out := make([]string, call.Len())
	for i := range call.Args {
		p, err := call.Str(i)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// Register installs the media attachment operations.
func (s *Service) Register(reg *core.Registry) {
	reg.MustRegister(&core.Operation{
		Name:        ":file.upload/img",
		Description: "Encode an image file as an attachment map",
		Category:    category,
		Usage:       `[:file.upload/img "photo.png" "high"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			detail, err := call.StrOr(1, "auto")
			if err != nil {
				return core.Value{}, err
			}
			switch detail {
			case "auto", "low", "high":
			default:
				return core.Value{}, fmt.Errorf("detail must be auto, low, or high, got %q", detail)
			}
			return s.mediaMap(path, "image", detail)
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file.upload/video",
		Description: "Encode a video file as an attachment map",
		Category:    category,
		Usage:       `[:file.upload/video "clip.mp4"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			return s.mediaMap(path, "video", "")
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file.upload/audio",
		Description: "Encode an audio file as an attachment map",
		Category:    category,
		Usage:       `[:file.upload/audio "note.mp3"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			return s.mediaMap(path, "audio", "")
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file.upload/get-data",
		Description: "Encode a media file and return the raw data URL",
		Category:    category,
		Usage:       `[:file.upload/get-data "photo.png" "image"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			mediaType, err := call.Str(1)
			if err != nil {
				return core.Value{}, err
			}
			switch mediaType {
			case "image", "video", "audio":
			default:
				return core.Value{}, fmt.Errorf("media type must be image, video, or audio, got %q", mediaType)
			}
			abs, err := s.sb.Resolve(path)
			if err != nil {
				return core.Value{}, err
			}
			mimeType, err := mimeFor(abs)
			if err != nil {
				return core.Value{}, err
			}
			if !strings.HasPrefix(mimeType, mediaType+"/") {
				return core.Value{}, fmt.Errorf("%s is %s, not %s", abs, mimeType, mediaType)
			}
			url, err := s.dataURL(abs, mimeType)
			if err != nil {
				return core.Value{}, err
			}
			return core.String(url), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file.upload/batch",
		Description: "Encode several media files, reporting per-file failures",
		Category:    category,
		Usage:       `[:file.upload/batch ["a.png" "b.mp4"]]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			paths, err := batchPaths(call)
			if err != nil {
				return core.Value{}, err
			}
			if len(paths) == 0 {
				return core.Value{}, errors.New("expects at least one file path")
			}
			results := make([]core.Value, len(paths))
			errs := make([]error, len(paths))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(4)
			for i, p := range paths {
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					v, err := s.autoMediaMap(p)
					if err != nil {
						errs[i] = err
						return nil
					}
					results[i] = v
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return core.Value{}, err
			}
			var encoded []core.Value
			var failures []core.Value
			for i := range paths {
				if errs[i] != nil {
					failures = append(failures, core.String(fmt.Sprintf("%s: %v", paths[i], errs[i])))
					continue
				}
				encoded = append(encoded, results[i])
			}
			return core.MapOf(map[string]core.Value{
				"success":         core.Bool(len(failures) == 0),
				"results":         core.List(encoded...),
				"errors":          core.List(failures...),
				"processed_count": core.Int(int64(len(encoded))),
				"error_count":     core.Int(int64(len(failures))),
			}), nil
		},
	})
}
