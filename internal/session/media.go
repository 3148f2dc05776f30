package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"pagecms/internal/metrics"
	"pagecms/internal/model"
)

// MaxUploadSize is the hard ceiling on an uploaded file's byte size.
const MaxUploadSize = 10 << 20 // 10 MiB

// Allowed upload types. A file must pass both the MIME check and the
// extension check.
var (
	imageMIMEs = map[string]bool{
		"image/jpeg":    true,
		"image/jpg":     true,
		"image/png":     true,
		"image/webp":    true,
		"image/svg+xml": true,
	}
	videoMIMEs = map[string]bool{
		"video/mp4":       true,
		"video/webm":      true,
		"video/quicktime": true,
	}
	allowedExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".svg": true,
		".mp4": true, ".webm": true, ".mov": true,
	}
)

// svgDangerPatterns flag SVG payloads that can execute script when inlined or
// referenced.
var svgDangerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script\b`),
	regexp.MustCompile(`(?i)<foreignObject\b`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)<use[^>]+href\s*=\s*["']?\s*data:`),
}

// ValidationError reports why an upload was refused. Nothing is mutated when
// one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "media: " + e.Reason }

// editAbortedError reports a guarded-path gate that fired at completion time:
// the session expired or the field-update quota drained while the file was
// being read.
type editAbortedError struct{ outcome Outcome }

func (e *editAbortedError) Error() string { return "edit aborted: " + e.outcome.String() }

// Upload is one candidate file. Open is called at most once, on the
// asynchronous read path, and its reader is always closed.
type Upload struct {
	Name string
	MIME string
	Size int64
	Open func() (io.ReadCloser, error)
}

// ValidateUpload checks an upload's metadata against the size ceiling and the
// type allow-lists. Content checks (the SVG scan) happen after the read.
func ValidateUpload(name, mime string, size int64) error {
	if size > MaxUploadSize {
		return &ValidationError{Reason: fmt.Sprintf("file %s exceeds the %d MiB limit", name, MaxUploadSize>>20)}
	}
	if !imageMIMEs[mime] && !videoMIMEs[mime] {
		return &ValidationError{Reason: fmt.Sprintf("file type %s is not allowed", mime)}
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return &ValidationError{Reason: fmt.Sprintf("file extension %s is not allowed", ext)}
	}
	return nil
}

// CheckSVG scans SVG content for executable constructs. Non-SVG content is
// never scanned; binary formats carry no inline script risk here.
func CheckSVG(content []byte) error {
	for _, p := range svgDangerPatterns {
		if p.Match(content) {
			return &ValidationError{Reason: "SVG contains potentially dangerous content"}
		}
	}
	return nil
}

// EncodeDataURI renders content as a base64 data URI for storage in the
// media section.
func EncodeDataURI(mime string, content []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// MediaUploader runs validated uploads through an asynchronous read and
// lands completed payloads in the media section of the model via the guarded
// mutation path.
//
// Each field carries a generation counter, bumped on every accepted upload.
// A read that finishes after a newer upload started on the same field is
// stale and its result is discarded, so rapid re-uploads can never apply out
// of order.
//
// Concurrency:
//   - Safe for concurrent use. Completions serialize on the uploader's
//     mutex, so at most one completion calls into the controller at a time.
type MediaUploader struct {
	ctrl *Controller

	mu  sync.Mutex
	gen map[string]uint64
}

// NewMediaUploader builds an uploader bound to one controller.
func NewMediaUploader(ctrl *Controller) *MediaUploader {
	return &MediaUploader{ctrl: ctrl, gen: make(map[string]uint64)}
}

// Upload gates and validates up, then reads it asynchronously. On success the
// content is stored as a data URI under the media section for field and bound
// into the document. done, if non-nil, receives the terminal error: nil on
// success (including a silently discarded stale completion), non-nil when the
// read fails, the content check refuses the file, or the guarded mutation
// path aborts at completion time.
//
// Gate failures and metadata validation failures are synchronous: a non-nil
// error return means no read was started and nothing will change.
func (u *MediaUploader) Upload(field string, up Upload, done func(error)) error {
	if !u.ctrl.auth.Authorized() {
		u.ctrl.notify.Notify("Session expired. Please sign in again.", NoticeError)
		metrics.IncCounter("cms_uploads_total", 1, metrics.Labels{"status": "unauthorized"})
		return &ValidationError{Reason: "not authorized"}
	}
	if d := u.ctrl.limits.Check(fileUploadAction, fileUploadMax, fileUploadWindow); !d.Allowed {
		u.ctrl.notify.Notify("Too many uploads. Wait a moment and try again.", NoticeError)
		metrics.IncCounter("cms_uploads_total", 1, metrics.Labels{"status": "throttled"})
		return &ValidationError{Reason: "upload quota exhausted"}
	}
	if err := ValidateUpload(up.Name, up.MIME, up.Size); err != nil {
		u.ctrl.notify.Notify(err.Error(), NoticeError)
		metrics.IncCounter("cms_uploads_total", 1, metrics.Labels{"status": "invalid"})
		return err
	}

	u.mu.Lock()
	u.gen[field]++
	gen := u.gen[field]
	u.mu.Unlock()

	go func() {
		err := u.read(field, gen, up)
		if err != nil {
			// Gate aborts already notified and counted inside read.
			var aborted *editAbortedError
			if !errors.As(err, &aborted) {
				u.ctrl.notify.Notify("Upload failed: "+err.Error(), NoticeError)
				metrics.IncCounter("cms_uploads_total", 1, metrics.Labels{"status": "failed"})
			}
		}
		if done != nil {
			done(err)
		}
	}()
	return nil
}

// read performs the asynchronous half of an upload: read, content-check,
// encode, and complete if still current.
func (u *MediaUploader) read(field string, gen uint64, up Upload) error {
	start := time.Now()

	rc, err := up.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", up.Name, err)
	}
	content, err := io.ReadAll(io.LimitReader(rc, MaxUploadSize+1))
	rc.Close()
	if err != nil {
		return fmt.Errorf("read upload %s: %w", up.Name, err)
	}
	if int64(len(content)) > MaxUploadSize {
		return &ValidationError{Reason: fmt.Sprintf("file %s exceeds the %d MiB limit", up.Name, MaxUploadSize>>20)}
	}
	if up.MIME == "image/svg+xml" {
		if err := CheckSVG(content); err != nil {
			return err
		}
	}

	uri := EncodeDataURI(up.MIME, content)

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.gen[field] != gen {
		// A newer upload superseded this one while it was reading.
		metrics.IncCounter("cms_uploads_total", 1, metrics.Labels{"status": "stale"})
		return nil
	}
	if outcome := u.ctrl.ProposeEdit(model.MediaSection, field, uri); outcome != OutcomeApplied {
		// The gates re-run at completion: a session or quota lost during
		// the read means nothing was applied, and the caller must hear it.
		metrics.IncCounter("cms_uploads_total", 1, metrics.Labels{"status": outcome.String()})
		return &editAbortedError{outcome: outcome}
	}
	metrics.IncCounter("cms_uploads_total", 1, metrics.Labels{"status": "ok"})
	metrics.ObserveHistogram("cms_step_duration_seconds", time.Since(start).Seconds(), metrics.Labels{"step": "upload"})
	return nil
}
