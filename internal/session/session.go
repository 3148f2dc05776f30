// Package session orchestrates user-initiated edits — inline, form-based,
// and media upload — into content model mutations.
//
// Every edit, whatever its affordance, funnels through one guarded mutation
// path: authorize → throttle → sanitize → merge into the model → bind into
// the document → notify. The ordering is the package's one non-negotiable
// invariant: never merge unsanitized input, never bind before merge.
package session

import (
	"time"

	"pagecms/internal/binder"
	"pagecms/internal/metrics"
	"pagecms/internal/model"
	"pagecms/internal/sanitize"
	"pagecms/internal/secsim"
)

// Rate-limit policy for the guarded path, matching the original deployment's
// quotas.
const (
	updateFieldAction = "update_field"
	updateFieldMax    = 30
	updateFieldWindow = time.Minute

	fileUploadAction = "file_upload"
	fileUploadMax    = 5
	fileUploadWindow = time.Minute
)

// Authorizer answers "may this actor mutate content right now". Injected so
// the controller never reaches into ambient state.
type Authorizer interface {
	Authorized() bool
}

// RateLimiter answers "is this logical action currently permitted".
type RateLimiter interface {
	Check(action string, max int, window time.Duration) secsim.Decision
}

// NoticeKind classifies a user-visible notification.
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
)

// Notifier delivers fire-and-forget, auto-dismissing user notifications.
type Notifier interface {
	Notify(message string, kind NoticeKind)
}

// Outcome is the result of a proposed edit.
type Outcome int

const (
	// OutcomeApplied: the edit passed every gate and reached the document.
	OutcomeApplied Outcome = iota
	// OutcomeUnauthorized: the actor holds no mutation authority; nothing
	// was touched.
	OutcomeUnauthorized
	// OutcomeThrottled: the action quota is exhausted; nothing was touched.
	OutcomeThrottled
	// OutcomeNoChange: an inline commit found the content unchanged from
	// the captured original, so no mutation was proposed.
	OutcomeNoChange
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeNoChange:
		return "no_change"
	default:
		return "unknown"
	}
}

// Controller owns one editing session: the model being mutated, the binder
// writing into the document, and the injected policy collaborators.
//
// Concurrency:
//   - Methods are intended for a single event-driven caller. The one
//     asynchronous producer (media uploads) synchronizes its completions via
//     the uploader before calling back into the controller.
type Controller struct {
	model  *model.ContentModel
	binder *binder.Binder

	auth   Authorizer
	limits RateLimiter
	notify Notifier
}

// Options collects the controller's collaborators. Model, Binder, Auth and
// Limits are required; Notify defaults to a no-op.
type Options struct {
	Model  *model.ContentModel
	Binder *binder.Binder
	Auth   Authorizer
	Limits RateLimiter
	Notify Notifier
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, NoticeKind) {}

// New builds a Controller from its collaborators.
func New(opts Options) *Controller {
	notify := opts.Notify
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Controller{
		model:  opts.Model,
		binder: opts.Binder,
		auth:   opts.Auth,
		limits: opts.Limits,
		notify: notify,
	}
}

// Model exposes the session's content model (read access for form building
// and persistence).
func (c *Controller) Model() *model.ContentModel { return c.model }

// ProposeEdit runs one raw value through the guarded mutation path for
// (section, field).
//
// Ordering invariant:
//  1. authorization gate
//  2. quota gate for the "field update" action
//  3. sanitize
//  4. merge into the model
//  5. bind into the document
//  6. notify
//
// An aborted edit (unauthorized, throttled) leaves both the model and the
// document untouched. A missing document target is a per-field no-op: the
// model still records the value.
func (c *Controller) ProposeEdit(section, field, raw string) Outcome {
	start := time.Now()

	if !c.auth.Authorized() {
		c.notify.Notify("Session expired. Please sign in again.", NoticeError)
		metrics.IncCounter("cms_edits_total", 1, metrics.Labels{"step": "authorize", "status": "denied"})
		return OutcomeUnauthorized
	}

	if d := c.limits.Check(updateFieldAction, updateFieldMax, updateFieldWindow); !d.Allowed {
		c.notify.Notify("Too many edits. Wait a moment and try again.", NoticeError)
		metrics.IncCounter("cms_edits_total", 1, metrics.Labels{"step": "throttle", "status": "denied"})
		return OutcomeThrottled
	}

	clean := sanitize.HTML(raw)
	c.model.Set(section, field, clean)
	c.binder.ApplyOne(section, field, clean)

	c.notify.Notify("Content updated.", NoticeSuccess)
	metrics.IncCounter("cms_edits_total", 1, metrics.Labels{"step": "apply", "status": "ok"})
	metrics.ObserveHistogram("cms_step_duration_seconds", time.Since(start).Seconds(), metrics.Labels{"step": "propose_edit"})
	return OutcomeApplied
}
