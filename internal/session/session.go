// Package session holds the interaction state the panel shell would own: a
// single "latest context" reference, replaced wholesale on each Generate
// and cleared on any generation failure so export actions can never read a
// stale result.
//
// Every failure class is converted here into a coded, user-facing condition.
// Nothing escapes a Session method as a panic.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/xrmdev/plugsim/internal/config"
	"github.com/xrmdev/plugsim/internal/encode"
	"github.com/xrmdev/plugsim/internal/metadata"
	"github.com/xrmdev/plugsim/internal/pipeline"
	"github.com/xrmdev/plugsim/internal/snapshot"
	"github.com/xrmdev/plugsim/internal/xrm"
)

// ErrFormValidation marks host-side failures caused by the form being in
// an invalid or transient state (unsaved validation errors, in-progress
// autosave). Field accessor implementations wrap or panic with it so
// Generate can surface an actionable message instead of a generic failure.
var ErrFormValidation = errors.New("form has validation errors")

// GenerateErrorCode categorizes generation failures.
type GenerateErrorCode string

const (
	// CodeNoChanges: Update with zero dirty fields - guidance, not a fault.
	CodeNoChanges GenerateErrorCode = "NO_CHANGES"
	// CodeMissingRecordID: Update/Delete requested for an unsaved record.
	CodeMissingRecordID GenerateErrorCode = "MISSING_RECORD_ID"
	// CodeFormInvalid: the host form reported validation problems.
	CodeFormInvalid GenerateErrorCode = "FORM_INVALID"
	// CodeGenerateFailed: any other snapshot/build failure.
	CodeGenerateFailed GenerateErrorCode = "GENERATE_FAILED"
	// CodeNoContext: an export was requested before a successful Generate.
	CodeNoContext GenerateErrorCode = "NO_CONTEXT"
)

// GenerateError is a coded, user-facing generation condition.
type GenerateError struct {
	Code    GenerateErrorCode
	Message string
	Err     error
}

func (e *GenerateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GenerateError) Unwrap() error { return e.Err }

// IsNoChanges reports the "nothing to simulate" guidance condition.
func IsNoChanges(err error) bool {
	var ge *GenerateError
	return errors.As(err, &ge) && ge.Code == CodeNoChanges
}

// IsNoContext reports an export attempted without a generated context.
func IsNoContext(err error) bool {
	var ge *GenerateError
	return errors.As(err, &ge) && ge.Code == CodeNoContext
}

// Session owns the latest generated context and the metadata cache for one
// simulator instance. Not safe for concurrent use; the shell is
// single-threaded and event-driven by construction.
type Session struct {
	consts   config.Constants
	builder  *pipeline.Builder
	resolver *metadata.Cached

	latest *pipeline.PluginContext
}

// New creates a Session. The resolver may be nil, in which case every
// collection-name lookup degrades to naive pluralization.
func New(consts config.Constants, resolver metadata.Resolver) *Session {
	var cached *metadata.Cached
	if resolver != nil {
		cached = metadata.NewCached(resolver)
	}
	return &Session{
		consts:   consts,
		builder:  pipeline.NewBuilder(consts),
		resolver: cached,
	}
}

// Generate snapshots the form and builds a fresh context. On success the
// context replaces the previous latest; on any failure the latest context
// is cleared so secondary actions are disabled rather than stale.
func (s *Session) Generate(messageName string, stage int, fields []snapshot.Field, identity pipeline.Identity) (pc *pipeline.PluginContext, err error) {
	s.latest = nil

	defer func() {
		if r := recover(); r != nil {
			pc = nil
			err = classifyPanic(r)
		}
	}()

	state := snapshot.Take(fields)
	built, buildErr := s.builder.Build(messageName, stage, state, identity)
	if buildErr != nil {
		if pipeline.IsMissingRecordID(buildErr) {
			return nil, &GenerateError{
				Code:    CodeMissingRecordID,
				Message: "this record has not been saved yet, so Update and Delete cannot be simulated",
				Err:     buildErr,
			}
		}
		return nil, &GenerateError{Code: CodeGenerateFailed, Message: "could not build the context", Err: buildErr}
	}

	if messageName == s.consts.Messages.Update && built.NothingToSimulate() {
		return nil, &GenerateError{
			Code:    CodeNoChanges,
			Message: "no fields have been changed; modify a field and generate again",
		}
	}

	s.latest = built
	return built, nil
}

// classifyPanic converts a recovered host-API failure into a coded error,
// distinguishing form-validation state from everything else.
func classifyPanic(r any) error {
	if err, ok := r.(error); ok {
		if errors.Is(err, ErrFormValidation) {
			return &GenerateError{
				Code:    CodeFormInvalid,
				Message: "your form has validation errors; fix them before generating",
				Err:     err,
			}
		}
		return &GenerateError{Code: CodeGenerateFailed, Message: "reading form state failed", Err: err}
	}
	return &GenerateError{Code: CodeGenerateFailed, Message: fmt.Sprintf("reading form state failed: %v", r)}
}

// HasContext reports whether a successful Generate result is held.
func (s *Session) HasContext() bool { return s.latest != nil }

// Latest returns the current context, or nil.
func (s *Session) Latest() *pipeline.PluginContext { return s.latest }

// Sections renders the display view of the latest context.
func (s *Session) Sections() (encode.Sections, error) {
	if s.latest == nil {
		return encode.Sections{}, noContextError()
	}
	return encode.RenderSections(s.latest, s.consts), nil
}

// ContextJSON returns the full latest context as canonical JSON.
func (s *Session) ContextJSON() (string, error) {
	if s.latest == nil {
		return "", noContextError()
	}
	doc := encode.ContextDocument(s.latest, s.consts)
	data, err := xrm.MarshalCanonical(doc, s.consts.TypeTags)
	if err != nil {
		return "", &GenerateError{Code: CodeGenerateFailed, Message: "could not serialize the context", Err: err}
	}
	return string(data), nil
}

// ExportWebAPI renders the latest context's target as a Web API payload.
// The metadata lookup is the only asynchronous step; it is awaited here and
// its per-entity results stay cached for the session's lifetime.
func (s *Session) ExportWebAPI(ctx context.Context) (*encode.WebAPIExport, error) {
	if s.latest == nil {
		return nil, noContextError()
	}
	var resolver metadata.Resolver
	if s.resolver != nil {
		resolver = s.resolver
	}
	return encode.WebAPI(ctx, s.latest, resolver)
}

// ExportSnippet renders the latest context as a C# test skeleton.
func (s *Session) ExportSnippet() (string, error) {
	if s.latest == nil {
		return "", noContextError()
	}
	return encode.Snippet(s.latest, s.consts)
}

// Close clears session state, including the metadata cache.
func (s *Session) Close() {
	s.latest = nil
	if s.resolver != nil {
		s.resolver.Clear()
	}
}

func noContextError() *GenerateError {
	return &GenerateError{Code: CodeNoContext, Message: "generate a context first"}
}
