package report

import (
	"time"

	"github.com/roach88/fcd/internal/reconcile"
	"github.com/roach88/fcd/internal/register"
	"github.com/roach88/fcd/internal/store"
)

// Response is the envelope for json and yaml output.
type Response struct {
	Status string     `json:"status" yaml:"status"` // "ok" or "error"
	Data   any        `json:"data,omitempty" yaml:"data,omitempty"`
	Error  *ErrorBody `json:"error,omitempty" yaml:"error,omitempty"`
	RunID  string     `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// ErrorBody describes a failed command.
type ErrorBody struct {
	Code    string         `json:"code" yaml:"code"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// EntryView is the serialized form of a reconcile.Entry.
type EntryView struct {
	Path          string `json:"path" yaml:"path"`
	Status        string `json:"status" yaml:"status"`
	StoredDigest  string `json:"stored_digest,omitempty" yaml:"stored_digest,omitempty"`
	CurrentDigest string `json:"current_digest,omitempty" yaml:"current_digest,omitempty"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CheckView is the payload of a check.
type CheckView struct {
	Mode    string            `json:"mode" yaml:"mode"`
	Root    string            `json:"root,omitempty" yaml:"root,omitempty"`
	Clean   bool              `json:"clean" yaml:"clean"`
	Scanned int               `json:"scanned" yaml:"scanned"`
	Known   int               `json:"known" yaml:"known"`
	Summary reconcile.Summary `json:"summary" yaml:"summary"`
	Entries []EntryView       `json:"entries" yaml:"entries"`
}

// RecordView is the serialized form of a store.Record.
type RecordView struct {
	Path         string `json:"path" yaml:"path"`
	Digest       string `json:"digest" yaml:"digest"`
	RegisteredAt string `json:"registered_at,omitempty" yaml:"registered_at,omitempty"`
}

// RegistrationView is the serialized form of a register.Result.
type RegistrationView struct {
	Path   string `json:"path" yaml:"path"`
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RegistrationsView is the payload of add and add-folder.
type RegistrationsView struct {
	Registered int                `json:"registered" yaml:"registered"`
	Skipped    int                `json:"skipped" yaml:"skipped"`
	Files      []RegistrationView `json:"files" yaml:"files"`
}

func entryView(e reconcile.Entry) EntryView {
	v := EntryView{
		Path:          e.Path,
		Status:        string(e.Status),
		StoredDigest:  e.StoredDigest,
		CurrentDigest: e.CurrentDigest,
	}
	if e.Err != nil {
		v.Error = e.Err.Error()
	}
	return v
}

func recordView(r store.Record) RecordView {
	v := RecordView{Path: r.Path, Digest: r.Digest}
	if !r.RegisteredAt.IsZero() {
		v.RegisteredAt = r.RegisteredAt.UTC().Format(time.RFC3339)
	}
	return v
}

func registrationsView(results []register.Result) RegistrationsView {
	v := RegistrationsView{Files: make([]RegistrationView, 0, len(results))}
	for _, r := range results {
		rv := RegistrationView{Path: r.Path, Digest: r.Digest}
		if r.Err != nil {
			rv.Error = r.Err.Error()
			v.Skipped++
		} else {
			v.Registered++
		}
		v.Files = append(v.Files, rv)
	}
	return v
}
