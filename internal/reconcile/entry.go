package reconcile

import "sort"

// Status classifies one path after reconciliation.
type Status string

const (
	// OK: tracked, present, digest unchanged.
	OK Status = "OK"
	// Deleted: tracked but no longer present.
	Deleted Status = "DELETED"
	// Mismatch: tracked and present, digest differs from the record.
	Mismatch Status = "MISMATCH"
	// Untracked: present under a checked root but never registered.
	Untracked Status = "UNTRACKED"
	// Unreadable: present but could not be read; Err says why.
	Unreadable Status = "UNREADABLE"
)

// Statuses lists every status in report order.
var Statuses = []Status{OK, Deleted, Mismatch, Untracked, Unreadable}

// Entry is the verdict for one path. It is never persisted.
type Entry struct {
	Path          string
	Status        Status
	StoredDigest  string
	CurrentDigest string
	Err           error
}

// Discrepancy reports whether the entry is anything other than OK.
func (e Entry) Discrepancy() bool {
	return e.Status != OK
}

// Result is the outcome of a batch check.
type Result struct {
	// Entries sorted by path.
	Entries []Entry
	// Scanned is the number of filesystem entries walked (0 for CheckAll).
	Scanned int
	// Known is the number of store records considered.
	Known int
}

// Summary counts entries per status.
type Summary struct {
	OK         int `json:"ok" yaml:"ok"`
	Deleted    int `json:"deleted" yaml:"deleted"`
	Mismatch   int `json:"mismatch" yaml:"mismatch"`
	Untracked  int `json:"untracked" yaml:"untracked"`
	Unreadable int `json:"unreadable" yaml:"unreadable"`
}

// Discrepancies is the number of entries that are not OK.
func (s Summary) Discrepancies() int {
	return s.Deleted + s.Mismatch + s.Untracked + s.Unreadable
}

// Clean reports whether nothing changed.
func (s Summary) Clean() bool {
	return s.Discrepancies() == 0
}

// Summary tallies the entries.
func (r Result) Summary() Summary {
	return Summarize(r.Entries)
}

// Clean reports whether every entry is OK.
func (r Result) Clean() bool {
	return r.Summary().Clean()
}

// Summarize tallies entries by status.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Status {
		case OK:
			s.OK++
		case Deleted:
			s.Deleted++
		case Mismatch:
			s.Mismatch++
		case Untracked:
			s.Untracked++
		case Unreadable:
			s.Unreadable++
		}
	}
	return s
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}
