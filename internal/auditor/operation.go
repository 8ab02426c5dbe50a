package auditor

import (
	"io"

	"github.com/roach88/fcd/internal/reconcile"
	"github.com/roach88/fcd/internal/register"
	"github.com/roach88/fcd/internal/store"
)

// Operation is one request to the auditor. The set of operations is closed:
// Init, Add, AddFolder, Remove, List, Check, Export and Import.
type Operation interface {
	// Store is the location of the record store the operation runs against.
	Store() string
	isOperation()
}

// Init creates an empty store.
type Init struct{ Location string }

// Add registers one file.
type Add struct{ Location, Path string }

// AddFolder registers every file below Root.
type AddFolder struct{ Location, Root string }

// Remove drops the record for Path.
type Remove struct{ Location, Path string }

// List returns records, all of them or those under Prefix.
type List struct{ Location, Prefix string }

// CheckMode selects what a Check reconciles.
type CheckMode int

const (
	// CheckAuto picks Single for a regular file and Subtree otherwise.
	CheckAuto CheckMode = iota
	// CheckAll checks every record without walking the filesystem.
	CheckAll
	// CheckSingle checks one registered file.
	CheckSingle
	// CheckSubtree reconciles a directory tree.
	CheckSubtree
)

func (m CheckMode) String() string {
	switch m {
	case CheckAll:
		return "all"
	case CheckSingle:
		return "single"
	case CheckSubtree:
		return "subtree"
	default:
		return "auto"
	}
}

// Check compares files against their records. Path is ignored for CheckAll.
type Check struct {
	Location string
	Mode     CheckMode
	Path     string
}

// Export writes the store's records as a baseline to Out.
type Export struct {
	Location string
	Out      io.Writer
}

// Import merges a baseline read from In into the store.
type Import struct {
	Location string
	In       io.Reader
}

func (o Init) Store() string      { return o.Location }
func (o Add) Store() string       { return o.Location }
func (o AddFolder) Store() string { return o.Location }
func (o Remove) Store() string    { return o.Location }
func (o List) Store() string      { return o.Location }
func (o Check) Store() string     { return o.Location }
func (o Export) Store() string    { return o.Location }
func (o Import) Store() string    { return o.Location }

func (Init) isOperation()      {}
func (Add) isOperation()       {}
func (AddFolder) isOperation() {}
func (Remove) isOperation()    {}
func (List) isOperation()      {}
func (Check) isOperation()     {}
func (Export) isOperation()    {}
func (Import) isOperation()    {}

// Outcome is what Dispatch returns. Which fields are set depends on the
// operation.
type Outcome struct {
	Op Operation

	// Check
	Mode   CheckMode
	Root   string
	Result reconcile.Result

	// Add, AddFolder
	Registered []register.Result

	// List
	Records []store.Record

	// Remove
	Path    string
	Removed bool

	// Export, Import
	Transferred int
}

// Discrepancies reports whether the outcome needs attention: a check that
// found anything other than OK, or a registration that skipped files.
func (o Outcome) Discrepancies() bool {
	switch o.Op.(type) {
	case Check:
		return !o.Result.Clean()
	case Add, AddFolder:
		return len(register.Failed(o.Registered)) > 0
	}
	return false
}
