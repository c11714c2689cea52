package entry

import (
	"os"
	"time"
)

// Kind represents the type of filesystem object.
type Kind uint8

const (
	KindFile    Kind = 0
	KindDir     Kind = 1
	KindSymlink Kind = 2
	KindOther   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// KindFromMode derives the Kind from an os.FileMode.
func KindFromMode(mode os.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	case mode&os.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}

// Object is one visited filesystem object as seen by lstat.
type Object struct {
	Path  string
	Kind  Kind
	UID   uint32
	GID   uint32
	Dev   uint64
	Ino   uint64
	Nlink uint64
}

// Change is one planned ownership change. Applied is false for dry runs and
// for changes whose chown failed.
type Change struct {
	Path    string
	Kind    Kind
	OldUID  uint32
	OldGID  uint32
	NewUID  uint32
	NewGID  uint32
	Applied bool
}

// UIDChanged reports whether the owner is rewritten.
func (c Change) UIDChanged() bool { return c.OldUID != c.NewUID }

// GIDChanged reports whether the group is rewritten.
func (c Change) GIDChanged() bool { return c.OldGID != c.NewGID }

// Warning is a non-fatal problem recorded during a run.
type Warning struct {
	Path    string
	Message string
}

// RunMeta holds metadata about one remap run.
type RunMeta struct {
	RunID     string
	Mode      string // "file" or "after"
	BasePath  string
	DryRun    bool
	Reverse   bool
	StartTime time.Time
	EndTime   time.Time
	Checked   int64
	Changed   int64
	Failed    int64
	Skipped   int64
	Warnings  int64
	Status    string // "running", "complete", "canceled", "failed"
}
