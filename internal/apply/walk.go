package apply

import (
	"context"
	"path/filepath"
	"regexp"

	"github.com/michaelscutari/remapid/internal/entry"
)

// WalkOptions configures a traversal.
type WalkOptions struct {
	// Exclude skips any path (and everything below it) that matches.
	Exclude []*regexp.Regexp

	// Xdev prevents crossing filesystem boundaries.
	Xdev bool

	// OnError receives lstat and readdir failures; op is "lstat" or
	// "readdir". The traversal continues.
	OnError func(op, path string, err error)
}

// AddExcludePattern adds a pattern to exclude.
func (o *WalkOptions) AddExcludePattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	o.Exclude = append(o.Exclude, re)
	return nil
}

// ShouldExclude checks if a path matches any exclude pattern.
func (o *WalkOptions) ShouldExclude(path string) bool {
	for _, re := range o.Exclude {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// VisitFunc is called once per object. A non-nil return stops the walk and
// is returned from Walk.
type VisitFunc func(obj entry.Object) error

type inode struct {
	dev, ino uint64
}

// pending is a stack item: a path to visit, or a listing error to report
// once the names read before it have been visited.
type pending struct {
	path    string
	listErr error
}

// Walk visits root and everything below it depth-first using an explicit
// stack. Symlinks are visited but never followed. A file with several hard
// links inside the tree is visited once. Siblings are visited in name order.
// With Xdev a mount point is visited but not descended into. A directory
// that can only be listed partially has the names that were read visited
// before its error reaches opts.OnError.
//
// The root must be stat-able; failures below it go to opts.OnError.
func Walk(ctx context.Context, fsys FS, root string, opts WalkOptions, visit VisitFunc) error {
	rootObj, err := fsys.Lstat(root)
	if err != nil {
		return err
	}
	onError := opts.OnError
	if onError == nil {
		onError = func(string, string, error) {}
	}

	seen := map[inode]bool{}
	stack := []pending{{path: root}}
	first := true

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		path := top.path
		if top.listErr != nil {
			onError("readdir", path, top.listErr)
			continue
		}

		var obj entry.Object
		if first {
			obj, first = rootObj, false
		} else {
			obj, err = fsys.Lstat(path)
			if err != nil {
				onError("lstat", path, err)
				continue
			}
		}

		crossed := opts.Xdev && obj.Dev != rootObj.Dev
		if obj.Kind != entry.KindDir && obj.Nlink > 1 {
			key := inode{obj.Dev, obj.Ino}
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		if err := visit(obj); err != nil {
			return err
		}

		if obj.Kind != entry.KindDir || crossed {
			continue
		}
		names, err := fsys.ReadDir(path)
		if err != nil {
			stack = append(stack, pending{path: path, listErr: err})
		}
		// Push in reverse so the first name is popped first.
		for i := len(names) - 1; i >= 0; i-- {
			child := filepath.Join(path, names[i])
			if opts.ShouldExclude(child) {
				continue
			}
			stack = append(stack, pending{path: child})
		}
	}
	return nil
}
