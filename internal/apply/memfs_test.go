package apply

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/michaelscutari/remapid/internal/entry"
)

type memNode struct {
	kind     entry.Kind
	uid, gid uint32
	dev, ino uint64
	nlink    uint64
	children []string
}

// memFS is an in-memory tree. Hard links share one *memNode.
type memFS struct {
	nodes      map[string]*memNode
	nextIno    uint64
	lstatErr   map[string]error
	readdirErr map[string]error
	// readdirCut lists only the first n names of a directory that also has
	// a readdirErr.
	readdirCut map[string]int
	chownErr   map[string]error
	chowns     []string
}

func newMemFS() *memFS {
	m := &memFS{
		nodes:      map[string]*memNode{},
		lstatErr:   map[string]error{},
		readdirErr: map[string]error{},
		readdirCut: map[string]int{},
		chownErr:   map[string]error{},
	}
	m.add("/", entry.KindDir, 0, 0)
	return m
}

func (m *memFS) add(path string, kind entry.Kind, uid, gid uint32) *memNode {
	m.nextIno++
	n := &memNode{kind: kind, uid: uid, gid: gid, dev: 1, ino: m.nextIno, nlink: 1}
	m.link(path, n)
	return n
}

func (m *memFS) link(path string, n *memNode) {
	m.nodes[path] = n
	if path == "/" {
		return
	}
	parent := m.nodes[filepath.Dir(path)]
	parent.children = append(parent.children, filepath.Base(path))
	sort.Strings(parent.children)
}

func (m *memFS) hardlink(existing, path string) {
	n := m.nodes[existing]
	n.nlink++
	m.nodes[path] = n
	parent := m.nodes[filepath.Dir(path)]
	parent.children = append(parent.children, filepath.Base(path))
	sort.Strings(parent.children)
}

func (m *memFS) owner(path string) (uint32, uint32) {
	n := m.nodes[path]
	return n.uid, n.gid
}

func (m *memFS) Lstat(path string) (entry.Object, error) {
	if err := m.lstatErr[path]; err != nil {
		return entry.Object{Path: path}, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}
	n, ok := m.nodes[path]
	if !ok {
		return entry.Object{Path: path}, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
	}
	return entry.Object{Path: path, Kind: n.kind, UID: n.uid, GID: n.gid, Dev: n.dev, Ino: n.ino, Nlink: n.nlink}, nil
}

func (m *memFS) ReadDir(path string) ([]string, error) {
	if err := m.readdirErr[path]; err != nil {
		n := m.readdirCut[path]
		if node, ok := m.nodes[path]; ok && n > 0 {
			return append([]string(nil), node.children[:n]...), err
		}
		return nil, err
	}
	n, ok := m.nodes[path]
	if !ok || n.kind != entry.KindDir {
		return nil, errors.New("not a directory")
	}
	return append([]string(nil), n.children...), nil
}

func (m *memFS) Lchown(path string, uid, gid int) error {
	if err := m.chownErr[path]; err != nil {
		return err
	}
	n := m.nodes[path]
	if uid >= 0 {
		n.uid = uint32(uid)
	}
	if gid >= 0 {
		n.gid = uint32(gid)
	}
	m.chowns = append(m.chowns, path)
	return nil
}
