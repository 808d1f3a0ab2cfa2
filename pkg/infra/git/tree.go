package git

import (
	"io"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/m-mizutani/goerr/v2"
)

// treeFile is a non-directory tree entry: blob, symlink or gitlink.
type treeFile struct {
	hash plumbing.Hash
	mode filemode.FileMode
}

// flattenTree returns every non-directory entry of tree keyed by its full
// slash separated path.
func flattenTree(tree *object.Tree) (map[string]treeFile, error) {
	files := make(map[string]treeFile)

	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to walk tree", goerr.V("tree", tree.Hash.String()))
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		files[name] = treeFile{hash: entry.Hash, mode: entry.Mode}
	}

	return files, nil
}

// cleanPath normalizes a repository relative path and rejects paths that
// leave the repository.
func cleanPath(p string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	switch {
	case p == "", cleaned == ".", cleaned == "..":
		return "", goerr.New("invalid repository path", goerr.V("path", p))
	case path.IsAbs(cleaned), strings.HasPrefix(cleaned, "../"):
		return "", goerr.New("path is outside the repository", goerr.V("path", p))
	case cleaned == ".git" || strings.HasPrefix(cleaned, ".git/"):
		return "", goerr.New("path is inside the git directory", goerr.V("path", p))
	}
	return cleaned, nil
}

func writeBlob(s storer.EncodedObjectStorer, content []byte) (plumbing.Hash, error) {
	obj := s.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(content)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, goerr.Wrap(err, "failed to open blob writer")
	}
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, goerr.Wrap(err, "failed to write blob")
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, goerr.Wrap(err, "failed to close blob writer")
	}

	hash, err := s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, goerr.Wrap(err, "failed to store blob")
	}
	return hash, nil
}

type treeNode struct {
	files map[string]treeFile
	dirs  map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{
		files: make(map[string]treeFile),
		dirs:  make(map[string]*treeNode),
	}
}

func (n *treeNode) insert(p string, f treeFile) error {
	parts := strings.Split(p, "/")
	node := n
	for i, part := range parts[:len(parts)-1] {
		if _, ok := node.files[part]; ok {
			return goerr.New("directory conflicts with a file",
				goerr.V("path", p),
				goerr.V("file", strings.Join(parts[:i+1], "/")),
			)
		}
		child, ok := node.dirs[part]
		if !ok {
			child = newTreeNode()
			node.dirs[part] = child
		}
		node = child
	}

	leaf := parts[len(parts)-1]
	if _, ok := node.dirs[leaf]; ok {
		return goerr.New("file conflicts with a directory", goerr.V("path", p))
	}
	node.files[leaf] = f
	return nil
}

func (n *treeNode) write(s storer.EncodedObjectStorer) (plumbing.Hash, error) {
	entries := make([]object.TreeEntry, 0, len(n.files)+len(n.dirs))
	for name, f := range n.files {
		entries = append(entries, object.TreeEntry{Name: name, Mode: f.mode, Hash: f.hash})
	}
	for name, child := range n.dirs {
		hash, err := child.write(s)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}

	// git orders directory entries as if their name had a trailing slash
	sort.Sort(object.TreeEntrySorter(entries))

	tree := &object.Tree{Entries: entries}
	obj := s.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, goerr.Wrap(err, "failed to encode tree")
	}

	hash, err := s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, goerr.Wrap(err, "failed to store tree")
	}
	return hash, nil
}

// writeTree stores the nested trees for a flat path map and returns the root
// tree hash.
func writeTree(s storer.EncodedObjectStorer, files map[string]treeFile) (plumbing.Hash, error) {
	root := newTreeNode()
	for p, f := range files {
		if err := root.insert(p, f); err != nil {
			return plumbing.ZeroHash, err
		}
	}
	return root.write(s)
}
