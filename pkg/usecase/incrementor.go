package usecase

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/model"
)

// absPath maps a slash separated repository path to a local path
func absPath(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func exists(p string) (bool, error) {
	_, err := os.Lstat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to stat file", goerr.V("path", p))
}

type versionFileIncrementor struct {
	root string
	path string
}

// NewVersionFileIncrementor writes the bare version string to the project
// version file
func NewVersionFileIncrementor(project *model.Project, root string) interfaces.Incrementor {
	return &versionFileIncrementor{root: root, path: project.Paths.Version}
}

func (x *versionFileIncrementor) Name() string { return "version_file" }

func (x *versionFileIncrementor) Apply(ctx context.Context, version model.Version) ([]model.StagedChange, error) {
	content := []byte(version.String())
	p := absPath(x.root, x.path)

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create version file directory", goerr.V("path", p))
	}
	if err := os.WriteFile(p, content, 0644); err != nil {
		return nil, goerr.Wrap(err, "failed to write version file", goerr.V("path", p))
	}

	ctxlog.From(ctx).Info("Incremented version file",
		"path", x.path,
		"version", version.String())

	return []model.StagedChange{{Path: x.path, Content: content}}, nil
}

type manifestIncrementor struct {
	root string
	path string
}

// NewDeploymentManifestIncrementor sets the top-level version key of a YAML
// deployment manifest when the manifest exists
func NewDeploymentManifestIncrementor(project *model.Project, root string) interfaces.Incrementor {
	return &manifestIncrementor{root: root, path: project.Paths.Manifest}
}

func (x *manifestIncrementor) Name() string { return "deployment_manifest" }

func (x *manifestIncrementor) Apply(ctx context.Context, version model.Version) ([]model.StagedChange, error) {
	logger := ctxlog.From(ctx)
	p := absPath(x.root, x.path)

	found, err := exists(p)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Warn("Deployment manifest not found, skipping", "path", x.path)
		return nil, nil
	}

	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest", goerr.V("path", p))
	}

	content, err := setManifestVersion(raw, version.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update manifest", goerr.V("path", x.path))
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to stat manifest", goerr.V("path", p))
	}
	if err := os.WriteFile(p, content, info.Mode().Perm()); err != nil {
		return nil, goerr.Wrap(err, "failed to write manifest", goerr.V("path", p))
	}

	logger.Info("Incremented deployment manifest",
		"path", x.path,
		"version", version.String())

	return []model.StagedChange{{Path: x.path, Content: content}}, nil
}

// setManifestVersion rewrites the top-level version scalar of a YAML mapping
// document. Key order and comments are kept.
func setManifestVersion(raw []byte, version string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML")
	}

	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, goerr.New("manifest is not a YAML mapping")
	}
	root := doc.Content[0]

	var value *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "version" {
			value = root.Content[i+1]
			break
		}
	}

	if value == nil {
		value = &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "version"},
			value)
	}
	value.Kind = yaml.ScalarNode
	value.Tag = "!!str"
	value.Value = version
	value.Content = nil

	buf := &bytes.Buffer{}
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to encode YAML")
	}
	if err := enc.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to encode YAML")
	}

	return buf.Bytes(), nil
}

type changelogIncrementor struct {
	root string
	path string
	link string
}

// NewChangelogIncrementor renames the unreleased changelog after the version
// and points the stable changelog link at it
func NewChangelogIncrementor(project *model.Project, root string) interfaces.Incrementor {
	return &changelogIncrementor{
		root: root,
		path: project.Paths.Changelog,
		link: project.Paths.ChangelogLink,
	}
}

func (x *changelogIncrementor) Name() string { return "changelog" }

func (x *changelogIncrementor) Apply(ctx context.Context, version model.Version) ([]model.StagedChange, error) {
	logger := ctxlog.From(ctx)
	src := absPath(x.root, x.path)

	found, err := exists(src)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Warn("Unreleased changelog not found, skipping", "path", x.path)
		return nil, nil
	}

	content, err := os.ReadFile(src)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read changelog", goerr.V("path", src))
	}

	versioned := path.Join(path.Dir(x.path), version.String()+path.Ext(x.path))
	dst := absPath(x.root, versioned)
	taken, err := exists(dst)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, goerr.New("versioned changelog already exists", goerr.V("path", versioned))
	}
	if err := os.Rename(src, dst); err != nil {
		return nil, goerr.Wrap(err, "failed to rename changelog",
			goerr.V("from", src),
			goerr.V("to", dst))
	}

	linkPath := absPath(x.root, x.link)
	target, err := filepath.Rel(filepath.Dir(linkPath), dst)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compute changelog link target",
			goerr.V("link", linkPath),
			goerr.V("target", dst))
	}
	target = filepath.ToSlash(target)

	if err := os.Remove(linkPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, goerr.Wrap(err, "failed to remove changelog link", goerr.V("path", linkPath))
	}
	if err := os.MkdirAll(filepath.Dir(linkPath), 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create changelog link directory", goerr.V("path", linkPath))
	}
	if err := os.Symlink(filepath.FromSlash(target), linkPath); err != nil {
		return nil, goerr.Wrap(err, "failed to create changelog link",
			goerr.V("link", linkPath),
			goerr.V("target", target))
	}

	logger.Info("Versioned changelog",
		"from", x.path,
		"to", versioned,
		"link", x.link)

	return []model.StagedChange{
		{Path: x.path, Remove: true},
		{Path: versioned, Content: content},
		{Path: x.link, Content: []byte(target), Mode: model.ModeSymlink},
	}, nil
}
