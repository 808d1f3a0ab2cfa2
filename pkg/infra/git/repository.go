package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/model"
	"github.com/fmtr/relkit/pkg/domain/types"
)

const (
	RemoteName    = "origin"
	PrimaryBranch = "main"
	ReleaseBranch = "release"

	defaultSignatureName  = "relkit"
	defaultSignatureEmail = "relkit@localhost"
)

var (
	fetchRefSpecs = []gitconfig.RefSpec{
		"+refs/heads/*:refs/remotes/origin/*",
		"+refs/tags/*:refs/tags/*",
	}

	pushRefSpecs = []gitconfig.RefSpec{
		gitconfig.RefSpec("refs/heads/" + PrimaryBranch + ":refs/heads/" + PrimaryBranch),
		gitconfig.RefSpec("refs/heads/" + ReleaseBranch + ":refs/heads/" + ReleaseBranch),
		"refs/tags/*:refs/tags/*",
	}
)

// config holds internal repository configuration
type config struct {
	auth    transport.AuthMethod
	authSet bool
	name    string
	email   string
	now     func() time.Time
}

// Option is a functional option for Repository configuration
type Option func(*config)

// WithAuth replaces the SSH key pair with the given auth method. nil disables
// authentication, which is what local file remotes need.
func WithAuth(auth transport.AuthMethod) Option {
	return func(c *config) {
		c.auth = auth
		c.authSet = true
	}
}

// WithSignature sets the author, committer and tagger identity
func WithSignature(name, email string) Option {
	return func(c *config) {
		c.name = name
		c.email = email
	}
}

// WithClock sets the time source of signatures
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// Repository wraps one on-disk working copy
type Repository struct {
	repo *gogit.Repository
	root string
	cfg  *config
}

var _ interfaces.SourceRepository = (*Repository)(nil)

// Open opens the working copy containing path
func Open(path string, opts ...Option) (*Repository, error) {
	cfg := &config{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open repository", goerr.V("path", path))
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get worktree", goerr.V("path", path))
	}

	return &Repository{
		repo: repo,
		root: wt.Filesystem.Root(),
		cfg:  cfg,
	}, nil
}

// Root returns the working tree root directory
func (x *Repository) Root() string {
	return x.root
}

// authMethod returns the configured auth, loading the key pair from
// ~/.ssh/id_rsa on first use.
func (x *Repository) authMethod() (transport.AuthMethod, error) {
	if x.cfg.authSet {
		return x.cfg.auth, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve home directory")
	}

	keyPath := filepath.Join(home, ".ssh", "id_rsa")
	auth, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load SSH key pair", goerr.V("key", keyPath))
	}

	x.cfg.auth = auth
	x.cfg.authSet = true
	return auth, nil
}

func (x *Repository) remoteURL() string {
	remote, err := x.repo.Remote(RemoteName)
	if err != nil || len(remote.Config().URLs) == 0 {
		return ""
	}
	return remote.Config().URLs[0]
}

// Fetch pulls all branch and tag refs from origin
func (x *Repository) Fetch(ctx context.Context) error {
	logger := ctxlog.From(ctx)

	auth, err := x.authMethod()
	if err != nil {
		return err
	}

	logger.Info("Fetching from remote",
		"remote", RemoteName,
		"url", x.remoteURL(),
	)

	err = x.repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: RemoteName,
		RefSpecs:   fetchRefSpecs,
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return goerr.Wrap(err, "failed to fetch", goerr.V("remote", RemoteName))
	}

	return nil
}

// Push pushes the primary branch, the release branch and all tags to origin
func (x *Repository) Push(ctx context.Context) error {
	logger := ctxlog.From(ctx)

	auth, err := x.authMethod()
	if err != nil {
		return err
	}

	logger.Info("Pushing to remote",
		"remote", RemoteName,
		"url", x.remoteURL(),
	)

	err = x.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: RemoteName,
		RefSpecs:   pushRefSpecs,
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return goerr.Wrap(err, "failed to push", goerr.V("remote", RemoteName))
	}

	return nil
}

func (x *Repository) signature() object.Signature {
	name, email := x.cfg.name, x.cfg.email
	if name == "" || email == "" {
		if cfg, err := x.repo.ConfigScoped(gitconfig.GlobalScope); err == nil {
			if name == "" {
				name = cfg.User.Name
			}
			if email == "" {
				email = cfg.User.Email
			}
		}
	}
	if name == "" {
		name = defaultSignatureName
	}
	if email == "" {
		email = defaultSignatureEmail
	}

	return object.Signature{Name: name, Email: email, When: x.cfg.now()}
}

// StageAndCommit builds a tree from the primary branch head overlaid with
// changes and commits it on the primary branch. The live index and the
// working tree are never read.
func (x *Repository) StageAndCommit(ctx context.Context, changes []model.StagedChange, message string) (model.CommitID, error) {
	logger := ctxlog.From(ctx)

	primaryName := plumbing.NewBranchReferenceName(PrimaryBranch)
	primary, err := x.repo.Reference(primaryName, true)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve primary branch", goerr.V("branch", PrimaryBranch))
	}

	parent, err := x.repo.CommitObject(primary.Hash())
	if err != nil {
		return "", goerr.Wrap(err, "failed to load primary head", goerr.V("commit", primary.Hash().String()))
	}

	parentTree, err := parent.Tree()
	if err != nil {
		return "", goerr.Wrap(err, "failed to load tree of primary head")
	}

	files, err := flattenTree(parentTree)
	if err != nil {
		return "", err
	}

	for _, change := range changes {
		p, err := cleanPath(change.Path)
		if err != nil {
			return "", err
		}

		if change.Remove {
			delete(files, p)
			logger.Debug("Staged removal", "path", p)
			continue
		}

		hash, err := writeBlob(x.repo.Storer, change.Content)
		if err != nil {
			return "", goerr.Wrap(err, "failed to stage change", goerr.V("path", p))
		}

		mode := filemode.FileMode(change.Mode)
		if change.Mode == 0 {
			mode = filemode.FileMode(model.ModeRegular)
			if prev, ok := files[p]; ok {
				mode = prev.mode
			}
		}

		files[p] = treeFile{hash: hash, mode: mode}
		logger.Debug("Staged change", "path", p, "blob", hash.String(), "mode", mode.String())
	}

	treeHash, err := writeTree(x.repo.Storer, files)
	if err != nil {
		return "", goerr.Wrap(err, "failed to write tree")
	}

	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}

	sig := x.signature()
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: []plumbing.Hash{parent.Hash},
	}

	obj := x.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return "", goerr.Wrap(err, "failed to encode commit")
	}
	hash, err := x.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", goerr.Wrap(err, "failed to store commit")
	}

	newRef := plumbing.NewHashReference(primaryName, hash)
	if err := x.repo.Storer.CheckAndSetReference(newRef, primary); err != nil {
		return "", goerr.Wrap(err, "failed to update primary branch",
			goerr.V("branch", PrimaryBranch),
			goerr.V("commit", hash.String()),
		)
	}

	logger.Info("Created commit",
		"branch", PrimaryBranch,
		"commit", hash.String(),
		"parent", parent.Hash.String(),
		"changes", len(changes),
	)

	return model.CommitID(hash.String()), nil
}

// HasTag reports whether a tag exists
func (x *Repository) HasTag(ctx context.Context, name string) (bool, error) {
	_, err := x.repo.Tag(name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gogit.ErrTagNotFound):
		return false, nil
	default:
		return false, goerr.Wrap(err, "failed to look up tag", goerr.V("tag", name))
	}
}

// Tags returns the names of all tags, sorted
func (x *Repository) Tags(ctx context.Context) ([]string, error) {
	iter, err := x.repo.Tags()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tags")
	}
	defer iter.Close()

	var names []string
	if err := iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate tags")
	}

	sort.Strings(names)
	return names, nil
}

// Tag creates an annotated tag pointing at commit
func (x *Repository) Tag(ctx context.Context, name string, commit model.CommitID, message string) error {
	logger := ctxlog.From(ctx)

	exists, err := x.HasTag(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return goerr.Wrap(types.ErrTagExists, "failed to create tag", goerr.V("tag", name))
	}

	sig := x.signature()
	_, err = x.repo.CreateTag(name, plumbing.NewHash(string(commit)), &gogit.CreateTagOptions{
		Tagger:  &sig,
		Message: message,
	})
	if errors.Is(err, gogit.ErrTagExists) {
		return goerr.Wrap(types.ErrTagExists, "failed to create tag", goerr.V("tag", name))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to create tag", goerr.V("tag", name), goerr.V("commit", string(commit)))
	}

	logger.Info("Created tag", "tag", name, "commit", string(commit))
	return nil
}

// FastForwardRelease moves the release branch to commit. The branch is
// created at HEAD when missing. When the release head is not an ancestor of
// commit nothing is changed and types.ErrReleaseDiverged is returned.
func (x *Repository) FastForwardRelease(ctx context.Context, commit model.CommitID) error {
	logger := ctxlog.From(ctx)

	target, err := x.repo.CommitObject(plumbing.NewHash(string(commit)))
	if err != nil {
		return goerr.Wrap(err, "failed to load commit", goerr.V("commit", string(commit)))
	}

	releaseName := plumbing.NewBranchReferenceName(ReleaseBranch)
	release, err := x.repo.Reference(releaseName, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		head, err := x.repo.Head()
		if err != nil {
			return goerr.Wrap(err, "failed to resolve HEAD")
		}

		release = plumbing.NewHashReference(releaseName, head.Hash())
		if err := x.repo.Storer.SetReference(release); err != nil {
			return goerr.Wrap(err, "failed to create release branch", goerr.V("branch", ReleaseBranch))
		}
		logger.Info("Created release branch", "branch", ReleaseBranch, "commit", head.Hash().String())
	} else if err != nil {
		return goerr.Wrap(err, "failed to resolve release branch", goerr.V("branch", ReleaseBranch))
	}

	current, err := x.repo.CommitObject(release.Hash())
	if err != nil {
		return goerr.Wrap(err, "failed to load release head", goerr.V("commit", release.Hash().String()))
	}

	bases, err := target.MergeBase(current)
	if err != nil {
		return goerr.Wrap(err, "failed to compute merge base",
			goerr.V("commit", target.Hash.String()),
			goerr.V("release", current.Hash.String()),
		)
	}
	if len(bases) != 1 || bases[0].Hash != current.Hash {
		return goerr.Wrap(types.ErrReleaseDiverged, "refusing to move release branch",
			goerr.V("branch", ReleaseBranch),
			goerr.V("release", current.Hash.String()),
			goerr.V("commit", target.Hash.String()),
		)
	}

	if current.Hash == target.Hash {
		logger.Debug("Release branch already at commit", "commit", target.Hash.String())
		return nil
	}

	newRef := plumbing.NewHashReference(releaseName, target.Hash)
	if err := x.repo.Storer.CheckAndSetReference(newRef, release); err != nil {
		return goerr.Wrap(err, "failed to update release branch", goerr.V("branch", ReleaseBranch))
	}

	logger.Info("Fast-forwarded release branch",
		"branch", ReleaseBranch,
		"from", current.Hash.String(),
		"to", target.Hash.String(),
	)
	return nil
}
