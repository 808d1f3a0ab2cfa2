package usecase_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/go-github/v75/github"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/model"
	"github.com/fmtr/relkit/pkg/domain/types"
)

// MockRepository is a mock implementation of SourceRepository that records
// every call in order
type MockRepository struct {
	root  string
	tags  map[string]model.CommitID
	calls []string

	fetchFunc  func(ctx context.Context) error
	commitFunc func(ctx context.Context, changes []model.StagedChange, message string) (model.CommitID, error)
	ffFunc     func(ctx context.Context, commit model.CommitID) error
	pushFunc   func(ctx context.Context) error

	committed []model.StagedChange
}

func newMockRepository(root string) *MockRepository {
	return &MockRepository{root: root, tags: map[string]model.CommitID{}}
}

func (m *MockRepository) Fetch(ctx context.Context) error {
	m.calls = append(m.calls, "fetch")
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx)
	}
	return nil
}

func (m *MockRepository) StageAndCommit(ctx context.Context, changes []model.StagedChange, message string) (model.CommitID, error) {
	m.calls = append(m.calls, "commit")
	m.committed = changes
	if m.commitFunc != nil {
		return m.commitFunc(ctx, changes, message)
	}
	return "c0ffee", nil
}

func (m *MockRepository) Tag(ctx context.Context, name string, commit model.CommitID, message string) error {
	m.calls = append(m.calls, "tag")
	if _, ok := m.tags[name]; ok {
		return types.ErrTagExists
	}
	m.tags[name] = commit
	return nil
}

func (m *MockRepository) FastForwardRelease(ctx context.Context, commit model.CommitID) error {
	m.calls = append(m.calls, "fast_forward")
	if m.ffFunc != nil {
		return m.ffFunc(ctx, commit)
	}
	return nil
}

func (m *MockRepository) Push(ctx context.Context) error {
	m.calls = append(m.calls, "push")
	if m.pushFunc != nil {
		return m.pushFunc(ctx)
	}
	return nil
}

func (m *MockRepository) Tags(ctx context.Context) ([]string, error) {
	var names []string
	for name := range m.tags {
		names = append(names, name)
	}
	return names, nil
}

func (m *MockRepository) HasTag(ctx context.Context, name string) (bool, error) {
	_, ok := m.tags[name]
	return ok, nil
}

func (m *MockRepository) Root() string { return m.root }

// MockVersionStore returns fixed versions
type MockVersionStore struct {
	current string
	err     error
	calls   int
}

func (m *MockVersionStore) Current(ctx context.Context) (model.Version, error) {
	if m.err != nil {
		return model.Version{}, m.err
	}
	return model.ParseVersion(m.current)
}

func (m *MockVersionStore) Next(ctx context.Context) (model.Version, model.Version, error) {
	m.calls++
	current, err := m.Current(ctx)
	if err != nil {
		return model.Version{}, model.Version{}, err
	}
	next, err := current.Next(model.BumpAuto)
	return current, next, err
}

// MockIncrementor returns fixed changes
type MockIncrementor struct {
	name    string
	changes []model.StagedChange
	err     error
	applied []model.Version
}

func (m *MockIncrementor) Name() string { return m.name }

func (m *MockIncrementor) Apply(ctx context.Context, version model.Version) ([]model.StagedChange, error) {
	m.applied = append(m.applied, version)
	return m.changes, m.err
}

// MockPackager writes one file named after its kind into the output dir
type MockPackager struct {
	kind  model.ArtifactKind
	err   error
	calls int
}

func (m *MockPackager) Kind() model.ArtifactKind { return m.kind }

func (m *MockPackager) Package(ctx context.Context, sourceDir, outputDir string) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	f := filepath.Join(outputDir, "widget-"+string(m.kind))
	if err := os.WriteFile(f, []byte(m.kind), 0644); err != nil {
		return nil, err
	}
	return []string{f}, nil
}

// MockPublisher records the releases it received
type MockPublisher struct {
	name string
	err  error

	mu       sync.Mutex
	releases []*model.Release
}

func (m *MockPublisher) Name() string { return m.name }

func (m *MockPublisher) Publish(ctx context.Context, release *model.Release) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases = append(m.releases, release)
	return m.err
}

func (m *MockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.releases)
}

// MockCommandRunner records invocations
type MockCommandRunner struct {
	runFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
	calls   []MockCommand
}

type MockCommand struct {
	Dir  string
	Name string
	Args []string
}

func (m *MockCommandRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, MockCommand{Dir: dir, Name: name, Args: args})
	if m.runFunc != nil {
		return m.runFunc(ctx, dir, name, args...)
	}
	return nil, nil
}

// MockGitHubClient is a mock implementation of GitHubClient
type MockGitHubClient struct {
	createReleaseFunc func(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, error)
	created           []*github.RepositoryRelease
}

func (m *MockGitHubClient) CreateRelease(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, error) {
	m.created = append(m.created, release)
	if m.createReleaseFunc != nil {
		return m.createReleaseFunc(ctx, owner, repo, release)
	}
	return &github.RepositoryRelease{HTMLURL: github.Ptr("https://github.com/" + owner + "/" + repo + "/releases/tag/" + release.GetTagName())}, nil
}

func (m *MockGitHubClient) ListReleaseTags(ctx context.Context, owner, repo string) ([]string, error) {
	return nil, errors.New("mock not configured")
}

// MockUploader records uploads
type MockUploader struct {
	err     error
	uploads []MockUpload
}

type MockUpload struct {
	URL      string
	Username string
	Password types.Secret
	File     string
}

func (m *MockUploader) Upload(ctx context.Context, url, username string, password types.Secret, file string) error {
	m.uploads = append(m.uploads, MockUpload{URL: url, Username: username, Password: password, File: filepath.Base(file)})
	return m.err
}

// MockPoster records webhook posts
type MockPoster struct {
	posts []string
	urls  []types.Secret
}

func (m *MockPoster) Post(ctx context.Context, url types.Secret, text string) error {
	m.urls = append(m.urls, url)
	m.posts = append(m.posts, text)
	return nil
}

// MockStorage keeps objects in memory
type MockStorage struct {
	objects map[string]string
}

func (m *MockStorage) Put(ctx context.Context, bucket, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string]string{}
	}
	m.objects[bucket+"/"+name] = string(data)
	return nil
}

var (
	_ interfaces.SourceRepository = &MockRepository{}
	_ interfaces.VersionStore     = &MockVersionStore{}
	_ interfaces.Incrementor      = &MockIncrementor{}
	_ interfaces.Packager         = &MockPackager{}
	_ interfaces.Publisher        = &MockPublisher{}
	_ interfaces.CommandRunner    = &MockCommandRunner{}
	_ interfaces.GitHubClient     = &MockGitHubClient{}
	_ interfaces.PackageUploader  = &MockUploader{}
	_ interfaces.WebhookPoster    = &MockPoster{}
	_ interfaces.ObjectStorage    = &MockStorage{}
)

func newProject() *model.Project {
	p := &model.Project{Org: "acme", Name: "widget", Package: "widget"}
	p.Index.Private.URL = "https://pypi.acme.example/legacy/"
	p.SetDefaults()
	return p
}
