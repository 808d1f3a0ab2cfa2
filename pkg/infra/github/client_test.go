package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/gt"

	"github.com/fmtr/relkit/pkg/domain/types"
	githubinfra "github.com/fmtr/relkit/pkg/infra/github"
)

func TestClient_CreateRelease(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 1, "tag_name": "v1.0.1", "html_url": "https://github.com/acme/widget/releases/tag/v1.0.1"}`)
	}))
	defer server.Close()

	client, err := githubinfra.NewClient(types.Secret("test-token"),
		githubinfra.WithBaseURL(server.URL),
		githubinfra.WithHTTPClient(server.Client()))
	gt.NoError(t, err)

	created, err := client.CreateRelease(context.Background(), "acme", "widget", &github.RepositoryRelease{
		TagName:    github.Ptr("v1.0.1"),
		Name:       github.Ptr("Release v1.0.1"),
		Body:       github.Ptr("Release v1.0.1"),
		Draft:      github.Ptr(false),
		Prerelease: github.Ptr(false),
	})
	gt.NoError(t, err)
	gt.Equal(t, created.GetHTMLURL(), "https://github.com/acme/widget/releases/tag/v1.0.1")

	gt.Equal(t, gotPath, "POST /repos/acme/widget/releases")
	gt.Equal(t, gotAuth, "Bearer test-token")
	gt.V(t, gotBody["tag_name"]).Equal(any("v1.0.1"))
	gt.V(t, gotBody["name"]).Equal(any("Release v1.0.1"))
	gt.V(t, gotBody["draft"]).Equal(any(false))
	gt.V(t, gotBody["prerelease"]).Equal(any(false))
}

func TestClient_CreateRelease_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed", "errors": [{"code": "already_exists"}]}`)
	}))
	defer server.Close()

	client, err := githubinfra.NewClient(types.Secret("test-token"), githubinfra.WithBaseURL(server.URL))
	gt.NoError(t, err)

	_, err = client.CreateRelease(context.Background(), "acme", "widget", &github.RepositoryRelease{
		TagName: github.Ptr("v1.0.1"),
	})
	gt.Error(t, err)
}

func TestClient_ListReleaseTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=2>; rel="next"`, "http://"+r.Host, r.URL.Path))
			fmt.Fprint(w, `[{"tag_name": "v1.0.2"}, {"tag_name": "v1.0.1"}]`)
		default:
			fmt.Fprint(w, `[{"tag_name": "v1.0.0"}]`)
		}
	}))
	defer server.Close()

	client, err := githubinfra.NewClient(types.Secret("test-token"), githubinfra.WithBaseURL(server.URL))
	gt.NoError(t, err)

	tags, err := client.ListReleaseTags(context.Background(), "acme", "widget")
	gt.NoError(t, err)
	gt.V(t, tags).Equal([]string{"v1.0.2", "v1.0.1", "v1.0.0"})
}

func TestClient_WithRealAPI(t *testing.T) {
	token := os.Getenv("TEST_GITHUB_TOKEN")
	owner := os.Getenv("TEST_GITHUB_OWNER")
	repo := os.Getenv("TEST_GITHUB_REPO")

	if token == "" || owner == "" || repo == "" {
		t.Skip("TEST_GITHUB_TOKEN, TEST_GITHUB_OWNER and TEST_GITHUB_REPO are required")
	}

	client, err := githubinfra.NewClient(types.Secret(token))
	gt.NoError(t, err)

	_, err = client.ListReleaseTags(context.Background(), owner, repo)
	gt.NoError(t, err)
}
