package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/fmtr/relkit/pkg/domain/model"
	"github.com/fmtr/relkit/pkg/domain/types"
)

func TestProject_SetDefaults(t *testing.T) {
	p := model.Project{Org: "acme", Name: "widget", Package: "widget"}
	p.SetDefaults()

	gt.Value(t, p.Bump).Equal(model.BumpAuto)
	gt.Value(t, p.Python).Equal("python3")
	gt.Value(t, p.Paths.Version).Equal("widget/version")
	gt.Value(t, p.Paths.Manifest).Equal("config.yaml")
	gt.Value(t, p.Paths.Changelog).Equal("docs/changelog/unreleased.md")
	gt.Value(t, p.Paths.ChangelogLink).Equal("CHANGELOG.md")
	gt.Value(t, p.Index.Private.Username).Equal("acme")
	gt.Value(t, p.Index.Public.URL).Equal(model.DefaultPublicIndexURL)
	gt.Value(t, p.Build).Equal([]model.ArtifactKind{model.ArtifactWheel, model.ArtifactSourceDistribution})

	t.Run("keeps explicit values", func(t *testing.T) {
		p := model.Project{Org: "acme", Name: "widget", Python: "/usr/bin/python3.12", Bump: model.BumpPatch}
		p.SetDefaults()
		gt.Value(t, p.Python).Equal("/usr/bin/python3.12")
		gt.Value(t, p.Bump).Equal(model.BumpPatch)
		gt.Value(t, p.Paths.Version).Equal("version")
	})
}

func TestProject_Validate(t *testing.T) {
	valid := func() model.Project {
		p := model.Project{Org: "acme", Name: "widget"}
		p.Index.Private.URL = "https://pypi.acme.example/legacy/"
		p.SetDefaults()
		return p
	}

	tests := []struct {
		name    string
		modify  func(p *model.Project)
		wantErr bool
	}{
		{name: "valid", modify: func(p *model.Project) {}},
		{name: "missing org", modify: func(p *model.Project) { p.Org = "" }, wantErr: true},
		{name: "missing name", modify: func(p *model.Project) { p.Name = "" }, wantErr: true},
		{name: "unknown bump", modify: func(p *model.Project) { p.Bump = "major" }, wantErr: true},
		{name: "unknown artifact", modify: func(p *model.Project) { p.Build = []model.ArtifactKind{"egg"} }, wantErr: true},
		{name: "missing private index", modify: func(p *model.Project) { p.Index.Private.URL = "" }, wantErr: true},
		{name: "name with separator", modify: func(p *model.Project) { p.Name = "../widget" }, wantErr: true},
		{name: "name is parent", modify: func(p *model.Project) { p.Name = ".." }, wantErr: true},
		{name: "artifact dir is repository", modify: func(p *model.Project) { p.ArtifactDir = "." }, wantErr: true},
		{name: "artifact dir is parent", modify: func(p *model.Project) { p.ArtifactDir = "../.." }, wantErr: true},
		{name: "artifact dir sibling", modify: func(p *model.Project) { p.ArtifactDir = "../dist" }},
		{name: "artifact dir inside", modify: func(p *model.Project) { p.ArtifactDir = "build/dist" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.modify(&p)
			err := p.Validate()
			if !tt.wantErr {
				gt.NoError(t, err)
				return
			}
			gt.Error(t, err)
			gt.Value(t, errors.Is(err, types.ErrInvalidConfig)).Equal(true)
		})
	}
}

func TestProject_Targets(t *testing.T) {
	p := model.Project{Org: "acme", Name: "widget"}
	p.Index.Private.URL = "https://pypi.acme.example/legacy/"
	p.SetDefaults()

	private := p.PrivateIndex()
	gt.Value(t, private.URL).Equal("https://pypi.acme.example/legacy/")
	gt.Value(t, private.Username).Equal("acme")
	gt.Value(t, private.TokenKey).Equal(model.DefaultPrivateIndexTokenKey)

	public := p.PublicIndex()
	gt.Value(t, public.URL).Equal(model.DefaultPublicIndexURL)
	gt.Value(t, public.Username).Equal("__token__")
}
