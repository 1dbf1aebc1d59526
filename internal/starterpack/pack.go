// Package starterpack offers template repositories that seed a challenge
// workspace for the technologies a challenge uses.
package starterpack

import (
	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/tcide/internal/config"
)

// Repo is one cloneable starter repository.
type Repo struct {
	Title  string
	URL    string
	Branch string
}

// Pack groups the starter repositories of one technology.
type Pack struct {
	Name  string
	Repos []Repo
}

// Builtin is the catalogue used when the configuration names none.
func Builtin() []Pack {
	return []Pack{
		{Name: "Node.js", Repos: []Repo{
			{Title: "Node.js + Express starter", URL: "https://github.com/topcoderinc/node-express-starter.git"},
		}},
		{Name: "React", Repos: []Repo{
			{Title: "React single page app", URL: "https://github.com/topcoderinc/react-starter.git"},
		}},
		{Name: "Java", Repos: []Repo{
			{Title: "Java + Maven starter", URL: "https://github.com/topcoderinc/java-maven-starter.git"},
		}},
		{Name: "Go", Repos: []Repo{
			{Title: "Go module starter", URL: "https://github.com/topcoderinc/go-starter.git"},
		}},
	}
}

// FromConfig converts configured packs, falling back to Builtin when none
// are configured.
func FromConfig(packs []config.PackConfig) []Pack {
	if len(packs) == 0 {
		return Builtin()
	}
	out := make([]Pack, 0, len(packs))
	for _, p := range packs {
		pack := Pack{Name: p.Name}
		for _, r := range p.Repos {
			pack.Repos = append(pack.Repos, Repo{Title: r.Title, URL: r.URL, Branch: r.Branch})
		}
		out = append(out, pack)
	}
	return out
}

// ForTechnologies returns the packs whose name matches one of techs,
// ignoring case. Catalogue order is kept.
func ForTechnologies(packs []Pack, techs []string) []Pack {
	fold := cases.Fold()
	wanted := make(map[string]struct{}, len(techs))
	for _, t := range techs {
		wanted[fold.String(t)] = struct{}{}
	}

	var out []Pack
	for _, p := range packs {
		if _, ok := wanted[fold.String(p.Name)]; ok {
			out = append(out, p)
		}
	}
	return out
}
