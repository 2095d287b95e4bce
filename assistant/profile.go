package assistant

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// Profile descreve como o agente responde: prompt, modelo e ferramentas.
type Profile struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Instructions []string `yaml:"instructions"`
	Model        string   `yaml:"model"`
	MaxTokens    int      `yaml:"max_tokens"`
	Temperature  float64  `yaml:"temperature"`
	// History é quantas mensagens anteriores da run entram no prompt.
	History       int      `yaml:"history"`
	Tools         []string `yaml:"tools"`
	RequiresPaper bool     `yaml:"requires_paper"`
	// Next é o perfil gravado na run depois da primeira resposta.
	Next string `yaml:"next"`
}

type profileFile struct {
	Default  string    `yaml:"default"`
	Profiles []Profile `yaml:"profiles"`
}

type Profiles struct {
	Default string
	byName  map[string]Profile
}

func (p Profiles) Get(name string) (Profile, bool) {
	if name == "" {
		name = p.Default
	}
	prof, ok := p.byName[name]
	return prof, ok
}

func (p Profiles) Names() []string {
	out := make([]string, 0, len(p.byName))
	for name := range p.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultProfiles devolve os perfis embutidos no binário.
func DefaultProfiles() (Profiles, error) {
	return parseProfiles(defaultProfiles, Profiles{})
}

// LoadProfiles lê os perfis embutidos e aplica por cima os do arquivo em path
// (mesmo nome substitui). path vazio devolve só os embutidos.
func LoadProfiles(path string) (Profiles, error) {
	base, err := DefaultProfiles()
	if err != nil {
		return Profiles{}, err
	}
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profiles{}, fmt.Errorf("read profiles: %w", err)
	}
	return parseProfiles(data, base)
}

func parseProfiles(data []byte, base Profiles) (Profiles, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Profiles{}, fmt.Errorf("parse profiles: %w", err)
	}

	out := Profiles{Default: base.Default, byName: make(map[string]Profile, len(base.byName)+len(f.Profiles))}
	for k, v := range base.byName {
		out.byName[k] = v
	}
	for _, p := range f.Profiles {
		if p.Name == "" {
			return Profiles{}, fmt.Errorf("parse profiles: profile without name")
		}
		out.byName[p.Name] = p
	}
	if f.Default != "" {
		out.Default = f.Default
	}

	if _, ok := out.byName[out.Default]; !ok {
		return Profiles{}, fmt.Errorf("parse profiles: default profile %q not defined", out.Default)
	}
	for _, p := range out.byName {
		if p.Next == "" {
			continue
		}
		if _, ok := out.byName[p.Next]; !ok {
			return Profiles{}, fmt.Errorf("parse profiles: profile %q: next %q not defined", p.Name, p.Next)
		}
	}
	return out, nil
}
