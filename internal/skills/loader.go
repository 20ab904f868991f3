// Package skills loads reusable "skill" definitions — a name,
// description, and body of instructions — from Markdown files with a
// YAML frontmatter header, the same shape the agent's own workspace
// uses for per-agent memory files. Skills are summarized into the
// system prompt (inline, for a handful of them) or left for the
// skill_search tool to page through once there are too many to inline.
package skills

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Skill is one loaded definition.
type Skill struct {
	Name        string
	Description string
	Body        string
	Path        string
}

type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Loader scans one or more directories for `*/SKILL.md` files and
// keeps the parsed results in memory. Safe for concurrent use; Reload
// is typically driven by a Watcher.
type Loader struct {
	mu   sync.RWMutex
	dirs []string

	skills []Skill
}

// NewLoader creates a Loader over workspaceDir/skills, globalDir, and
// extraDir (any of which may be empty, in which case it's skipped),
// and performs an initial scan.
func NewLoader(workspaceDir, globalDir, extraDir string) *Loader {
	var dirs []string
	if workspaceDir != "" {
		dirs = append(dirs, filepath.Join(workspaceDir, "skills"))
	}
	if globalDir != "" {
		dirs = append(dirs, globalDir)
	}
	if extraDir != "" {
		dirs = append(dirs, extraDir)
	}
	l := &Loader{dirs: dirs}
	l.Reload()
	return l
}

// Reload rescans every configured directory, replacing the in-memory
// skill set. Call after a filesystem change; Watcher does this
// automatically.
func (l *Loader) Reload() error {
	var found []Skill
	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name(), "SKILL.md")
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if s, ok := parseSkill(path, data); ok {
				found = append(found, s)
			}
		}
	}

	l.mu.Lock()
	l.skills = found
	l.mu.Unlock()
	return nil
}

func parseSkill(path string, data []byte) (Skill, bool) {
	content := string(data)
	if !strings.HasPrefix(content, "---\n") {
		return Skill{}, false
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return Skill{}, false
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil || fm.Name == "" {
		return Skill{}, false
	}

	body := strings.TrimLeft(rest[end+len("\n---\n"):], "\n")
	return Skill{Name: fm.Name, Description: fm.Description, Body: body, Path: path}, true
}

// FilterSkills returns the loaded skills, restricted to allowList when
// it's non-empty (matched against Skill.Name).
func (l *Loader) FilterSkills(allowList []string) []Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(allowList) == 0 {
		out := make([]Skill, len(l.skills))
		copy(out, l.skills)
		return out
	}

	allow := make(map[string]bool, len(allowList))
	for _, name := range allowList {
		allow[name] = true
	}
	var out []Skill
	for _, s := range l.skills {
		if allow[s.Name] {
			out = append(out, s)
		}
	}
	return out
}

// Get returns the skill with the given name, for skill_search-style
// tools that fetch a single skill's body on demand.
func (l *Loader) Get(name string) (Skill, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.skills {
		if s.Name == name {
			return s, true
		}
	}
	return Skill{}, false
}

// BuildSummary renders an inline `<available_skills>` XML block
// listing name + description for each skill in allowList (or all
// skills, if empty) — small enough to embed directly in the system
// prompt instead of requiring a skill_search round trip.
func (l *Loader) BuildSummary(allowList []string) string {
	filtered := l.FilterSkills(allowList)
	if len(filtered) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<available_skills>\n")
	for _, s := range filtered {
		b.WriteString("  <skill name=\"")
		b.WriteString(s.Name)
		b.WriteString("\">")
		b.WriteString(s.Description)
		b.WriteString("</skill>\n")
	}
	b.WriteString("</available_skills>")
	return b.String()
}
