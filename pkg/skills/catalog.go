// Package skills holds the allow-list of skills the gateway will load
// into an upstream container, with the metadata served by GET /skills.
package skills

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// LatestVersion pins a skill reference to its newest published version.
const LatestVersion = "latest"

// Skill is one allow-listed skill.
type Skill struct {
	ID          string
	Type        api.SkillType
	Name        string
	Description string
}

// Slug returns the lowercased, dash-joined name used by /invoke/{skill_name}.
func (s Skill) Slug() string {
	return strings.ReplaceAll(strings.ToLower(s.Name), " ", "-")
}

// Builtin returns the skills every deployment allows.
func Builtin() []Skill {
	return []Skill{
		{ID: "pdf", Type: api.SkillTypeAnthropic, Name: "PDF Processing",
			Description: "Extract, create, merge, and manipulate PDF documents"},
		{ID: "xlsx", Type: api.SkillTypeAnthropic, Name: "Excel Processing",
			Description: "Create and analyze Excel spreadsheets"},
		{ID: "pptx", Type: api.SkillTypeAnthropic, Name: "PowerPoint Processing",
			Description: "Create and modify PowerPoint presentations"},
		{ID: "docx", Type: api.SkillTypeAnthropic, Name: "Word Processing",
			Description: "Create and edit Word documents"},
		{ID: "skill_014ko5Yg5TtsnS9mYBt5PtR2", Type: api.SkillTypeCustom, Name: "Customer Segmentation",
			Description: "Advanced customer segmentation analysis using Targeting™ model"},
		{ID: "skill_015FtmDcs3NUKhwqTgukAyWc", Type: api.SkillTypeCustom, Name: "Homestay Market Entry",
			Description: "Data-driven homestay investment decision support and market research"},
	}
}

// Catalog is an ordered, read-mostly set of skills. It is safe for
// concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Skill
}

// NewCatalog builds a catalog from the given skills. Later entries with
// the same ID replace earlier ones but keep the original position.
func NewCatalog(skills ...Skill) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Skill, len(skills))}
	for _, s := range skills {
		if err := c.Add(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Default returns a catalog holding the built-in skills.
func Default() *Catalog {
	c, _ := NewCatalog(Builtin()...)
	return c
}

// Add registers a skill.
func (c *Catalog) Add(s Skill) error {
	if s.ID == "" {
		return fmt.Errorf("skills: skill ID is required")
	}
	if s.Type != api.SkillTypeAnthropic && s.Type != api.SkillTypeCustom {
		return fmt.Errorf("skills: skill %q has invalid type %q", s.ID, s.Type)
	}
	if s.Name == "" {
		s.Name = s.ID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byID[s.ID]; !exists {
		c.order = append(c.order, s.ID)
	}
	c.byID[s.ID] = s
	return nil
}

// Lookup returns the skill with the given ID.
func (c *Catalog) Lookup(id string) (Skill, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	return s, ok
}

// Resolve finds a skill by ID or by its slugified name (case-insensitive).
func (c *Catalog) Resolve(name string) (Skill, bool) {
	if s, ok := c.Lookup(name); ok {
		return s, true
	}
	want := strings.ToLower(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.order {
		if s := c.byID[id]; s.Slug() == want {
			return s, true
		}
	}
	return Skill{}, false
}

// Unknown returns the IDs in ids that are not in the catalog, in input order.
func (c *Catalog) Unknown(ids []string) []string {
	var unknown []string
	for _, id := range ids {
		if _, ok := c.Lookup(id); !ok {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

// Validate returns an invalid_request error naming every unknown ID.
func (c *Catalog) Validate(ids []string) *api.APIError {
	unknown := c.Unknown(ids)
	if len(unknown) == 0 {
		return nil
	}
	quoted := make([]string, len(unknown))
	for i, id := range unknown {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return api.NewInvalidRequestError("skill_ids",
		fmt.Sprintf("Invalid skill IDs: [%s]", strings.Join(quoted, ", ")))
}

// Specs returns container skill references for ids, all pinned to the
// latest version. Unknown IDs are skipped.
func (c *Catalog) Specs(ids []string) []api.SkillSpec {
	specs := make([]api.SkillSpec, 0, len(ids))
	for _, id := range ids {
		s, ok := c.Lookup(id)
		if !ok {
			continue
		}
		specs = append(specs, api.SkillSpec{Type: s.Type, SkillID: s.ID, Version: LatestVersion})
	}
	return specs
}

// List returns all skills in registration order.
func (c *Catalog) List() []Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Skill, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Response builds the GET /skills body.
func (c *Catalog) Response() api.SkillListResponse {
	list := c.List()
	resp := api.SkillListResponse{Total: len(list), Skills: make(map[string]api.SkillInfo, len(list))}
	for _, s := range list {
		resp.Skills[s.ID] = api.SkillInfo{Type: s.Type, Name: s.Name, Description: s.Description}
	}
	return resp
}

// IDs returns the sorted skill IDs.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := slices.Clone(c.order)
	slices.Sort(ids)
	return ids
}
