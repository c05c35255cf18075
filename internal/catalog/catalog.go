// Package catalog loads the challenge, notification template and
// achievement definitions that are seeded into the store at startup.
package catalog

import (
	_ "embed"
	"fmt"
	"log"
	"os"

	"poopyPalsAPI/internal/achievement"
	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/types/challenge"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

//go:embed seed.toml
var defaultSeed []byte

var namespace = uuid.MustParse("5f1d7f0e-3c59-4a8e-9d61-2b7a0c4e8f13")

type ChallengeDef struct {
	Key         string                  `toml:"key"`
	Title       string                  `toml:"title"`
	Description string                  `toml:"description"`
	Reward      int                     `toml:"reward"`
	Type        challenge.ChallengeType `toml:"type"`
	Active      bool                    `toml:"active"`
	Condition   challenge.Condition     `toml:"condition"`
}

type AchievementDef struct {
	Key           string                   `toml:"key"`
	Name          string                   `toml:"name"`
	Description   string                   `toml:"description"`
	Icon          string                   `toml:"icon"`
	CriteriaType  achievement.CriteriaType `toml:"criteria_type"`
	CriteriaValue int                      `toml:"criteria_value"`
}

type Catalog struct {
	Challenges   []ChallengeDef          `toml:"challenge"`
	Templates    []notification.Template `toml:"template"`
	Achievements []AchievementDef        `toml:"achievement"`
}

// Load reads the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultSeed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Default() *Catalog {
	c, err := Parse(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.Printf("catalog: ignoring unknown keys %v", undecoded)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := map[string]bool{}
	for _, ch := range c.Challenges {
		if ch.Key == "" || seen["challenge:"+ch.Key] {
			return fmt.Errorf("challenge key %q is empty or duplicated", ch.Key)
		}
		seen["challenge:"+ch.Key] = true
		if ch.Condition.Target <= 0 {
			return fmt.Errorf("challenge %s: target must be positive", ch.Key)
		}
	}
	for _, t := range c.Templates {
		if t.ID == "" || seen["template:"+t.ID] {
			return fmt.Errorf("template id %q is empty or duplicated", t.ID)
		}
		seen["template:"+t.ID] = true
		if !t.Type.Valid() {
			return fmt.Errorf("template %s: unknown type %q", t.ID, t.Type)
		}
	}
	for _, a := range c.Achievements {
		if a.Key == "" || seen["achievement:"+a.Key] {
			return fmt.Errorf("achievement key %q is empty or duplicated", a.Key)
		}
		seen["achievement:"+a.Key] = true
	}
	return nil
}

func ChallengeID(key string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("challenge:"+key))
}

func AchievementID(key string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("achievement:"+key))
}

func (c *Catalog) ChallengeModels() []*challenge.Challenge {
	out := make([]*challenge.Challenge, 0, len(c.Challenges))
	for _, def := range c.Challenges {
		out = append(out, &challenge.Challenge{
			ID:          ChallengeID(def.Key),
			Key:         def.Key,
			Title:       def.Title,
			Description: def.Description,
			Reward:      def.Reward,
			Type:        def.Type,
			Condition:   def.Condition,
			IsActive:    def.Active,
		})
	}
	return out
}

func (c *Catalog) TemplateModels() []*notification.Template {
	out := make([]*notification.Template, 0, len(c.Templates))
	for i := range c.Templates {
		t := c.Templates[i]
		out = append(out, &t)
	}
	return out
}

func (c *Catalog) AchievementModels() []*achievement.Achievement {
	out := make([]*achievement.Achievement, 0, len(c.Achievements))
	for _, def := range c.Achievements {
		out = append(out, &achievement.Achievement{
			ID:            AchievementID(def.Key),
			Key:           def.Key,
			Name:          def.Name,
			Description:   def.Description,
			Icon:          def.Icon,
			CriteriaType:  def.CriteriaType,
			CriteriaValue: def.CriteriaValue,
		})
	}
	return out
}
