// Package classics отдает детские пересказы известных сказок из общественного достояния.
package classics

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"starlit-server/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Tale - одна сказка каталога.
type Tale struct {
	Title      string   `yaml:"title"`
	Aliases    []string `yaml:"aliases"`
	Provenance string   `yaml:"provenance"`
	Moral      string   `yaml:"moral"`
	Themes     []string `yaml:"themes"`
	Story      string   `yaml:"story"`
}

// ToStory переводит сказку в живую историю треда.
func (t Tale) ToStory() models.Story {
	return models.Story{
		Title:  t.Title,
		Body:   strings.TrimSpace(t.Story),
		Moral:  strings.TrimSpace(t.Moral),
		Themes: append([]string(nil), t.Themes...),
	}
}

type aliasPattern struct {
	alias string
	title string
	re    *regexp.Regexp
}

// Catalog - неизменяемый после загрузки набор сказок.
type Catalog struct {
	tales    map[string]Tale
	patterns []aliasPattern
}

// DefaultCatalog загружает встроенный каталог.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalog)
}

// LoadCatalog разбирает YAML-список сказок.
func LoadCatalog(data []byte) (*Catalog, error) {
	var tales []Tale
	if err := yaml.Unmarshal(data, &tales); err != nil {
		return nil, fmt.Errorf("failed to parse classics catalog: %w", err)
	}

	c := &Catalog{tales: make(map[string]Tale, len(tales))}
	for i, t := range tales {
		if strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Story) == "" {
			return nil, fmt.Errorf("classics catalog entry %d: title and story are required", i)
		}
		c.tales[normalize(t.Title)] = t
		for _, alias := range append([]string{t.Title}, t.Aliases...) {
			alias = normalize(alias)
			if alias == "" {
				continue
			}
			c.patterns = append(c.patterns, aliasPattern{
				alias: alias,
				title: t.Title,
				re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(alias) + `\b`),
			})
		}
	}
	// длинные псевдонимы первыми: "little red riding hood" раньше "red riding hood"
	sort.SliceStable(c.patterns, func(i, j int) bool {
		return len(c.patterns[i].alias) > len(c.patterns[j].alias)
	})
	return c, nil
}

// Match ищет в тексте название или псевдоним сказки и возвращает каноническое название.
func (c *Catalog) Match(input string) (string, bool) {
	text := normalize(input)
	if text == "" {
		return "", false
	}
	for _, p := range c.patterns {
		if p.re.MatchString(text) {
			return p.title, true
		}
	}
	return "", false
}

// Get возвращает сказку по каноническому названию или псевдониму.
func (c *Catalog) Get(name string) (Tale, bool) {
	if t, ok := c.tales[normalize(name)]; ok {
		return t, true
	}
	if title, ok := c.Match(name); ok {
		return c.tales[normalize(title)], true
	}
	return Tale{}, false
}

// Titles возвращает названия всех сказок в алфавитном порядке.
func (c *Catalog) Titles() []string {
	titles := make([]string, 0, len(c.tales))
	for _, t := range c.tales {
		titles = append(titles, t.Title)
	}
	sort.Strings(titles)
	return titles
}

var spaceRegex = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("&", " and ", "'", "", "’", "").Replace(s)
	return spaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}
