package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"starlit-server/internal/llm"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Ключи шаблонов
const (
	KeyRouter          = "router"
	KeyGeneratorNew    = "generator_new"
	KeyGeneratorModify = "generator_modify"
	KeyChecker         = "checker"
	KeyMoral           = "moral"
	KeyRetriever       = "retriever"
)

var ErrPromptNotFound = errors.New("prompt template not found")

//go:embed templates.yaml
var defaultTemplates []byte

var placeholderRegex = regexp.MustCompile(`\{\{([A-Z0-9_]+)\}\}`)

// Template - системная и пользовательская части промта.
type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Provider хранит шаблоны в памяти и подставляет плейсхолдеры.
type Provider struct {
	mu        sync.RWMutex
	templates map[string]Template
	logger    *zap.Logger
}

// NewProvider загружает встроенные шаблоны и, если задан overridePath,
// поверх них шаблоны из файла.
func NewProvider(overridePath string, logger *zap.Logger) (*Provider, error) {
	p := &Provider{logger: logger.Named("PromptProvider")}
	if err := p.Load(defaultTemplates); err != nil {
		return nil, fmt.Errorf("failed to load embedded prompts: %w", err)
	}
	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompts file %s: %w", overridePath, err)
		}
		if err := p.Load(data); err != nil {
			return nil, fmt.Errorf("failed to load prompts file %s: %w", overridePath, err)
		}
		p.logger.Info("Prompt overrides loaded", zap.String("path", overridePath))
	}
	return p, nil
}

// Load разбирает YAML и заменяет шаблоны с совпадающими ключами.
func (p *Provider) Load(data []byte) error {
	parsed := make(map[string]Template)
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.templates == nil {
		p.templates = make(map[string]Template, len(parsed))
	}
	for key, tpl := range parsed {
		p.templates[key] = tpl
	}
	p.logger.Debug("Prompt templates loaded", zap.Int("count", len(parsed)))
	return nil
}

// Render возвращает промт с подставленными значениями.
// Неизвестные плейсхолдеры заменяются пустой строкой.
func (p *Provider) Render(key string, vars map[string]string) (llm.Prompt, error) {
	p.mu.RLock()
	tpl, ok := p.templates[key]
	p.mu.RUnlock()
	if !ok {
		return llm.Prompt{}, fmt.Errorf("%w: key='%s'", ErrPromptNotFound, key)
	}
	return llm.Prompt{
		System: strings.TrimSpace(substitute(tpl.System, vars)),
		User:   strings.TrimSpace(substitute(tpl.User, vars)),
	}, nil
}

func substitute(s string, vars map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholderRegex.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

// Renderer - то, что нужно этапам конвейера от провайдера промтов.
type Renderer interface {
	Render(key string, vars map[string]string) (llm.Prompt, error)
}

var _ Renderer = (*Provider)(nil)
