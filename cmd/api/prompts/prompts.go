// Package prompts holds the versioned instruction policy sent to the generative backend.
//
// The policy lives in policy.yaml so wording changes are reviewed as data, not code.
package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Turn is one transcript line rendered into a prompt.
type Turn struct {
	Role string
	Text string
}

type TranslateData struct {
	Query    string
	Language string
}

type ContextData struct {
	Query             string
	Language          string
	Locale            string
	Transcript        []Turn
	PreviousAssistant string
}

// ContextBlock is the conversation context section of the rewrite prompt.
type ContextBlock struct {
	Summary         string
	KeyTopics       []string
	UserPreferences map[string]string
	RecentMessages  []Turn
}

type RewriteData struct {
	Query           string
	AgentReply      string
	Context         *ContextBlock
	InstitutionName string
	Locale          string
	NoReplySentinel string
}

type policyFile struct {
	Version         string `yaml:"version"`
	NoReplySentinel string `yaml:"no_reply_sentinel"`
	Translate       string `yaml:"translate"`
	Context         string `yaml:"context"`
	Rewrite         string `yaml:"rewrite"`
	ImageAnalysis   string `yaml:"image_analysis"`
	DocumentText    string `yaml:"document_text"`
}

// Policy is a parsed, ready-to-render prompt policy.
type Policy struct {
	Version         string
	NoReplySentinel string
	// ImageAnalysis, DocumentText 는 파일과 함께 보내는 고정 지시문이다.
	ImageAnalysis string
	DocumentText  string

	translate *template.Template
	context   *template.Template
	rewrite   *template.Template
}

// Load parses the embedded policy.
func Load() (*Policy, error) {
	return Parse(defaultPolicy)
}

// MustLoad is Load for process start-up.
func MustLoad() *Policy {
	p, err := Load()
	if err != nil {
		panic(err)
	}
	return p
}

// Parse parses a policy document.
func Parse(data []byte) (*Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("prompt policy: %w", err)
	}
	if f.Version == "" {
		return nil, errors.New("prompt policy: version is required")
	}
	if f.NoReplySentinel == "" {
		return nil, errors.New("prompt policy: no_reply_sentinel is required")
	}

	if strings.TrimSpace(f.ImageAnalysis) == "" || strings.TrimSpace(f.DocumentText) == "" {
		return nil, errors.New("prompt policy: image_analysis and document_text are required")
	}

	funcs := template.FuncMap{"join": strings.Join}
	p := &Policy{
		Version:         f.Version,
		NoReplySentinel: f.NoReplySentinel,
		ImageAnalysis:   strings.TrimSpace(f.ImageAnalysis),
		DocumentText:    strings.TrimSpace(f.DocumentText),
	}
	var err error
	if p.translate, err = parseTemplate("translate", f.Translate, funcs); err != nil {
		return nil, err
	}
	if p.context, err = parseTemplate("context", f.Context, funcs); err != nil {
		return nil, err
	}
	if p.rewrite, err = parseTemplate("rewrite", f.Rewrite, funcs); err != nil {
		return nil, err
	}
	return p, nil
}

func parseTemplate(name, body string, funcs template.FuncMap) (*template.Template, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("prompt policy: %s template is empty", name)
	}
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("prompt policy: %s: %w", name, err)
	}
	return t, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (p *Policy) RenderTranslate(d TranslateData) (string, error) { return render(p.translate, d) }

func (p *Policy) RenderContext(d ContextData) (string, error) { return render(p.context, d) }

// RenderRewrite substitutes the no-reply sentinel for an empty agent reply.
func (p *Policy) RenderRewrite(d RewriteData) (string, error) {
	if strings.TrimSpace(d.AgentReply) == "" {
		d.AgentReply = p.NoReplySentinel
	}
	d.NoReplySentinel = p.NoReplySentinel
	return render(p.rewrite, d)
}
