package mailer

import (
	_ "embed"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/feedback-cli/internal/model"
)

//go:embed templates.yaml
var templatesYAML []byte

// ToneDirective holds the authorial guidelines for one email template
// tag. The pipeline feeds these into the drafting prompt.
type ToneDirective struct {
	Tone       string   `yaml:"tone"`
	Directives []string `yaml:"directives"`
}

type templateCatalog struct {
	Templates map[model.EmailTemplate]ToneDirective `yaml:"templates"`
}

var (
	catalogOnce sync.Once
	catalog     templateCatalog
	catalogErr  error
)

func loadCatalog() (templateCatalog, error) {
	catalogOnce.Do(func() {
		catalogErr = yaml.Unmarshal(templatesYAML, &catalog)
		if catalogErr != nil {
			catalogErr = eris.Wrap(catalogErr, "mailer: parse template catalog")
			return
		}
		for _, tag := range model.AllEmailTemplates() {
			if _, ok := catalog.Templates[tag]; !ok {
				catalogErr = eris.Errorf("mailer: template catalog missing %s", tag)
				return
			}
		}
	})
	return catalog, catalogErr
}

// Guidelines returns the tone and content directives for a template tag.
func Guidelines(tag model.EmailTemplate) (ToneDirective, error) {
	c, err := loadCatalog()
	if err != nil {
		return ToneDirective{}, err
	}
	td, ok := c.Templates[tag]
	if !ok {
		return ToneDirective{}, eris.Errorf("mailer: unknown template %s", tag)
	}
	return td, nil
}
