package config

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Property is a value with a variant for local workstations and one for managed environments.
// A plain string in the configuration is used for both.
//
//	properties:
//	  api.url:
//	    local: http://localhost:8080
//	    managed: https://[URL_PREFIX]api.example.com
//	  cache.host: cache-[LOCAL_ENVIRONMENT_DATA_CENTER].example.com
type Property struct {
	Local   *string `yaml:"local,omitempty"`
	Managed *string `yaml:"managed,omitempty"`
}

// UnmarshalYAML accepts a scalar or a local/managed mapping.
func (p *Property) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		local, managed := s, s
		p.Local, p.Managed = &local, &managed
		return nil
	case yaml.MappingNode:
		type plain Property
		return value.Decode((*plain)(p))
	}
	return errors.Errorf("line %d: property must be a string or a local/managed mapping", value.Line)
}

// Properties is the "properties" section.
type Properties map[string]Property

func (p Properties) Validate() error {
	for name, prop := range p {
		if prop.Local == nil && prop.Managed == nil {
			return errors.Errorf("property %q has neither a local nor a managed value", name)
		}
	}
	return nil
}

// Selector picks and substitutes one side of a Property.
type Selector interface {
	SelectAndSubstitute(local, managed *string) (string, bool)
}

// Resolve substitutes every property through s. Properties without a value for the current
// environment are left out.
func (p Properties) Resolve(s Selector) map[string]string {
	resolved := make(map[string]string, len(p))
	for _, name := range p.Names() {
		prop := p[name]
		value, ok := s.SelectAndSubstitute(prop.Local, prop.Managed)
		if !ok {
			log.Warn().Str("property", name).Msg("Property has no value for this environment")
			continue
		}
		resolved[name] = value
	}
	return resolved
}

// Names lists the property names in sorted order.
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
