// Package environment resolves the facts about the deployment a process runs in: environment
// name, data center, logical environment, index, site and URL prefixes.
//
// The Environment is resolved once at startup by a Resolver reading an entry.Source and is
// immutable afterwards. The Connection derived from it describes the internal tier that the
// environment talks to.
package environment

import (
	"encoding/json"
	"strings"
)

// Environment describes the deployment environment. All names are stored lower-case and both
// URL prefixes upper-case; New enforces this, so accessors never fold case.
type Environment struct {
	local           bool
	name            string
	logicalName     string
	index           string
	dataCenter      string
	site            string
	urlPrefix       string
	urlLegacyPrefix string
}

// Fields are the raw values an Environment is built from.
type Fields struct {
	Local           bool
	Name            string
	LogicalName     string
	Index           string
	DataCenter      string
	Site            string
	URLPrefix       string
	URLLegacyPrefix string
}

// New builds an Environment, normalizing case.
func New(f Fields) *Environment {
	return &Environment{
		local:           f.Local,
		name:            strings.ToLower(f.Name),
		logicalName:     strings.ToLower(f.LogicalName),
		index:           strings.ToLower(f.Index),
		dataCenter:      strings.ToLower(f.DataCenter),
		site:            strings.ToLower(f.Site),
		urlPrefix:       strings.ToUpper(f.URLPrefix),
		urlLegacyPrefix: strings.ToUpper(f.URLLegacyPrefix),
	}
}

// IsLocal reports whether no environment entry could be resolved (developer workstation).
func (e *Environment) IsLocal() bool { return e.local }

// Name is the environment name, e.g. "dev-epe3", "prod", "local".
func (e *Environment) Name() string { return e.name }

// LogicalName is the coarser grouping, e.g. "prod", "dev", "qa".
func (e *Environment) LogicalName() string { return e.logicalName }

// Index discriminates environments sharing a logical name, e.g. "a".
func (e *Environment) Index() string { return e.index }

// DataCenter e.g. "lax1", "ord".
func (e *Environment) DataCenter() string { return e.dataCenter }

// Site is the product the deployment serves.
func (e *Environment) Site() string { return e.site }

// URLPrefix e.g. "DEV-EPE3-"; empty in production.
func (e *Environment) URLPrefix() string { return e.urlPrefix }

// URLLegacyPrefix holds the same value as URLPrefix.
func (e *Environment) URLLegacyPrefix() string { return e.urlLegacyPrefix }

// Fields returns a copy of the values the Environment was built from.
func (e *Environment) Fields() Fields {
	return Fields{
		Local:           e.local,
		Name:            e.name,
		LogicalName:     e.logicalName,
		Index:           e.index,
		DataCenter:      e.dataCenter,
		Site:            e.site,
		URLPrefix:       e.urlPrefix,
		URLLegacyPrefix: e.urlLegacyPrefix,
	}
}

type environmentView struct {
	Local           bool   `json:"local" yaml:"local"`
	Name            string `json:"environment_name" yaml:"environment_name"`
	LegacyName      string `json:"legacy_environment_name" yaml:"legacy_environment_name"`
	LogicalName     string `json:"logical_environment_name" yaml:"logical_environment_name"`
	Index           string `json:"environment_index" yaml:"environment_index"`
	DataCenter      string `json:"data_center" yaml:"data_center"`
	Site            string `json:"site" yaml:"site"`
	URLPrefix       string `json:"url_prefix" yaml:"url_prefix"`
	URLLegacyPrefix string `json:"url_legacy_prefix" yaml:"url_legacy_prefix"`
}

func (e *Environment) view() environmentView {
	return environmentView{
		Local:           e.local,
		Name:            e.name,
		LegacyName:      ToLegacy(e),
		LogicalName:     e.logicalName,
		Index:           e.index,
		DataCenter:      e.dataCenter,
		Site:            e.site,
		URLPrefix:       e.urlPrefix,
		URLLegacyPrefix: e.urlLegacyPrefix,
	}
}

// MarshalJSON implements json.Marshaler.
func (e *Environment) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.view())
}

// MarshalYAML implements yaml.Marshaler.
func (e *Environment) MarshalYAML() (interface{}, error) {
	return e.view(), nil
}
