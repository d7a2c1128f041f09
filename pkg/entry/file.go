package entry

import (
	"context"
	"os"
	"strings"

	"github.com/magiconair/properties"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultPropertiesFile is where hosts without DNS entries publish their environment.
const DefaultPropertiesFile = "/deployments/edmunds/properties/common/configuration-dns.properties"

// FileConfig holds configuration for the properties file source
type FileConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate checks if the FileConfig has all required fields set
func (f FileConfig) Validate() error {
	if f.path() == "" {
		return errors.New("properties file path is required")
	}
	return nil
}

// CreateClient loads the properties file and returns a FileSource over it.
func (f FileConfig) CreateClient() (*FileSource, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return NewFileSource(f.path())
}

func (f FileConfig) path() string {
	if f.Path == "" {
		return DefaultPropertiesFile
	}
	return f.Path
}

// PropertiesFileExists reports whether a regular file exists at path.
func PropertiesFileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// FileSource reads entries from a Java-style properties file. Keys in the file are entry names
// without their domain:
//
//	environment-name=dev-epe3
//	url-prefix=dev-epe3
//
// The file is read once when the source is created.
type FileSource struct {
	path  string
	props *properties.Properties
}

// NewFileSource loads the properties file at path
func NewFileSource(path string) (*FileSource, error) {
	props, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read environment properties file %q", path)
	}
	// Values such as "${url-prefix}" are kept literally.
	props.DisableExpansion = true

	log.Debug().Str("file", path).Int("entries", props.Len()).Msg("Loaded environment properties file")
	return &FileSource{path: path, props: props}, nil
}

// Entry returns the property named after the entry's short name
func (f *FileSource) Entry(_ context.Context, name string) (string, error) {
	key := ShortName(name)
	value, ok := f.props.Get(key)
	if !ok || strings.TrimSpace(value) == "" {
		log.Warn().Str("property", key).Msg("No property found for environment attribute")
		if ok {
			return value, nil
		}
		return "", notFound(name)
	}

	log.Debug().Str("property", key).Str("value", value).Msg("Found property")
	return value, nil
}

// Name returns the source name
func (f *FileSource) Name() string {
	return "File"
}
