package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileResolverConfig is the file_resolver section. Dir holds the credentials the entry backends
// need before anything else can be read, usually a mounted Kubernetes or Docker secret:
//
//	file_resolver:
//	  dir: /var/run/secrets/envtoken
//	vault:
//	  address: https://vault:8200
//	  token: ${file:vault_token}
//	  path: secret/data/environment
//
// The section is read before the backend sections, so any of them may refer to ${file:...}.
type FileResolverConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// Validate requires an absolute directory
func (f FileResolverConfig) Validate() error {
	if strings.TrimSpace(f.Dir) == "" {
		return errors.New("file_resolver dir is required")
	}
	if !filepath.IsAbs(f.Dir) {
		return errors.Errorf("file_resolver dir %q must be absolute", f.Dir)
	}
	return nil
}

// CreateClient creates the FileResolver for the section.
func (f FileResolverConfig) CreateClient() (*FileResolver, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &FileResolver{dir: filepath.Clean(f.Dir)}, nil
}

// FileResolver resolves ${file:name} to the trimmed contents of <dir>/name. Names are plain
// file names: separators and ".." are rejected so a configuration value cannot read outside dir.
type FileResolver struct {
	dir string
}

func (f *FileResolver) Resolve(key string) (string, error) {
	name := strings.TrimSpace(key)
	if name == "" {
		return "", errors.New("file name is empty")
	}
	if name == ".." || name == "." || strings.ContainsAny(name, `/\`) {
		return "", errors.Errorf("file name %q must not contain a path", name)
	}

	path := filepath.Join(f.dir, name)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read credential file %q", path)
	}

	value := strings.TrimSpace(string(content))
	if value == "" {
		log.Warn().Str("file", path).Msg("Credential file is empty")
	}
	log.Debug().Str("file", path).Msg("Resolved value from file")
	return value, nil
}

func (f *FileResolver) Name() string {
	return "File"
}
