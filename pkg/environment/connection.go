package environment

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultInternalName is the shared internal tier reached from every environment that has no
// internal tier of its own.
const DefaultInternalName = "pi"

// internalTiers are the environments that address an internal tier of the same name.
var internalTiers = []string{"di", "ti"}

// Connection describes the internal environment reached from an Environment.
type Connection struct {
	internalName       string
	internalDataCenter string
}

// NewConnection derives the Connection for env.
func NewConnection(env *Environment) *Connection {
	internalName := DefaultInternalName
	for _, tier := range internalTiers {
		if strings.EqualFold(env.Name(), tier) {
			internalName = tier
			break
		}
	}

	log.Debug().
		Str("environment", env.Name()).
		Str("internal_environment", internalName).
		Msg("Resolved internal connection")

	return &Connection{
		internalName:       internalName,
		internalDataCenter: env.DataCenter(),
	}
}

// DefaultConnection is the connection used before any environment is known.
func DefaultConnection() *Connection {
	return &Connection{
		internalName:       DefaultInternalName,
		internalDataCenter: DefaultDataCenter,
	}
}

// InternalName e.g. "pi", "di".
func (c *Connection) InternalName() string { return c.internalName }

// InternalDataCenter is the data center of the owning Environment.
func (c *Connection) InternalDataCenter() string { return c.internalDataCenter }

func (c *Connection) view() map[string]string {
	return map[string]string{
		"internal_environment_name": c.internalName,
		"internal_data_center":      c.internalDataCenter,
	}
}

// MarshalJSON implements json.Marshaler.
func (c *Connection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.view())
}

// MarshalYAML implements yaml.Marshaler.
func (c *Connection) MarshalYAML() (interface{}, error) {
	return c.view(), nil
}
