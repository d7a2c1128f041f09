package environment

import "strings"

const (
	legacyProductionName = "lax1-prod"
	productionName       = "prod"
)

// ToCurrent converts a legacy environment name ("DEV-EPE3", "LAX1-PROD") to the current
// naming ("dev-epe3", "prod"). Blank input yields "".
//
// Only the literal "lax1-prod" maps to "prod"; other data-center qualified names are just
// lower-cased.
func ToCurrent(legacy string) string {
	if strings.TrimSpace(legacy) == "" {
		return ""
	}

	name := strings.ToLower(legacy)
	if name == legacyProductionName {
		return productionName
	}
	return name
}

// ToLegacy returns the legacy name of env: the upper-cased environment name, qualified with
// the data center in production ("ORD-PROD"). A nil Environment or blank name yields "".
//
// This is not the inverse of ToCurrent outside lax1: ToCurrent("ORD-PROD") is "ord-prod".
func ToLegacy(env *Environment) string {
	if env == nil || strings.TrimSpace(env.name) == "" {
		return ""
	}

	name := strings.ToLower(env.name)
	if name == productionName {
		dataCenter := env.dataCenter
		if strings.TrimSpace(dataCenter) == "" {
			dataCenter = DefaultDataCenter
		}
		name = dataCenter + "-" + name
	}
	return strings.ToUpper(name)
}
