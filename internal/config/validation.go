package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) addError(path, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationResult) addWarning(path, format string, args ...any) {
	v.Warnings = append(v.Warnings, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

var bashStyleRegex = regexp.MustCompile(`\$\{?[A-Z_][A-Z0-9_]*\}?`)

// ValidateFile validates a config file structure without requiring env vars
func ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.addError("", "invalid JSON: %v", err)
		return result, nil
	}

	checkBashStyleSyntax(rawConfig, "", result)

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.addError("version", "version field is required. Hint: Add \"version\": \"%s\"", SupportedVersionPrefix)
	} else if !strings.HasPrefix(version, SupportedVersionPrefix) {
		result.addError("version", "unsupported version '%s' - use '%s'", version, SupportedVersionPrefix)
	}

	validateGoogleStructure(rawConfig, result)
	validateServerStructure(rawConfig, result)

	for key := range rawConfig {
		switch key {
		case "version", "server", "google":
		default:
			result.addWarning(key, "unknown top-level field '%s' is ignored", key)
		}
	}

	return result, nil
}

// validateGoogleStructure checks the OAuth client section
func validateGoogleStructure(rawConfig map[string]any, result *ValidationResult) {
	google, ok := rawConfig["google"].(map[string]any)
	if !ok {
		result.addError("google", "google field is required and must be an object")
		return
	}

	for _, name := range []string{"clientId", "redirectUri"} {
		value, exists := google[name]
		if !exists {
			result.addError("google."+name, "%s is required", name)
			continue
		}
		if err := validateValueOrReference(value, "google."+name); err != nil {
			result.Errors = append(result.Errors, *err)
		}
	}

	secret, exists := google["clientSecret"]
	if !exists {
		result.addError("google.clientSecret", "clientSecret is required. Hint: {\"$env\": \"GOOGLE_CLIENT_SECRET\"}")
	} else if err := validateEnvReference(secret, "google.clientSecret"); err != nil {
		result.Errors = append(result.Errors, *err)
	}

	if redirect, ok := google["redirectUri"].(string); ok {
		u, err := url.Parse(redirect)
		if err != nil || u.Scheme == "" || u.Host == "" {
			result.addError("google.redirectUri", "redirectUri must be an absolute URL")
		} else if u.Path != "/auth/callback" {
			result.addWarning("google.redirectUri", "redirectUri path is '%s' but the callback is served at /auth/callback", u.Path)
		}
	}

	if scopes, exists := google["scopes"]; exists {
		list, ok := scopes.([]any)
		if !ok || len(list) == 0 {
			result.addError("google.scopes", "scopes must be a non-empty array of strings")
		} else {
			for i, s := range list {
				if str, ok := s.(string); !ok || str == "" {
					result.addError(fmt.Sprintf("google.scopes[%d]", i), "scope must be a non-empty string")
				}
			}
		}
	}
}

// validateServerStructure checks the optional server section
func validateServerStructure(rawConfig map[string]any, result *ValidationResult) {
	raw, exists := rawConfig["server"]
	if !exists {
		return
	}
	server, ok := raw.(map[string]any)
	if !ok {
		result.addError("server", "server must be an object")
		return
	}

	if timeout, exists := server["exchangeTimeout"]; exists {
		str, ok := timeout.(string)
		if !ok {
			result.addError("server.exchangeTimeout", "exchangeTimeout must be a duration string such as \"10s\"")
		} else if d, err := time.ParseDuration(str); err != nil {
			result.addError("server.exchangeTimeout", "invalid duration '%s': %v", str, err)
		} else if d > time.Minute {
			result.addWarning("server.exchangeTimeout", "exchangeTimeout of %s keeps the browser waiting; the provider usually answers within seconds", str)
		}
	}

	if secret, exists := server["stateSecret"]; exists {
		if err := validateEnvReference(secret, "server.stateSecret"); err != nil {
			result.Errors = append(result.Errors, *err)
		}
	}
}

// validateValueOrReference accepts a plain string or an env reference
func validateValueOrReference(value any, path string) *ValidationError {
	if _, ok := value.(string); ok {
		return nil
	}
	return validateEnvReference(value, path)
}

// validateEnvReference requires an {"$env": "VAR"} object
func validateEnvReference(value any, path string) *ValidationError {
	ref, ok := value.(map[string]any)
	if !ok {
		return &ValidationError{
			Path:    path,
			Message: "must use environment variable reference {\"$env\": \"VAR_NAME\"} for security",
		}
	}
	name, ok := ref["$env"].(string)
	if !ok || name == "" {
		return &ValidationError{
			Path:    path,
			Message: "must use {\"$env\": \"VAR_NAME\"} format",
		}
	}
	return nil
}

// checkBashStyleSyntax warns about $VAR strings that will not be expanded
func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	switch v := value.(type) {
	case string:
		for _, match := range bashStyleRegex.FindAllString(v, -1) {
			varName := strings.Trim(match, "${}")
			result.addWarning(path, "found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", match, varName)
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; hasEnv {
			return
		}
		for key, val := range v {
			newPath := key
			if path != "" {
				newPath = path + "." + key
			}
			checkBashStyleSyntax(val, newPath, result)
		}
	case []any:
		for i, item := range v {
			checkBashStyleSyntax(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}
