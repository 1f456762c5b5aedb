package backend

import (
	"fmt"

	"github.com/nv-h/gmail-debit-client/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.MailBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.MailBackend)
	}

	loc, err := appConfig.Location()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Type: backendType,

		OAuthClientFile: appConfig.OAuthClientFile,
		OAuthClientJSON: appConfig.OAuthClientJSON,
		OAuthTokenFile:  appConfig.OAuthTokenFile,
		OAuthTokenJSON:  appConfig.OAuthTokenJSON,

		MailDirectory: appConfig.MailDir,
		Location:      loc,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case GmailBackend:
		if c.OAuthClientFile == "" && c.OAuthClientJSON == "" {
			return fmt.Errorf("either OAuthClientFile or OAuthClientJSON must be provided for gmail backend")
		}
		if c.OAuthTokenFile == "" && c.OAuthTokenJSON == "" {
			return fmt.Errorf("either OAuthTokenFile or OAuthTokenJSON must be provided for gmail backend")
		}
	case MemoryBackend:
		// MailDirectory defaults to "mail" if empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{GmailBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
