package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads envName using the *_FILE convention: when
// envName+"_FILE" is set the secret is read from that path (trimmed),
// otherwise the plain variable is used. Neither set yields "".
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// Credential is a user/password pair resolved from the environment.
type Credential struct {
	User     string
	Password string
}

// Complete reports whether both halves are set.
func (c Credential) Complete() bool {
	return c.User != "" && c.Password != ""
}

// ResolveCredential resolves a user/password pair, each half through
// ResolveSecret. A half-configured pair is an error so a typo in one
// variable does not silently disable authentication.
func ResolveCredential(userEnv, passEnv string) (Credential, error) {
	user, err := ResolveSecret(userEnv)
	if err != nil {
		return Credential{}, err
	}
	pass, err := ResolveSecret(passEnv)
	if err != nil {
		return Credential{}, err
	}
	if (user == "") != (pass == "") {
		return Credential{}, fmt.Errorf("%s and %s must be set together", userEnv, passEnv)
	}
	return Credential{User: user, Password: pass}, nil
}
