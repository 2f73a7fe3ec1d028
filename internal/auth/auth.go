package auth

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const serviceName = "transpop"

type account struct {
	keyring string
	envVar  string
}

// Providers that run locally (ollama) need no key and are not listed.
var accounts = map[string]account{
	"gemini": {keyring: "gemini-api-key", envVar: "GEMINI_API_KEY"},
	"openai": {keyring: "openai-api-key", envVar: "OPENAI_API_KEY"},
	"groq":   {keyring: "groq-api-key", envVar: "GROQ_API_KEY"},
}

// Services returns the names of the providers that take an API key.
func Services() []string {
	out := make([]string, 0, len(accounts))
	for name := range accounts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Supports reports whether service stores a key in the keychain.
func Supports(service string) bool {
	_, ok := accounts[strings.ToLower(service)]
	return ok
}

func lookup(service string) (account, error) {
	acc, ok := accounts[strings.ToLower(service)]
	if !ok {
		return account{}, fmt.Errorf("unknown service %q (valid: %s)", service, strings.Join(Services(), ", "))
	}
	return acc, nil
}

// GetKey retrieves the API key for a provider.
// If allowEnv is false, environment variables are ignored.
// The second return value names where the key came from.
func GetKey(service string, allowEnv bool) (string, string) {
	acc, err := lookup(service)
	if err != nil {
		return "", ""
	}

	key, err := keyring.Get(serviceName, acc.keyring)
	if err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), "Keychain"
	}

	if allowEnv {
		if key := strings.TrimSpace(os.Getenv(acc.envVar)); key != "" {
			return key, "Environment Variable"
		}
	}

	return "", ""
}

// SaveKey saves the key for a provider to the OS Keychain.
func SaveKey(service, key string) error {
	acc, err := lookup(service)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty API key for %s", service)
	}
	return keyring.Set(serviceName, acc.keyring, key)
}

// DeleteKey removes the key for a provider from the OS Keychain.
func DeleteKey(service string) error {
	acc, err := lookup(service)
	if err != nil {
		return err
	}
	return keyring.Delete(serviceName, acc.keyring)
}

// GetStatus returns whether a key exists for a provider in the keychain.
func GetStatus(service string) bool {
	acc, err := lookup(service)
	if err != nil {
		return false
	}
	key, err := keyring.Get(serviceName, acc.keyring)
	return err == nil && key != ""
}

// PromptForAPIKey securely prompts the user for their API key.
func PromptForAPIKey(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

// GetEnvKey retrieves the key from environment variables only.
func GetEnvKey(service string) (string, bool) {
	acc, err := lookup(service)
	if err != nil {
		return "", false
	}
	key := strings.TrimSpace(os.Getenv(acc.envVar))
	if key == "" {
		return "", false
	}
	return key, true
}
