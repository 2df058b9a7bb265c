package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// secretsDir - стандартный путь Docker Secrets. Переопределяется в тестах.
var secretsDir = "/run/secrets"

// ReadSecret читает секрет из файла в стандартном пути Docker Secrets.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", secretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// readOptionalSecret сначала смотрит в файл секрета, затем в переменную окружения.
func readOptionalSecret(secretName, envName string) string {
	secret, err := ReadSecret(secretName)
	if err == nil {
		log.Printf("Secret '%s' loaded from file.", secretName)
		return secret
	}
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		return v
	}
	log.Printf("Optional secret '%s' not found: %v", secretName, err)
	return ""
}
