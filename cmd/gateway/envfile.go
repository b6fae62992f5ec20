package main

import (
	"bufio"
	"errors"
	"os"
	"strings"
)

const envFileName = ".env"

// loadEnvFile applies KEY=VALUE pairs from ./.env to the process environment.
// Already-set variables win over file values so real env always takes
// precedence.
func loadEnvFile() (string, int, error) {
	file, err := os.Open(envFileName)
	if errors.Is(err, os.ErrNotExist) {
		return envFileName, 0, nil
	}
	if err != nil {
		return envFileName, 0, err
	}
	defer file.Close()

	loaded := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if setErr := os.Setenv(key, value); setErr != nil {
			return envFileName, loaded, setErr
		}
		loaded++
	}
	return envFileName, loaded, scanner.Err()
}

func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return key, value, true
}
