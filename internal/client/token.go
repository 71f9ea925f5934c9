package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
)

// copilotConfigDir determines the configuration directory holding the
// github-copilot credentials.
func copilotConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && isValidDir(xdg) {
		return xdg, nil
	}

	if runtime.GOOS == "windows" {
		if path := tryWindowsPaths(); path != "" {
			return path, nil
		}
	}

	usr, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}

	configDir := filepath.Join(usr.HomeDir, ".config")
	if isValidDir(configDir) {
		return configDir, nil
	}

	return "", errors.New("no valid config path found")
}

// isValidDir checks if a given path is a valid directory.
func isValidDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// tryWindowsPaths attempts to find the appropriate configuration path on Windows.
func tryWindowsPaths() string {
	if path := os.Getenv("LOCALAPPDATA"); isValidDir(path) {
		return path
	}

	if home := os.Getenv("HOME"); home != "" {
		if path := filepath.Join(home, "AppData", "Local"); isValidDir(path) {
			return path
		}
	}

	return ""
}

// getGitHubToken retrieves the GitHub token from the environment or the
// github-copilot credential files.
func getGitHubToken() (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" && os.Getenv("CODESPACES") != "" {
		return token, nil
	}

	configDir, err := copilotConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}

	if token := findGitHubToken(filepath.Join(configDir, "github-copilot")); token != "" {
		return token, nil
	}
	return "", errors.New("GitHub token not found in environment or config files")
}

// findGitHubToken looks through hosts.json and apps.json in dir.
func findGitHubToken(dir string) string {
	for _, name := range []string{"hosts.json", "apps.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}

		var hosts map[string]any
		if err := json.Unmarshal(data, &hosts); err != nil {
			continue
		}

		if token := extractGitHubToken(hosts); token != "" {
			return token
		}
	}
	return ""
}

// extractGitHubToken returns the first oauth_token stored for a github.com host.
func extractGitHubToken(hosts map[string]any) string {
	for host, data := range hosts {
		if !strings.Contains(host, "github.com") {
			continue
		}

		tokenData, ok := data.(map[string]any)
		if !ok {
			continue
		}

		if token, ok := tokenData["oauth_token"].(string); ok && token != "" {
			return token
		}
	}
	return ""
}
