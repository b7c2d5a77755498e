package client

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoAccessKey is returned when no access key is configured for a server.
var ErrNoAccessKey = errors.New("no access key found")

var accessKeyEnvVars = []string{"DEVELOCITY_ACCESS_KEY", "GRADLE_ENTERPRISE_ACCESS_KEY"}

// LookupAccessKey finds the access key for the host of serverURL. It checks,
// in order:
//
//   - DEVELOCITY_ACCESS_KEY, then GRADLE_ENTERPRISE_ACCESS_KEY, formatted as
//     "host=key" or "host1,host2=key1;host3=key2"
//   - $GRADLE_USER_HOME/develocity/keys.properties (default ~/.gradle)
//   - ~/.m2/.develocity/keys.properties
//   - the legacy gradle-enterprise locations of both files
func LookupAccessKey(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parsing server URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("server URL %q has no host", serverURL)
	}

	for _, name := range accessKeyEnvVars {
		keys, err := parseAccessKeyEnv(name, os.Getenv(name))
		if err != nil {
			return "", err
		}
		if key, ok := keys[host]; ok {
			return key, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	gradleHome := os.Getenv("GRADLE_USER_HOME")
	if gradleHome == "" {
		gradleHome = filepath.Join(home, ".gradle")
	}
	for _, path := range []string{
		filepath.Join(gradleHome, "develocity", "keys.properties"),
		filepath.Join(home, ".m2", ".develocity", "keys.properties"),
		filepath.Join(gradleHome, "enterprise", "keys.properties"),
		filepath.Join(home, ".m2", ".gradle-enterprise", "keys.properties"),
	} {
		keys, err := readProperties(path)
		if err != nil {
			return "", err
		}
		if key, ok := keys[host]; ok {
			return key, nil
		}
	}

	return "", fmt.Errorf("%w for server %s", ErrNoAccessKey, host)
}

func parseAccessKeyEnv(name, value string) (map[string]string, error) {
	keys := make(map[string]string)
	if value == "" {
		return keys, nil
	}
	malformed := fmt.Errorf("environment variable %s is malformed, expected 'server-host=access-key' or 'server-host1=access-key1;server-host2=access-key2'", name)
	for _, entry := range strings.Split(value, ";") {
		servers, key, ok := strings.Cut(entry, "=")
		servers, key = strings.TrimSpace(servers), strings.TrimSpace(key)
		if !ok || servers == "" || key == "" {
			return nil, malformed
		}
		for _, server := range strings.Split(servers, ",") {
			server = strings.TrimSpace(server)
			if server == "" {
				return nil, malformed
			}
			keys[server] = key
		}
	}
	return keys, nil
}

// readProperties reads the key=value pairs of a Java-style properties file.
// A missing file yields an empty map.
func readProperties(path string) (map[string]string, error) {
	props := make(map[string]string)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return props, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			continue
		}
		props[strings.TrimSpace(line[:sep])] = strings.TrimSpace(line[sep+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return props, nil
}
