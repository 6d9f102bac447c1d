package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/asad/azurefs/internal/filesystem"
)

// Driver names understood by the bundled registry.
const (
	DriverAzure      = "azure"
	DriverAzureLocal = "azure-local"
)

// AuthMethod selects how the azure driver authenticates against the
// storage account.
type AuthMethod string

const (
	AuthEntraID           AuthMethod = "entra_id"
	AuthSharedKey         AuthMethod = "shared_key"
	AuthConnectionString  AuthMethod = "connection_string"
	AuthDefaultCredential AuthMethod = "default_credential"
	AuthAnonymous         AuthMethod = "anonymous"
)

var authMethods = []AuthMethod{
	AuthEntraID,
	AuthSharedKey,
	AuthConnectionString,
	AuthDefaultCredential,
	AuthAnonymous,
}

// ParseAuthMethod maps the authentication option to an AuthMethod. The
// empty string selects Microsoft Entra ID.
func ParseAuthMethod(s string) (AuthMethod, error) {
	if s == "" {
		return AuthEntraID, nil
	}
	for _, m := range authMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", filesystem.InvalidConfiguration(
		fmt.Sprintf("unknown authentication provider %q (expected one of %s)", s, joinMethods()), nil)
}

func joinMethods() string {
	names := make([]string, len(authMethods))
	for i, m := range authMethods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// DisksFile is the root of the YAML disks file.
type DisksFile struct {
	Default string                `yaml:"default,omitempty"`
	Disks   map[string]DiskConfig `yaml:"disks"`
}

// DiskConfig describes one named disk.
type DiskConfig struct {
	Name   string `yaml:"-"`
	Driver string `yaml:"driver"`

	Account          string `yaml:"account,omitempty"`
	Directory        string `yaml:"directory,omitempty"`
	Application      string `yaml:"application,omitempty"`
	Secret           string `yaml:"secret,omitempty"`
	Key              string `yaml:"key,omitempty"`
	ConnectionString string `yaml:"connection_string,omitempty"`

	Container string `yaml:"container"`

	// Root and PublicAccess only apply to azure-local disks.
	Root         string `yaml:"root,omitempty"`
	PublicAccess string `yaml:"public_access,omitempty"`

	Options DiskOptions `yaml:"options,omitempty"`
}

type DiskOptions struct {
	Authentication string `yaml:"authentication,omitempty"`
	// URL overrides the blob endpoint domain, e.g. an Azurite address.
	URL    string `yaml:"url,omitempty"`
	Secure *bool  `yaml:"secure,omitempty"`
}

// envVarRegex matches ${VAR_NAME} or $VAR_NAME patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands ${VAR}, ${VAR:-default} and $VAR references.
// Undefined variables without a default expand to the empty string.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		def := ""
		if idx := strings.Index(name, ":-"); idx != -1 {
			def = name[idx+2:]
			name = name[:idx]
		}

		if value := os.Getenv(name); value != "" {
			return value
		}
		return def
	})
}

// LoadDisks reads and parses the disks file at path.
func LoadDisks(path string) (*DisksFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read disks file %s: %w", path, err)
	}
	return ParseDisks(data)
}

// ParseDisks parses disks file content after environment expansion.
func ParseDisks(data []byte) (*DisksFile, error) {
	var file DisksFile
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &file); err != nil {
		return nil, fmt.Errorf("failed to parse disks file: %w", err)
	}
	for name, disk := range file.Disks {
		disk.Name = name
		file.Disks[name] = disk
	}
	return &file, nil
}

// Names returns the configured disk names in sorted order.
func (f *DisksFile) Names() []string {
	names := make([]string, 0, len(f.Disks))
	for name := range f.Disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Disk looks up a disk by name. An empty name selects the file's default,
// then fallback.
func (f *DisksFile) Disk(name, fallback string) (DiskConfig, error) {
	if name == "" {
		name = f.Default
	}
	if name == "" {
		name = fallback
	}
	disk, ok := f.Disks[name]
	if !ok {
		return DiskConfig{}, filesystem.InvalidConfiguration(
			fmt.Sprintf("disk [%s] is not configured", name), nil)
	}
	return disk, nil
}

var containerNamePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateContainerName applies the Azure container naming rules: 3 to 63
// characters of lowercase letters, digits and single hyphens, starting and
// ending with a letter or digit.
func ValidateContainerName(name string) error {
	if len(name) < 3 || len(name) > 63 || !containerNamePattern.MatchString(name) {
		return filesystem.InvalidConfiguration(fmt.Sprintf("Invalid container name: [%s]", name), nil)
	}
	return nil
}

// AuthMethod returns the parsed authentication option.
func (d DiskConfig) AuthMethod() (AuthMethod, error) {
	return ParseAuthMethod(d.Options.Authentication)
}

// IsSecure reports whether the endpoint uses https. Unset means true.
func (d DiskConfig) IsSecure() bool {
	return d.Options.Secure == nil || *d.Options.Secure
}

// ServiceURL resolves the blob service endpoint. options.url replaces the
// default <account>.blob.core.windows.net domain and is used verbatim when
// it already carries a scheme.
func (d DiskConfig) ServiceURL() (string, error) {
	if strings.Contains(d.Options.URL, "://") {
		return strings.TrimSuffix(d.Options.URL, "/") + "/", nil
	}

	protocol := "https"
	if !d.IsSecure() {
		protocol = "http"
	}

	domain := strings.Trim(d.Options.URL, "/")
	if domain == "" {
		if d.Account == "" {
			return "", filesystem.InvalidConfiguration("either account or options.url is required", nil)
		}
		domain = d.Account + ".blob.core.windows.net"
	}
	return protocol + "://" + domain + "/", nil
}

// Validate checks the disk before any client is built.
func (d DiskConfig) Validate() error {
	if d.Driver == "" {
		return filesystem.InvalidConfiguration(fmt.Sprintf("disk [%s] must specify a driver", d.Name), nil)
	}
	if err := ValidateContainerName(d.Container); err != nil {
		return err
	}
	if d.Driver != DriverAzure {
		return nil
	}

	method, err := d.AuthMethod()
	if err != nil {
		return err
	}

	var missing []string
	require := func(value, field string) {
		if value == "" {
			missing = append(missing, field)
		}
	}

	switch method {
	case AuthEntraID:
		require(d.Directory, "directory")
		require(d.Application, "application")
		require(d.Secret, "secret")
	case AuthSharedKey:
		require(d.Account, "account")
		require(d.Key, "key")
	case AuthConnectionString:
		require(d.ConnectionString, "connection_string")
	}
	if len(missing) > 0 {
		return filesystem.InvalidConfiguration(
			fmt.Sprintf("authentication %s requires %s", method, strings.Join(missing, ", ")), nil)
	}

	if method != AuthConnectionString {
		if _, err := d.ServiceURL(); err != nil {
			return err
		}
	}
	return nil
}
