// Package config stores named warehouse connections and load profiles
// in a YAML file under the user's home directory (~/.dcx/config.yaml).
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	dirName  = ".dcx"
	fileName = "config.yaml"

	// EnvConfigPath overrides the default config file location.
	EnvConfigPath = "DCX_CONFIG"
)

// Connection describes how to reach one warehouse database. Either DSN is
// set, or the individual fields are combined into a postgres:// URL.
type Connection struct {
	DSN      string `yaml:"dsn,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Schema   string `yaml:"schema,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
}

// URL returns the connection string for pgx. An explicit DSN wins.
func (c *Connection) URL() string {
	if c.DSN != "" {
		return c.DSN
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgresql",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Profile is a saved set of load options that can be recalled by name.
// CLI flags take precedence over profile values.
type Profile struct {
	Dest       string            `yaml:"dest,omitempty"`
	Connection string            `yaml:"connection,omitempty"`
	Strategy   string            `yaml:"strategy,omitempty"`
	Tags       map[string]string `yaml:"tags,omitempty"`
	Grants     []string          `yaml:"grants,omitempty"`
	MostRecent bool              `yaml:"most_recent,omitempty"`
}

// File is the on-disk configuration document.
type File struct {
	Default     string                 `yaml:"default,omitempty"`
	Connections map[string]*Connection `yaml:"connections,omitempty"`
	Profiles    map[string]*Profile    `yaml:"profiles,omitempty"`

	path string
}

// Path returns the active config file location.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", dirName, fileName)
	}
	return filepath.Join(home, dirName, fileName)
}

// Load reads the config file, returning an empty document if it does not
// exist yet.
func Load() (*File, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config document at an explicit path.
func LoadFrom(path string) (*File, error) {
	f := &File{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return f, nil
}

// Save writes the document back to the path it was loaded from. The file
// holds credentials, so it is written 0600 inside a 0700 directory.
func (f *File) Save() error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// AddConnection adds or replaces a named connection. The first connection
// ever added becomes the default.
func (f *File) AddConnection(name string, conn *Connection, setDefault bool) {
	if f.Connections == nil {
		f.Connections = make(map[string]*Connection)
	}
	f.Connections[name] = conn
	if setDefault || f.Default == "" {
		f.Default = name
	}
}

// RemoveConnection deletes a connection, repointing the default at any
// remaining connection. Reports whether the name existed.
func (f *File) RemoveConnection(name string) bool {
	if _, ok := f.Connections[name]; !ok {
		return false
	}
	delete(f.Connections, name)
	if f.Default == name {
		f.Default = ""
		for n := range f.Connections {
			f.Default = n
			break
		}
	}
	return true
}

// SetDefault marks a connection as default. Reports whether it exists.
func (f *File) SetDefault(name string) bool {
	if _, ok := f.Connections[name]; !ok {
		return false
	}
	f.Default = name
	return true
}

// Connection resolves a connection by name, or the default when name is
// empty. Returns nil if nothing matches.
func (f *File) Connection(name string) *Connection {
	if name == "" {
		name = f.Default
	}
	if name == "" {
		return nil
	}
	return f.Connections[name]
}

// AddProfile adds or replaces a named load profile.
func (f *File) AddProfile(name string, p *Profile) {
	if f.Profiles == nil {
		f.Profiles = make(map[string]*Profile)
	}
	f.Profiles[name] = p
}

// RemoveProfile deletes a profile. Reports whether the name existed.
func (f *File) RemoveProfile(name string) bool {
	if _, ok := f.Profiles[name]; !ok {
		return false
	}
	delete(f.Profiles, name)
	return true
}

// Profile resolves a load profile by name. Returns nil if absent.
func (f *File) Profile(name string) *Profile {
	return f.Profiles[name]
}
