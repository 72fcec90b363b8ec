package config

import (
	"fmt"
	"net"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Credential file key prefixes.
const (
	SourcePrefix    = "RDS"
	WarehousePrefix = "LOCAL"
)

// DBCreds are PostgreSQL connection details read from a YAML file.
type DBCreds struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// ReadCreds reads <prefix>_USER, _PASSWORD, _HOST, _PORT and _DATABASE
// from a YAML file.
func ReadCreds(path, prefix string) (DBCreds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DBCreds{}, fmt.Errorf("read creds: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return DBCreds{}, fmt.Errorf("parse creds %s: %w", path, err)
	}

	get := func(key string) string {
		v, ok := raw[prefix+"_"+key]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
	c := DBCreds{
		User:     get("USER"),
		Password: get("PASSWORD"),
		Host:     get("HOST"),
		Port:     get("PORT"),
		Database: get("DATABASE"),
	}

	var missing []string
	for key, v := range map[string]string{"USER": c.User, "HOST": c.Host, "DATABASE": c.Database} {
		if v == "" {
			missing = append(missing, prefix+"_"+key)
		}
	}
	if len(missing) > 0 {
		return DBCreds{}, fmt.Errorf("creds %s: missing %v", path, missing)
	}
	if c.Port == "" {
		c.Port = "5432"
	}
	return c, nil
}

// URL returns the postgres:// connection string.
func (c DBCreds) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	return u.String()
}

// ResolveURL returns DatabaseURL, or builds one from CredsFile.
// Returns "" when neither is set.
func (s SourceConfig) ResolveURL() (string, error) {
	return resolveURL(s.DatabaseURL, s.CredsFile, SourcePrefix)
}

// ResolveURL returns URL, or builds one from CredsFile.
// Returns "" when neither is set.
func (w WarehouseConfig) ResolveURL() (string, error) {
	return resolveURL(w.URL, w.CredsFile, WarehousePrefix)
}

func resolveURL(direct, credsFile, prefix string) (string, error) {
	if direct != "" {
		return direct, nil
	}
	if credsFile == "" {
		return "", nil
	}
	c, err := ReadCreds(credsFile, prefix)
	if err != nil {
		return "", err
	}
	return c.URL(), nil
}
