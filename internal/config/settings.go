package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	metadataDir  = ".config/config_validator"
	metadataFile = "metadata.json"

	// TokenFile is looked up in the working directory when no token is stored.
	TokenFile = "token.txt"
)

var validate = validator.New()

// Settings is everything a run needs to locate its inputs. It is persisted
// between runs as metadata.json.
type Settings struct {
	AccessToken        string `json:"access_token,omitempty"`
	HostVarsPath       string `json:"host_vars_path,omitempty" validate:"required,dir"`
	IntendedConfigPath string `json:"intended_config_path,omitempty" validate:"required,dir"`
	TelemetryURL       string `json:"telemetry_url,omitempty" validate:"omitempty,url"`
}

// Validate checks the settings. Directory paths are only required when
// needDirs is set, which is the case for the YAML directory provider.
func (s Settings) Validate(needDirs bool) error {
	var err error
	if needDirs {
		err = validate.Struct(s)
	} else {
		err = validate.StructExcept(s, "HostVarsPath", "IntendedConfigPath")
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q (value %q)", fe.Field(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
	}
	return err
}

// Missing returns the JSON keys of required values that are still empty.
func (s Settings) Missing(needDirs bool) []string {
	var keys []string
	if s.AccessToken == "" {
		keys = append(keys, "access_token")
	}
	if needDirs && s.HostVarsPath == "" {
		keys = append(keys, "host_vars_path")
	}
	if needDirs && s.IntendedConfigPath == "" {
		keys = append(keys, "intended_config_path")
	}
	return keys
}

// Store loads and persists Settings.
type Store interface {
	Load() (Settings, error)
	Save(Settings) error
}

// FileStore keeps Settings in a JSON file.
type FileStore struct {
	Path string
}

// DefaultPath returns ~/.config/config_validator/metadata.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, metadataDir, metadataFile), nil
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns the stored settings. A missing file yields empty settings.
func (f *FileStore) Load() (Settings, error) {
	var s Settings
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse %s: %w", f.Path, err)
	}
	return s, nil
}

func (f *FileStore) Save(s Settings) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return nil
}
