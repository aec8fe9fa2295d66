package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Prompter asks the operator for the keys named in missing and writes the
// answers into s.
type Prompter interface {
	Prompt(s *Settings, missing []string) error
}

// Overrides are values given on the command line for this run.
type Overrides struct {
	// Positional holds [access_token] [host_vars_path] [intended_config_path].
	// These replace the stored values and are persisted.
	Positional []string

	// Flag values apply to this run only.
	AccessToken        string
	HostVarsPath       string
	IntendedConfigPath string
	TelemetryURL       string
}

// Resolver assembles the Settings for a run from the store, token.txt, the
// command line and, when a Prompter is set, the operator.
type Resolver struct {
	Store     Store
	Prompter  Prompter
	TokenFile string
	Logger    *slog.Logger
}

func NewResolver(store Store, prompter Prompter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{Store: store, Prompter: prompter, TokenFile: TokenFile, Logger: logger}
}

// Resolve returns validated settings. needDirs is set when configuration is
// read from directories rather than a database.
func (r *Resolver) Resolve(o Overrides, needDirs bool) (Settings, error) {
	s, err := r.Store.Load()
	if err != nil {
		return s, err
	}
	dirty := false

	if s.AccessToken == "" {
		token, err := r.readTokenFile()
		if err != nil {
			return s, err
		}
		if token != "" {
			s.AccessToken = token
			dirty = true
		}
	}

	for i, v := range o.Positional {
		switch i {
		case 0:
			s.AccessToken = v
		case 1:
			s.HostVarsPath = v
		case 2:
			s.IntendedConfigPath = v
		}
		dirty = true
	}

	if missing := s.Missing(needDirs); len(missing) > 0 && r.Prompter != nil {
		r.Logger.Info("Missing required settings, prompting", "keys", missing)
		if err := r.Prompter.Prompt(&s, missing); err != nil {
			return s, fmt.Errorf("failed to read settings: %w", err)
		}
		dirty = true
	}

	if dirty {
		if err := r.Store.Save(s); err != nil {
			return s, err
		}
	}

	applyFlag(&s.AccessToken, o.AccessToken)
	applyFlag(&s.HostVarsPath, o.HostVarsPath)
	applyFlag(&s.IntendedConfigPath, o.IntendedConfigPath)
	applyFlag(&s.TelemetryURL, o.TelemetryURL)

	if err := s.Validate(needDirs); err != nil {
		return s, err
	}
	return s, nil
}

func (r *Resolver) readTokenFile() (string, error) {
	if r.TokenFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(r.TokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", r.TokenFile, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		r.Logger.Warn("Token file is empty, skipping", "path", r.TokenFile)
	}
	return token, nil
}

func applyFlag(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Interactive reports whether stdin is attached to a terminal.
func Interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// HuhPrompter asks for missing settings with a terminal form.
type HuhPrompter struct{}

func (HuhPrompter) Prompt(s *Settings, missing []string) error {
	var fields []huh.Field
	for _, key := range missing {
		switch key {
		case "access_token":
			fields = append(fields, huh.NewInput().
				Title("Access token").
				EchoMode(huh.EchoModePassword).
				Value(&s.AccessToken))
		case "host_vars_path":
			fields = append(fields, huh.NewInput().
				Title("Path to your host_vars directory").
				Placeholder("./host_vars").
				Validate(requireDir).
				Value(&s.HostVarsPath))
		case "intended_config_path":
			fields = append(fields, huh.NewInput().
				Title("Path to your intended structured_config directory").
				Placeholder("./intended/structured_config").
				Validate(requireDir).
				Value(&s.IntendedConfigPath))
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
