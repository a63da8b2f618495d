// Package config loads and stores the chat credentials file.
//
// The file lives in the user's data directory and holds one table:
//
//	[authorization]
//	auth = "oauth:..."
//	user = "alice"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/plsuwu/afkttv"
)

const (
	dirMode  = 0o700
	fileMode = 0o600
)

// File is the on-disk layout.
type File struct {
	Authorization afkttv.Credentials `toml:"authorization"`
}

// DefaultPath returns <data home>/afkttv/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, afkttv.DefaultAppName, afkttv.DefaultConfigFile)
}

// Load reads the credentials stored at path. A missing file returns an error
// that also matches fs.ErrNotExist.
func Load(path string) (afkttv.Credentials, error) {
	var file File
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return afkttv.Credentials{}, fmt.Errorf("%w: %s: %w", afkttv.ErrConfig, path, err)
	}

	creds := normalize(file.Authorization)
	if err := validate(creds); err != nil {
		return afkttv.Credentials{}, fmt.Errorf("%w: %s: %w", afkttv.ErrConfig, path, err)
	}
	return creds, nil
}

// Save writes creds to path, creating the parent directory. The file is
// readable by the owner only.
func Save(path string, creds afkttv.Credentials) error {
	creds = normalize(creds)
	if err := validate(creds); err != nil {
		return fmt.Errorf("%w: %w", afkttv.ErrConfig, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	if err := toml.NewEncoder(f).Encode(File{Authorization: creds}); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func normalize(creds afkttv.Credentials) afkttv.Credentials {
	return afkttv.Credentials{
		Auth: strings.TrimSpace(creds.Auth),
		User: strings.ToLower(strings.TrimSpace(creds.User)),
	}
}

func validate(creds afkttv.Credentials) error {
	switch {
	case creds.Auth == "" || creds.Auth == "oauth:":
		return errors.New("authorization.auth is empty")
	case creds.User == "":
		return errors.New("authorization.user is empty")
	}
	return nil
}
