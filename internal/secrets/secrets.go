// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads store and object storage credentials kept outside
// the config file. A secrets directory holds one file per credential, named
// after its key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/cadfacts/pkg/types"
)

// Credential file names.
const (
	PostgresDSN       = "postgres-dsn"
	S3AccessKeyID     = "s3-access-key-id"
	S3SecretAccessKey = "s3-secret-access-key"
)

// Set maps credential names to values.
type Set map[string]string

// Load reads the credential files in dir. A missing directory yields an
// empty set. Dotfiles, subdirectories and blank files are ignored; a file
// that cannot be read is reported on stderr and skipped.
func Load(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	set := Set{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping credential %s: %v\n", name, err)
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			set[name] = v
		}
	}
	return set, nil
}

// Keys returns the credential names in sorted order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply fills the credentials cfg leaves empty. Values from the config file
// or environment win.
func (s Set) Apply(cfg *types.Config) {
	setIfEmpty(&cfg.Store.PostgresDSN, s[PostgresDSN])
	setIfEmpty(&cfg.Publish.AccessKeyID, s[S3AccessKeyID])
	setIfEmpty(&cfg.Publish.SecretAccessKey, s[S3SecretAccessKey])
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
