/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Seednode/ghostly/ghosts"
	"gopkg.in/yaml.v3"
)

// reservationFile lists holders that get a random name before serving starts.
//
//	holders:
//	  - first: Fred
//	    family: Again
//	    email: fred@example.com
type reservationFile struct {
	Holders []ghosts.Holder `yaml:"holders" toml:"holders"`
}

func loadReservations(path string) ([]ghosts.Holder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rf reservationFile

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &rf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%s: unknown keys %v", path, undecoded)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported reservation file type %q", path, ext)
	}

	seen := make(map[string]bool, len(rf.Holders))
	for i, h := range rf.Holders {
		if h.Email == "" {
			return nil, fmt.Errorf("%s: holder %d has no email", path, i+1)
		}
		if seen[h.Email] {
			return nil, fmt.Errorf("%s: %s listed more than once", path, h.Email)
		}
		seen[h.Email] = true
	}

	return rf.Holders, nil
}
