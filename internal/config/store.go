package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownSetting is returned by RequestUpdate for keys Config does not have.
var ErrUnknownSetting = errors.New("unknown setting")

// DefaultKeyword restores a setting to its default value.
const DefaultKeyword = "default"

// Store owns the settings file on disk.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads and validates the settings file.
func (s *Store) Load() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LoadFile(s.path)
}

// RequestUpdate rewrites one top-level setting in the file, keeping the
// comments around it. The value "default" restores the stock value. The
// whole document must still validate or the file is left untouched. The
// running process keeps its current settings until it restarts.
func (s *Store) RequestUpdate(setting, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	if len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: top level is not a mapping", s.path)
	}

	defaults, err := defaultsNode()
	if err != nil {
		return err
	}
	_, def := lookup(defaults, setting)
	if def == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSetting, setting)
	}

	next := def
	if value != DefaultKeyword {
		next = valueNode(value)
	}

	if key, cur := lookup(root, setting); cur != nil {
		next.LineComment = cur.LineComment
		next.HeadComment = cur.HeadComment
		next.FootComment = cur.FootComment
		replace(root, key, next)
	} else {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: setting}, next)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if _, err := Load(bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("update %s=%q: %w", setting, value, err)
	}

	if err := writeFile(s.path, buf.Bytes()); err != nil {
		return err
	}
	slog.Info("config updated, effective after reboot", "setting", setting, "value", value)
	return nil
}

// lookup finds the key and value nodes for name in a mapping node.
func lookup(mapping *yaml.Node, name string) (key, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == name {
			return mapping.Content[i], mapping.Content[i+1]
		}
	}
	return nil, nil
}

func replace(mapping, key, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i] == key {
			mapping.Content[i+1] = value
			return
		}
	}
}

// valueNode parses a control-topic value as YAML, falling back to a
// plain string for anything that is not a scalar or a sequence.
func valueNode(value string) *yaml.Node {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(value), &doc); err == nil && len(doc.Content) == 1 {
		n := doc.Content[0]
		if n.Kind == yaml.ScalarNode || n.Kind == yaml.SequenceNode {
			n.HeadComment, n.LineComment, n.FootComment = "", "", ""
			return n
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func defaultsNode() (*yaml.Node, error) {
	var doc yaml.Node
	if err := doc.Encode(Defaults()); err != nil {
		return nil, err
	}
	return &doc, nil
}

// writeFile replaces path atomically so a watcher never sees a half
// written document.
func writeFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
