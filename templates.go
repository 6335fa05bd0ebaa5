package umledit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/alnah/go-umledit/internal/assets"
	"github.com/alnah/go-umledit/internal/fileutil"
)

// File permissions for persisted templates.
const (
	templateFilePerm = 0o644
	dataDirPerm      = 0o750
)

// TemplateStore holds the ordered template collection and mirrors every
// mutation to a JSON file. The in-memory collection is authoritative: when a
// write fails the change is kept and a *PersistenceWarning is returned.
type TemplateStore struct {
	mu       sync.RWMutex
	path     string
	defaults []Template
	entries  []Template
	logger   *slog.Logger
}

// StoreOption configures a TemplateStore.
type StoreOption func(*TemplateStore)

// WithDefaults replaces the built-in default set.
func WithDefaults(defaults []Template) StoreOption {
	return func(s *TemplateStore) {
		s.defaults = cloneTemplates(defaults)
	}
}

// WithStoreLogger sets the logger. A nil logger discards output.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *TemplateStore) {
		s.logger = orDiscard(l)
	}
}

// NewTemplateStore creates a store bound to path. The store starts with the
// default set in memory; call Initialize to load the file.
func NewTemplateStore(path string, opts ...StoreOption) *TemplateStore {
	s := &TemplateStore{
		path:     path,
		defaults: DefaultTemplates(),
		logger:   orDiscard(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entries = cloneTemplates(s.defaults)
	return s
}

// DefaultTemplates returns a fresh copy of the built-in template set.
func DefaultTemplates() []Template {
	entries, err := decodeTemplates(assets.DefaultTemplates())
	if err != nil {
		panic(fmt.Sprintf("embedded template set: %v", err))
	}
	return entries
}

// ParseTemplates decodes a template set in the on-disk format, a JSON object
// of name to markup in display order.
func ParseTemplates(data []byte) ([]Template, error) {
	return decodeTemplates(data)
}

// Path returns the backing file.
func (s *TemplateStore) Path() string { return s.path }

// Initialize loads the backing file, writing the defaults first when it does
// not exist. Any failure leaves the defaults in memory, leaves the file as it
// was, and returns a *PersistenceWarning.
func (s *TemplateStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), dataDirPerm); err != nil {
		return s.fallbackLocked("initialize", err)
	}

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		if err := s.writeLocked(s.defaults); err != nil {
			return s.fallbackLocked("initialize", err)
		}
		s.logger.Info("template file created", "path", s.path, "templates", len(s.defaults))
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.fallbackLocked("load", err)
	}
	entries, err := decodeTemplates(data)
	if err != nil {
		return s.fallbackLocked("load", err)
	}

	s.entries = entries
	s.logger.Debug("templates loaded", "path", s.path, "templates", len(entries))
	return nil
}

// AddOrReplace stores body under name. An existing name keeps its position;
// a new name is appended.
func (s *TemplateStore) AddOrReplace(name, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(name, body)
	return s.persistLocked("save")
}

// Remove deletes name. An absent name is a no-op and writes nothing.
func (s *TemplateStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(name)
	if i < 0 {
		return nil
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return s.persistLocked("save")
}

// Rename replaces oldName with newName carrying body, in one write. The
// entry keeps oldName's position unless newName already exists, in which
// case newName's entry is updated in place and oldName is dropped.
func (s *TemplateStore) Rename(oldName, newName, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if oldName == newName {
		s.upsertLocked(newName, body)
		return s.persistLocked("save")
	}

	oldIdx, newIdx := s.indexLocked(oldName), s.indexLocked(newName)
	switch {
	case newIdx >= 0:
		s.entries[newIdx].Body = body
		if oldIdx >= 0 {
			s.entries = append(s.entries[:oldIdx], s.entries[oldIdx+1:]...)
		}
	case oldIdx >= 0:
		s.entries[oldIdx] = Template{Name: newName, Body: body}
	default:
		s.entries = append(s.entries, Template{Name: newName, Body: body})
	}
	return s.persistLocked("save")
}

// ResetToDefaults replaces the collection with the default set.
func (s *TemplateStore) ResetToDefaults() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = cloneTemplates(s.defaults)
	return s.persistLocked("reset")
}

// List returns an ordered snapshot of the collection.
func (s *TemplateStore) List() []Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneTemplates(s.entries)
}

// Names returns the template names in order.
func (s *TemplateStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.entries))
	for i, t := range s.entries {
		names[i] = t.Name
	}
	return names
}

// Get looks up a template by name.
func (s *TemplateStore) Get(name string) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(name); i >= 0 {
		return s.entries[i], true
	}
	return Template{}, false
}

// Has reports whether name exists.
func (s *TemplateStore) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Len returns the number of templates.
func (s *TemplateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

func (s *TemplateStore) indexLocked(name string) int {
	for i, t := range s.entries {
		if t.Name == name {
			return i
		}
	}
	return -1
}

func (s *TemplateStore) upsertLocked(name, body string) {
	if i := s.indexLocked(name); i >= 0 {
		s.entries[i].Body = body
		return
	}
	s.entries = append(s.entries, Template{Name: name, Body: body})
}

func (s *TemplateStore) persistLocked(op string) error {
	if err := s.writeLocked(s.entries); err != nil {
		s.logger.Warn("template file not saved", "path", s.path, "error", err)
		return &PersistenceWarning{Op: op, Path: s.path, Err: err}
	}
	return nil
}

func (s *TemplateStore) writeLocked(entries []Template) error {
	data, err := encodeTemplates(entries)
	if err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(s.path, data, templateFilePerm, dataDirPerm)
}

func (s *TemplateStore) fallbackLocked(op string, err error) error {
	s.entries = cloneTemplates(s.defaults)
	s.logger.Warn("using default templates", "path", s.path, "error", err)
	return &PersistenceWarning{Op: op, Path: s.path, Err: err}
}

// decodeTemplates parses a JSON object of name → markup, keeping key order.
// A repeated key keeps its first position and its last value.
func decodeTemplates(data []byte) ([]Template, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidTemplateFile)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrInvalidTemplateFile)
	}

	var (
		entries []Template
		index   = make(map[string]int)
		bad     error
	)
	root.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			bad = fmt.Errorf("%w: template %q is not a string", ErrInvalidTemplateFile, key.String())
			return false
		}
		name := key.String()
		if i, ok := index[name]; ok {
			entries[i].Body = value.String()
			return true
		}
		index[name] = len(entries)
		entries = append(entries, Template{Name: name, Body: value.String()})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no templates", ErrInvalidTemplateFile)
	}
	return entries, nil
}

// encodeTemplates writes entries as a pretty-printed JSON object in order.
func encodeTemplates(entries []Template) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, t.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, t.Body); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return pretty.Pretty(buf.Bytes()), nil
}

// writeJSONString encodes s without HTML escaping, so arrows and stereotypes
// in markup stay readable in the file.
func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding template: %w", err)
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func cloneTemplates(src []Template) []Template {
	if src == nil {
		return nil
	}
	dst := make([]Template, len(src))
	copy(dst, src)
	return dst
}
