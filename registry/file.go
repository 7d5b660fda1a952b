package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/thisisjab/contactsearch/entity"
)

// fieldSpec is one field definition as written in the registry file.
type fieldSpec struct {
	ID       int64  `yaml:"id"`
	UUID     string `yaml:"uuid"`
	Key      string `yaml:"key"`
	Type     string `yaml:"type"`
	OrgID    int64  `yaml:"org_id"`
	Inactive bool   `yaml:"inactive,omitempty"`
}

type registryFile struct {
	Fields []fieldSpec `yaml:"fields"`
}

// File is a YAML-file-backed registry. Watch keeps it current as the file is
// rewritten, so long-running processes pick up schema changes without a
// restart. Reads are safe while a reload is in flight.
type File struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	fields []*entity.Field
}

func NewFile(logger *slog.Logger, path string) (*File, error) {
	f := &File{path: path, logger: logger}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// ActiveFields returns the active fields of the org whose keys are among the
// candidates, keyed by field key.
func (f *File) ActiveFields(org *entity.Org, keys []string) (map[string]*entity.Field, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	wanted := make(map[string]bool, len(keys))
	for _, key := range keys {
		wanted[key] = true
	}

	matches := map[string]*entity.Field{}
	for _, field := range f.fields {
		if field.OrgID == org.ID && field.IsActive && wanted[field.Key] {
			matches[field.Key] = field
		}
	}
	return matches, nil
}

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("cannot read registry file: %w", err)
	}

	var parsed registryFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("cannot parse registry file: %w", err)
	}

	fields := make([]*entity.Field, 0, len(parsed.Fields))
	for _, spec := range parsed.Fields {
		id, err := uuid.Parse(spec.UUID)
		if err != nil {
			return fmt.Errorf("field `%s` has invalid uuid: %w", spec.Key, err)
		}

		valueType := entity.ValueType(spec.Type)
		switch valueType {
		case entity.TypeText, entity.TypeNumber, entity.TypeDatetime,
			entity.TypeState, entity.TypeDistrict, entity.TypeWard:
		default:
			return fmt.Errorf("field `%s` has unknown value type %q", spec.Key, spec.Type)
		}

		fields = append(fields, &entity.Field{
			ID:        spec.ID,
			UUID:      id,
			Key:       spec.Key,
			ValueType: valueType,
			OrgID:     spec.OrgID,
			IsActive:  !spec.Inactive,
		})
	}

	f.mu.Lock()
	f.fields = fields
	f.mu.Unlock()

	return nil
}

// Watch reloads the registry whenever the backing file is written, until the
// context is cancelled. A file that reloads with an error keeps the previous
// schema.
func (f *File) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.path); err != nil {
		return fmt.Errorf("cannot add registry file to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				f.logger.Debug("fsnotify watcher channel is closed.")
				return nil
			}
			if !event.Has(fsnotify.Write) {
				f.logger.Debug("Received unhandled event from fsnotify.", "event", event.String())
				continue
			}
			if err := f.load(); err != nil {
				f.logger.Error("cannot reload registry file.", "error", err)
				continue
			}
			f.logger.Info("registry file reloaded.", "path", f.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
