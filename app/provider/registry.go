package provider

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/card-comb/app/transport"
)

// Dialer connects to a provider endpoint.
type Dialer func(endpoint string, timeout time.Duration) transport.Conn

type Registry struct {
	fs             afero.Fs
	dir            string
	dial           Dialer
	defaultTimeout time.Duration

	mu          sync.RWMutex
	descriptors map[string]*Descriptor
	handles     []Handle
}

func NewRegistry(fs afero.Fs, dir string, dial Dialer, defaultTimeout time.Duration) *Registry {
	return &Registry{
		fs:             fs,
		dir:            dir,
		dial:           dial,
		defaultTimeout: defaultTimeout,
		descriptors:    make(map[string]*Descriptor),
	}
}

// HTTPDialer dials providers over the HTTP call protocol.
func HTTPDialer(userAgent string) Dialer {
	return func(endpoint string, timeout time.Duration) transport.Conn {
		return transport.NewClient(endpoint, nil, userAgent, timeout)
	}
}

// Run reloads every descriptor in the directory and replaces the current
// handle set. Unreadable or invalid files are logged and skipped.
func (r *Registry) Run() error {
	descriptors := make(map[string]*Descriptor)

	if exists, err := afero.DirExists(r.fs, r.dir); err != nil {
		return fmt.Errorf("failed to check providers dir: %w", err)
	} else if !exists {
		slog.Warn("Providers directory not found", "dir", r.dir)
		r.swap(descriptors)
		return nil
	}

	files, err := r.descriptorFiles()
	if err != nil {
		return err
	}

	for _, file := range files {
		desc, err := r.LoadDescriptor(file)
		if err != nil {
			slog.Warn("Skipping provider descriptor", "file", file, "error", err)
			continue
		}

		if existing, ok := descriptors[desc.Name]; ok {
			slog.Warn("Duplicate provider name, skipping", "provider", desc.Name, "file", file, "first", existing.File)
			continue
		}
		descriptors[desc.Name] = desc

		slog.Debug("Provider descriptor loaded", "provider", desc.Name, "enabled", desc.Enabled, "interfaces", desc.Interfaces)
	}

	r.swap(descriptors)
	return nil
}

func (r *Registry) descriptorFiles() ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := afero.Glob(r.fs, filepath.Join(r.dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to find descriptor files: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func (r *Registry) LoadDescriptor(file string) (*Descriptor, error) {
	data, err := afero.ReadFile(r.fs, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	desc := Descriptor{Enabled: true}
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	desc.File = file

	if err := validateDescriptor(&desc); err != nil {
		return nil, fmt.Errorf("invalid descriptor %s: %w", file, err)
	}

	return &desc, nil
}

func validateDescriptor(desc *Descriptor) error {
	requiredFields := map[string]string{
		"name":     desc.Name,
		"endpoint": desc.Endpoint,
	}
	for fieldName, fieldValue := range requiredFields {
		if strings.TrimSpace(fieldValue) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if desc.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	for i, tag := range desc.Interfaces {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("interface at index %d is empty", i)
		}
	}

	return nil
}

func (r *Registry) swap(descriptors map[string]*Descriptor) {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	var handles []Handle
	for _, name := range names {
		handles = append(handles, r.buildHandles(descriptors[name])...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors = descriptors
	r.handles = handles
}

func (r *Registry) buildHandles(desc *Descriptor) []Handle {
	if !desc.Enabled {
		return nil
	}

	timeout := r.defaultTimeout
	if desc.Timeout > 0 {
		timeout = time.Duration(desc.Timeout) * time.Second
	}
	conn := r.dial(desc.Endpoint, timeout)

	handles := make([]Handle, 0, len(desc.Interfaces))
	for _, tag := range desc.Interfaces {
		handles = append(handles, Handle{
			Kind:       ParseKind(tag),
			Interface:  tag,
			OwnerID:    desc.Name,
			BusName:    desc.Endpoint,
			SearchPath: desc.KnowledgeSearchPath,
			AppID:      desc.KnowledgeAppID,
			Conn:       conn,
		})
	}
	return handles
}

// Snapshot returns the handles built by the latest load.
func (r *Registry) Snapshot() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.handles)
}

func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.descriptors))
	for _, desc := range r.descriptors {
		descriptors = append(descriptors, *desc)
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors
}

func (r *Registry) GetDescriptor(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("provider with name '%s' not found", name)
	}
	copied := *desc
	return &copied, nil
}

func (r *Registry) DescriptorCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// Watch reloads descriptors whenever a YAML file in the directory changes.
// It blocks until ctx is done. Bursts of events are coalesced.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.dir, err)
	}

	slog.Info("Watching provider descriptors", "dir", r.dir)

	var timer *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDescriptorFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			if err := r.Run(); err != nil {
				slog.Error("Failed to reload provider descriptors", "error", err)
				continue
			}
			slog.Info("Provider descriptors reloaded", "count", r.DescriptorCount())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Provider watcher error", "error", err)
		}
	}
}

func isDescriptorFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yml" || ext == ".yaml"
}
