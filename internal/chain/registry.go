package chain

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Entry 是带键名的描述符
type Entry struct {
	Key string `json:"key"`
	Descriptor
}

// Registry is a concurrency-safe table of network descriptors keyed by a
// short name such as "bsc".
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
}

// NewRegistry 返回只包含内置网络的注册表
func NewRegistry() *Registry {
	return &Registry{entries: builtin()}
}

// Get 按键名（不区分大小写）查找
func (r *Registry) Get(key string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[strings.ToLower(key)]
	return cloneDescriptor(d), ok
}

// ByChainID 按链 ID 数值查找
func (r *Registry) ByChainID(chainID string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.sortedKeys() {
		if d := r.entries[key]; SameChain(d.ChainID, chainID) {
			return cloneDescriptor(d), true
		}
	}
	return Descriptor{}, false
}

// Lookup tries the key first and then the chain ID.
func (r *Registry) Lookup(keyOrChainID string) (Descriptor, error) {
	if d, ok := r.Get(keyOrChainID); ok {
		return d, nil
	}
	if d, ok := r.ByChainID(keyOrChainID); ok {
		return d, nil
	}
	return Descriptor{}, fmt.Errorf("unknown network %q", keyOrChainID)
}

// Add 校验后注册（或覆盖）一个网络
func (r *Registry) Add(key string, d Descriptor) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return fmt.Errorf("network key is required")
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("network %s: %w", key, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = cloneDescriptor(d)
	return nil
}

// List 按键名排序返回全部网络
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, key := range r.sortedKeys() {
		out = append(out, Entry{Key: key, Descriptor: cloneDescriptor(r.entries[key])})
	}
	return out
}

// LoadFile merges descriptors from a YAML file of the form
//
//	networks:
//	  polygon:
//	    chainId: "0x89"
//	    chainName: Polygon
//	    ...
//
// Entries are validated before any of them is added, so a bad file leaves
// the registry untouched.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read networks file: %w", err)
	}

	var file struct {
		Networks map[string]Descriptor `yaml:"networks"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse networks file %s: %w", path, err)
	}

	for key, d := range file.Networks {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("network %s: %w", key, err)
		}
	}
	for key, d := range file.Networks {
		if err := r.Add(key, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) sortedKeys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneDescriptor(d Descriptor) Descriptor {
	d.RPCURLs = append([]string(nil), d.RPCURLs...)
	d.BlockExplorerURLs = append([]string(nil), d.BlockExplorerURLs...)
	d.IconURLs = append([]string(nil), d.IconURLs...)
	return d
}
