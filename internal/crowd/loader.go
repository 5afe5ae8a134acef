package crowd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// policyFile is the top-level YAML shape of a policy file. Durations use
// Go syntax ("30m", "150ms"); zero fields keep their current value.
type policyFile struct {
	Policy Policy `yaml:"policy"`
}

// LoadPolicyFromFile loads alert policy tunables from a YAML file,
// filling unset fields from the defaults.
func LoadPolicyFromFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return LoadPolicyFromBytes(data)
}

// LoadPolicyFromBytes parses policy YAML, filling unset fields from the
// defaults.
func LoadPolicyFromBytes(data []byte) (Policy, error) {
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return Policy{}, fmt.Errorf("parse policy YAML: %w", err)
	}

	p := DefaultPolicy()
	if pf.Policy.SpikeRatio != 0 {
		p.SpikeRatio = pf.Policy.SpikeRatio
	}
	if pf.Policy.StalenessWindow != 0 {
		p.StalenessWindow = pf.Policy.StalenessWindow
	}
	if pf.Policy.StatusFallbackAge != 0 {
		p.StatusFallbackAge = pf.Policy.StatusFallbackAge
	}
	if pf.Policy.AppendRetries != 0 {
		p.AppendRetries = pf.Policy.AppendRetries
	}
	if pf.Policy.AppendBackoff != 0 {
		p.AppendBackoff = pf.Policy.AppendBackoff
	}
	if pf.Policy.AppendTimeout != 0 {
		p.AppendTimeout = pf.Policy.AppendTimeout
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// WatchPolicyFile reloads the holder whenever the policy file changes.
// Invalid files are logged and skipped; the previous policy stays
// active. Blocks until the context is cancelled.
func WatchPolicyFile(ctx context.Context, path string, holder *PolicyHolder) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// a watch on the file itself.
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve policy path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch policy directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p, err := LoadPolicyFromFile(absPath)
			if err != nil {
				log.Printf("policy reload skipped: %v", err)
				continue
			}
			if err := holder.Store(p); err != nil {
				log.Printf("policy reload rejected: %v", err)
				continue
			}
			log.Printf("policy reloaded from %s (spike_ratio=%.2f staleness=%s)",
				absPath, p.SpikeRatio, p.StalenessWindow)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("policy watcher error: %v", err)
		}
	}
}
