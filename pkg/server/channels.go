package server

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/duskhollow/comlink/pkg/chat"
)

// ChannelConf is the on-disk form of one channel definition. It differs
// from chat.Channel only where YAML needs a distinguishable absent value:
// an omitted range means unlimited, not zero.
type ChannelConf struct {
	Name           string         `yaml:"name"`
	Prefix         string         `yaml:"prefix"`
	Shortcut       string         `yaml:"shortcut"`
	Permission     string         `yaml:"permission"`
	Range          *int           `yaml:"range"`
	NameColor      string         `yaml:"name_color"`
	Separator      string         `yaml:"separator"`
	SeparatorColor string         `yaml:"separator_color"`
	MessageColor   string         `yaml:"message_color"`
	AlwaysOn       bool           `yaml:"always_on"`
	Mature         bool           `yaml:"mature"`
	Type           string         `yaml:"type"`
	NameStyle      chat.NameStyle `yaml:"name_style"`
}

// channelsFile is the top-level shape of channels.yaml.
type channelsFile struct {
	Channels []ChannelConf `yaml:"channels"`
}

// toChannel converts the config form, applying defaults.
func (cc ChannelConf) toChannel() chat.Channel {
	rng := chat.RangeUnlimited
	if cc.Range != nil {
		rng = *cc.Range
	}
	sep := cc.Separator
	if sep == "" {
		sep = ":"
	}
	return chat.Channel{
		Name:           cc.Name,
		DisplayPrefix:  cc.Prefix,
		Shortcut:       cc.Shortcut,
		Permission:     cc.Permission,
		Range:          rng,
		NameColor:      cc.NameColor,
		Separator:      sep,
		SeparatorColor: cc.SeparatorColor,
		MessageColor:   cc.MessageColor,
		AlwaysOn:       cc.AlwaysOn,
		Mature:         cc.Mature,
		Type:           cc.Type,
		NameStyle:      cc.NameStyle,
	}
}

// LoadChannels reads channel definitions from a YAML file. Definitions
// without a name, or claiming the reserved reply shortcut, are skipped
// with a log line rather than failing the whole load.
func LoadChannels(path string) ([]chat.Channel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file channelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}

	seen := make(map[string]string) // shortcut -> channel name
	out := make([]chat.Channel, 0, len(file.Channels))
	for i, cc := range file.Channels {
		if strings.TrimSpace(cc.Name) == "" {
			log.Printf("channels: entry %d has no name, skipped", i)
			continue
		}
		if strings.EqualFold(cc.Shortcut, chat.ReplyShortcut) {
			log.Printf("channels: %s claims the reserved shortcut %q, shortcut dropped", cc.Name, cc.Shortcut)
			cc.Shortcut = ""
		}
		if cc.Shortcut != "" {
			key := strings.ToLower(cc.Shortcut)
			if prior, dup := seen[key]; dup {
				log.Printf("channels: shortcut %q on %s already used by %s; first one wins", cc.Shortcut, cc.Name, prior)
			} else {
				seen[key] = cc.Name
			}
		}
		out = append(out, cc.toChannel())
	}
	return out, nil
}

// ReloadChannels swaps the registry contents for the file's current
// definitions and marks the core ready. On a load error the running set
// is left untouched.
func ReloadChannels(core *chat.Core, path string) error {
	channels, err := LoadChannels(path)
	if err != nil {
		return err
	}
	core.Channels.Reset()
	for _, ch := range channels {
		core.Channels.Add(ch)
	}
	core.SetReady()
	log.Printf("channels: loaded %d channels from %s", len(channels), path)
	return nil
}

// WatchChannels reloads channel definitions whenever the file changes.
// Editors replace files rather than rewriting them in place, so the watch
// covers the containing directory and re-arms after every event. The
// returned stop function ends the watch.
func WatchChannels(core *chat.Core, path string) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("channels: watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("channels: watch %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		var pending <-chan time.Time
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != filepath.Base(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Debounce: editors fire several events per save.
				pending = time.After(250 * time.Millisecond)
			case <-pending:
				pending = nil
				if err := ReloadChannels(core, path); err != nil {
					log.Printf("channels: reload: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("channels: watch error: %v", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
