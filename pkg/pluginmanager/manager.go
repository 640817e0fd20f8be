// Copyright 2022 VMware, Inc. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pluginmanager

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/forgecli/forge/pkg/logx"
)

// Manager merges zero or more Providers into a single catalog, and
// resolves lookups against the merged result (spec section 4.7).
type Manager struct {
	providers []Provider
	aliases   map[string][]string

	mu          sync.RWMutex
	initialized bool
	topics      map[string]TopicRecord
	commands    map[string]CommandRecord
	plugins     []PluginRecord
}

// New builds a Manager. providers MUST be given in precedence order,
// lowest first: builtin, then linked, then user (spec section 3's
// invariant: "on collision, precedence is user > linked > builtin").
// aliases maps a canonical command ID to its list of aliases.
func New(aliases map[string][]string, providers ...Provider) *Manager {
	return &Manager{
		providers: providers,
		aliases:   aliases,
		topics:    map[string]TopicRecord{},
		commands:  map[string]CommandRecord{},
	}
}

// Init loads every provider concurrently and merges their output. It is
// idempotent: a second call is a no-op (spec section 4.7's "initialized
// flag"). Callers that mutate plugin state (install/update/remove/link)
// must build a fresh Manager to re-init, rather than calling Init again.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	results := make([][]PluginRecord, len(m.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, provider := range m.providers {
		i, provider := i, provider
		g.Go(func() error {
			records, err := provider.Load(gctx)
			if err != nil {
				// A provider-wide failure is still a warning, not fatal
				// (spec section 7): the rest of the catalog must still
				// come up.
				logx.Warningf("plugin provider %s failed to load: %v", provider.Type(), err)
				return nil
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	topics := map[string]TopicRecord{}
	commands := map[string]CommandRecord{}
	var plugins []PluginRecord

	// Merge in provider registration order so later providers win on
	// conflict, matching the precedence invariant.
	for _, records := range results {
		plugins = append(plugins, records...)
		for _, plugin := range records {
			for _, t := range plugin.Topics {
				if existing, ok := topics[t.Name]; ok {
					topics[t.Name] = mergeTopic(existing, t)
				} else {
					topics[t.Name] = t
				}
			}
			for _, c := range plugin.Commands {
				commands[c.ID] = c
			}
		}
	}

	synthesizeMissingTopics(topics, commands)
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })

	m.topics = topics
	m.commands = commands
	m.plugins = plugins
	m.initialized = true
	return nil
}

// ListPlugins returns every loaded plugin record (builtin, linked and
// user alike), sorted by name, for the `plugins` listing command.
func (m *Manager) ListPlugins() []PluginRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PluginRecord, len(m.plugins))
	copy(out, m.plugins)
	return out
}

// synthesizeMissingTopics adds a bare TopicRecord for any command ID whose
// topic prefix has no declared topic of its own (spec section 4.7's final
// init step).
func synthesizeMissingTopics(topics map[string]TopicRecord, commands map[string]CommandRecord) {
	for id := range commands {
		t := topicOf(id)
		if t == "" {
			continue
		}
		if _, ok := topics[t]; !ok {
			topics[t] = TopicRecord{Name: t}
		}
	}
}

// unalias resolves id to its canonical command ID if id appears in some
// canonical entry's alias list, else returns id unchanged. Aliases never
// chain: the result of one lookup is never fed back in.
func (m *Manager) unalias(id string) string {
	for canonical, aliases := range m.aliases {
		for _, a := range aliases {
			if a == id {
				return canonical
			}
		}
	}
	return id
}

// FindCommand implements spec section 4.7's findCommand: unalias, then
// look up the merged catalog.
func (m *Manager) FindCommand(id string) (CommandRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commands[m.unalias(id)]
	return c, ok
}

// FindTopic implements spec section 4.7's findTopic.
func (m *Manager) FindTopic(name string) (TopicRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.topics[name]
	return t, ok
}

// CommandsForTopic implements spec section 4.7's commandsForTopic:
// exact-prefix-then-colon match, hidden commands omitted, sorted for
// deterministic help output.
func (m *Manager) CommandsForTopic(name string) []CommandRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := name + ":"
	var out []CommandRecord
	for id, c := range m.commands {
		if c.Hidden {
			continue
		}
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if strings.Contains(id[len(prefix):], ":") {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListRootCommands implements spec section 4.7's listRootCommands:
// commands with no colon in their ID.
func (m *Manager) ListRootCommands() []CommandRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []CommandRecord
	for id, c := range m.commands {
		if !strings.Contains(id, ":") {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListTopics returns every non-hidden top-level topic, sorted
// lexicographically (HelpRenderer's empty-subject rendering).
func (m *Manager) ListTopics() []TopicRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []TopicRecord
	for _, t := range m.topics {
		if t.Hidden {
			continue
		}
		if strings.Contains(t.Name, ":") {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllCommandIDs returns every command ID in the merged catalog, used by
// the Dispatcher's NotFound suggestion search.
func (m *Manager) AllCommandIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.commands))
	for id := range m.commands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
