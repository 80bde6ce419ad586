// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

// Package config implements dynamic config file monitoring and reloading.
package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager watches a config file for changes and applies a reloaded
// server list without requiring a process restart.
type Manager struct {
	configPath     string
	cfg            *Config
	mu             sync.RWMutex
	watcher        *fsnotify.Watcher
	done           chan bool
	onReload       func(*Config, Changes) error
	reloadDebounce time.Duration
}

// Changes describes what a reload altered relative to the previous config.
type Changes struct {
	ServersChanged bool
	TimeoutChanged bool
}

// NewManager creates a manager, loading configPath once up front.
func NewManager(configPath string, onReload func(*Config, Changes) error) (*Manager, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	debounce := 2 * time.Second
	m := &Manager{
		configPath:     configPath,
		cfg:            cfg,
		done:           make(chan bool, 1),
		onReload:       onReload,
		reloadDebounce: debounce,
	}
	return m, nil
}

// Start begins watching the config file for changes.
func (m *Manager) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	m.watcher = watcher

	if err := watcher.Add(m.configPath); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	log.Printf("watching config file: %s", m.configPath)

	go m.watchLoop()
	return nil
}

// Stop stops watching the config file.
func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.done <- true
}

// Get returns the current config (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) watchLoop() {
	var timer *time.Timer

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				log.Printf("config file changed: %s", event.Name)

				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(m.reloadDebounce, m.reloadConfig)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher error: %v", err)

		case <-m.done:
			return
		}
	}
}

func (m *Manager) reloadConfig() {
	newCfg, err := LoadConfig(m.configPath)
	if err != nil {
		log.Printf("failed to reload config: %v", err)
		return
	}

	m.mu.Lock()
	oldCfg := m.cfg
	m.cfg = newCfg
	m.mu.Unlock()

	changes := detectChanges(oldCfg, newCfg)

	if m.onReload != nil {
		start := time.Now()
		if err := m.onReload(newCfg, changes); err != nil {
			log.Printf("failed to apply config changes: %v", err)
			m.mu.Lock()
			m.cfg = oldCfg
			m.mu.Unlock()
			return
		}
		log.Printf("config reloaded successfully in %v", time.Since(start))
	}
}

func detectChanges(oldCfg, newCfg *Config) Changes {
	var c Changes

	if len(oldCfg.Resolver.Servers) != len(newCfg.Resolver.Servers) {
		c.ServersChanged = true
	} else {
		for i, s := range oldCfg.Resolver.Servers {
			if newCfg.Resolver.Servers[i] != s {
				c.ServersChanged = true
				break
			}
		}
	}
	if c.ServersChanged {
		log.Printf("resolver servers changed: %v", newCfg.Resolver.Servers)
	}

	if oldCfg.Resolver.Timeout != newCfg.Resolver.Timeout {
		c.TimeoutChanged = true
		log.Printf("resolver timeout changed: %ds", newCfg.Resolver.Timeout)
	}

	return c
}
