// ============================================================================
// lendbot - Community Lending Bot
// ============================================================================
//
// Package:     responses
// Description: YAML reply template catalogue with hot-reload support
// Author:      Mike Stoffels
// Created:     2025-12-11
// License:     MIT
// ============================================================================

package responses

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/msto63/lendbot/foundation/cmdpattern"
	mdwerror "github.com/msto63/lendbot/foundation/core/error"
	"github.com/msto63/lendbot/internal/ledger/store"
	"github.com/msto63/lendbot/pkg/core/logging"
)

// Template is one reply as written in a catalogue file
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Rendered is a reply ready to post
type Rendered struct {
	Subject string
	Body    string
}

type compiled struct {
	key     string
	subject *template.Template
	body    *template.Template
	source  string // file name, empty for built-ins
}

// Catalog manages loading and hot-reloading of reply templates from YAML files
type Catalog struct {
	mu        sync.RWMutex
	dir       string
	templates map[string]*compiled // key -> loaded template
	defaults  map[string]*compiled
	watcher   *fsnotify.Watcher
	logger    *logging.Logger
	onReload  func(keys []string)
	stopCh    chan struct{}
	running   bool
}

// NewCatalog creates a catalogue reading *.yaml files from dir
func NewCatalog(dir string) *Catalog {
	c := &Catalog{
		dir:       dir,
		templates: make(map[string]*compiled),
		defaults:  make(map[string]*compiled, len(builtin)),
		logger:    logging.New("responses"),
		stopCh:    make(chan struct{}),
	}
	for key, t := range builtin {
		ct, err := compile(key, t, "")
		if err != nil {
			panic(fmt.Sprintf("built-in reply %s: %v", key, err))
		}
		c.defaults[key] = ct
	}
	return c
}

// SetOnReload sets the callback run after the catalogue was reloaded
func (c *Catalog) SetOnReload(fn func(keys []string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReload = fn
}

// SetLogger replaces the catalogue's logger
func (c *Catalog) SetLogger(logger *logging.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if logger != nil {
		c.logger = logger
	}
}

// Funcs returns the helper functions available in reply templates
func Funcs() template.FuncMap {
	return template.FuncMap{
		// money renders cents with a currency code, e.g. 25.50 EUR
		"money": func(cents int64, currency string) string {
			return amount(cents) + " " + currency
		},
		"amount": amount,
		// user renders a username as a profile reference
		"user": func(name string) string {
			return "/u/" + name
		},
		"status": status,
		"upper":  strings.ToUpper,
	}
}

func amount(cents int64) string {
	return cmdpattern.Value{Kind: cmdpattern.KindMoney, Cents: cents}.String()
}

func status(l *store.Loan) string {
	switch {
	case l.Settled():
		return "repaid"
	case l.Unpaid:
		return "unpaid"
	default:
		return "open"
	}
}

func compile(key string, t Template, source string) (*compiled, error) {
	subject, err := template.New(key + ".subject").Funcs(Funcs()).Parse(t.Subject)
	if err != nil {
		return nil, err
	}
	body, err := template.New(key + ".body").Funcs(Funcs()).Option("missingkey=zero").Parse(t.Body)
	if err != nil {
		return nil, err
	}
	return &compiled{key: key, subject: subject, body: body, source: source}, nil
}

// LoadAll replaces the loaded templates with the contents of the directory.
// A file that cannot be read or parsed is skipped as a whole.
func (c *Catalog) LoadAll() error {
	loaded, err := c.readDir()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.templates = loaded
	onReload := c.onReload
	c.mu.Unlock()

	keys := make([]string, 0, len(loaded))
	for key := range loaded {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	c.logger.Info("Reply templates loaded", "count", len(keys), "dir", c.dir)
	if onReload != nil {
		onReload(keys)
	}
	return nil
}

func (c *Catalog) readDir() (map[string]*compiled, error) {
	// Ensure directory exists
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, mdwerror.Wrap(err, "create responses directory").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("responses.LoadAll").
			WithDetail("dir", c.dir)
	}

	files, err := filepath.Glob(filepath.Join(c.dir, "*.yaml"))
	if err != nil {
		return nil, mdwerror.Wrap(err, "list response files").
			WithCode(mdwerror.CodeTemplateError).
			WithOperation("responses.LoadAll")
	}
	ymlFiles, _ := filepath.Glob(filepath.Join(c.dir, "*.yml"))
	files = append(files, ymlFiles...)
	sort.Strings(files)

	loaded := make(map[string]*compiled)
	for _, file := range files {
		templates, err := loadFile(file)
		if err != nil {
			c.logger.Warn("Failed to load response file", "file", file, "error", err)
			continue
		}
		for key, t := range templates {
			if prev, exists := loaded[key]; exists {
				c.logger.Warn("Reply template defined twice", "key", key, "file", filepath.Base(file), "previous", prev.source)
			}
			loaded[key] = t
		}
	}
	return loaded, nil
}

// loadFile loads a single YAML file
func loadFile(path string) (map[string]*compiled, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var raw map[string]Template
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML syntax: %w", err)
	}

	name := filepath.Base(path)
	out := make(map[string]*compiled, len(raw))
	for key, t := range raw {
		if strings.TrimSpace(t.Body) == "" {
			return nil, fmt.Errorf("reply %s has no body", key)
		}
		ct, err := compile(key, t, name)
		if err != nil {
			return nil, fmt.Errorf("reply %s: %w", key, err)
		}
		out[key] = ct
	}
	return out, nil
}

func (c *Catalog) lookup(key string) (*compiled, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if t, ok := c.templates[key]; ok {
		return t, true
	}
	t, ok := c.defaults[key]
	return t, ok
}

// Has reports whether a reply is defined for key
func (c *Catalog) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Keys returns every key that can be rendered
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool, len(c.defaults)+len(c.templates))
	for key := range c.defaults {
		seen[key] = true
	}
	for key := range c.templates {
		seen[key] = true
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Render executes the reply for key with data
func (c *Catalog) Render(key string, data interface{}) (*Rendered, error) {
	t, ok := c.lookup(key)
	if !ok {
		return nil, mdwerror.Newf("no reply template for %s", key).
			WithCode(mdwerror.CodeTemplateError).
			WithOperation("responses.Render").
			WithDetail("key", key)
	}

	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return nil, renderError(key, err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return nil, renderError(key, err)
	}

	return &Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimSpace(body.String()),
	}, nil
}

func renderError(key string, err error) error {
	return mdwerror.Wrap(err, "render reply").
		WithCode(mdwerror.CodeTemplateError).
		WithOperation("responses.Render").
		WithDetail("key", key)
}

// Watch reloads the catalogue whenever a YAML file in the directory changes
func (c *Catalog) Watch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return mdwerror.Wrap(err, "create watcher").
			WithCode(mdwerror.CodeInternal).
			WithOperation("responses.Watch")
	}

	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return mdwerror.Wrap(err, "watch responses directory").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("responses.Watch").
			WithDetail("dir", c.dir)
	}

	c.watcher = watcher
	c.running = true
	c.logger.Info("Started watching for reply changes", "dir", c.dir)

	go c.watchLoop(ctx, watcher, c.stopCh)
	return nil
}

// watchLoop handles file system events
func (c *Catalog) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, stopCh chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.stopCh == stopCh {
			c.running = false
		}
		c.mu.Unlock()
		watcher.Close()
	}()

	// Editors write a file in several steps; reload once they are done
	const debounceDelay = 200 * time.Millisecond
	timer := time.NewTimer(debounceDelay)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping reply watcher (context cancelled)")
			return

		case <-stopCh:
			c.logger.Info("Stopping reply watcher (stop signal)")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isYAMLFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			c.logger.Debug("Reply file changed", "file", filepath.Base(event.Name), "op", event.Op.String())
			timer.Reset(debounceDelay)

		case <-timer.C:
			if err := c.LoadAll(); err != nil {
				c.logger.Error("Failed to reload replies", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Error("Watcher error", "error", err)
		}
	}
}

// Stop stops the file watcher
func (c *Catalog) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		close(c.stopCh)
		c.stopCh = make(chan struct{})
		c.running = false
	}
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
