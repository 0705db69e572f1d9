/*
 * Copyright 2026 The Manuscript Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package manuscript assembles the document engine: replicated documents,
// their on-disk packages, history, chunked access, caching, sync and access
// grants, behind one configuration.
package manuscript

import (
	"context"
	"crypto/rand"
	"fmt"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/manuscript-team/manuscript/internal/logging"
	"github.com/manuscript-team/manuscript/internal/validation"
	"github.com/manuscript-team/manuscript/pkg/cache"
	"github.com/manuscript-team/manuscript/pkg/chunk"
	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/history"
	"github.com/manuscript-team/manuscript/pkg/document/key"
	"github.com/manuscript-team/manuscript/pkg/invite"
	"github.com/manuscript-team/manuscript/pkg/limit"
	"github.com/manuscript-team/manuscript/pkg/render"
	"github.com/manuscript-team/manuscript/pkg/storage"
	"github.com/manuscript-team/manuscript/pkg/sync"
)

// Config is the configuration of the engine.
type Config struct {
	// StoragePath is the directory holding document packages.
	StoragePath string `validate:"required"`

	// InviteStorePath is the invitation database file. Defaults to a file
	// inside StoragePath.
	InviteStorePath string `validate:"required"`

	// InviteSealKey encrypts invitation records at rest. It must be 16, 24
	// or 32 bytes; when empty an ephemeral key is generated and grants do
	// not survive a restart.
	InviteSealKey string

	// RelayEndpoint is the websocket relay for collaborative sessions.
	// When empty, an in-process relay is used.
	RelayEndpoint string `validate:"omitempty,uri"`

	// LogLevel configures the global logger.
	LogLevel string `validate:"oneof=debug info warn error panic fatal"`

	// ChunkThreshold is the body size from which reads go through chunks.
	ChunkThreshold int `validate:"min=1"`

	// ChunkSize is the byte size of one chunk.
	ChunkSize int `validate:"min=1"`

	// MaxResidentChunks bounds the chunks kept in memory per document.
	MaxResidentChunks int `validate:"min=1"`

	// RenderBudgetBytes is the byte budget of the render cache.
	RenderBudgetBytes int `validate:"min=1"`

	// ParseCacheEntries is the entry capacity of the parse cache.
	ParseCacheEntries int `validate:"min=1"`

	// HistoryTTL is how long a computed timeline stays fresh.
	HistoryTTL time.Duration `validate:"min=1"`

	// SessionGap separates editing sessions in history.
	SessionGap time.Duration `validate:"min=1"`

	// LargeEditBytes is the large-edit threshold in history.
	LargeEditBytes int `validate:"min=1"`

	// RateWindow, RateMaxAttempts and RateLockout configure the limiter
	// guarding invitation codes and link passwords.
	RateWindow      time.Duration `validate:"min=1"`
	RateMaxAttempts int           `validate:"min=1"`
	RateLockout     time.Duration `validate:"min=1"`

	// WatchInterval and FlushInterval drive the personal sync loop;
	// BroadcastInterval drives the collaborative one.
	WatchInterval     time.Duration `validate:"min=1"`
	FlushInterval     time.Duration `validate:"min=1"`
	BroadcastInterval time.Duration `validate:"min=1"`
}

// EnsureDefaults fills omitted fields with their defaults.
func (c *Config) EnsureDefaults() {
	if c.StoragePath == "" {
		c.StoragePath = "manuscript-data"
	}
	if c.InviteStorePath == "" {
		c.InviteStorePath = filepath.Join(c.StoragePath, "invites.db")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ChunkThreshold == 0 {
		c.ChunkThreshold = chunk.DefaultThreshold
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = chunk.DefaultChunkSize
	}
	if c.MaxResidentChunks == 0 {
		c.MaxResidentChunks = chunk.DefaultMaxResident
	}
	if c.RenderBudgetBytes == 0 {
		c.RenderBudgetBytes = 8 << 20
	}
	if c.ParseCacheEntries == 0 {
		c.ParseCacheEntries = 64
	}
	if c.HistoryTTL == 0 {
		c.HistoryTTL = 30 * time.Second
	}
	if c.SessionGap == 0 {
		c.SessionGap = history.DefaultSessionGap
	}
	if c.LargeEditBytes == 0 {
		c.LargeEditBytes = history.DefaultLargeEditBytes
	}
	if c.RateWindow == 0 {
		c.RateWindow = time.Minute
	}
	if c.RateMaxAttempts == 0 {
		c.RateMaxAttempts = 5
	}
	if c.RateLockout == 0 {
		c.RateLockout = 5 * time.Minute
	}
	if c.WatchInterval == 0 {
		c.WatchInterval = storage.DefaultWatchInterval
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = sync.DefaultFlushInterval
	}
	if c.BroadcastInterval == 0 {
		c.BroadcastInterval = sync.DefaultBroadcastInterval
	}
}

// Validate validates this config.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	switch len(c.InviteSealKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("invite seal key must be 16, 24 or 32 bytes, got %d", len(c.InviteSealKey))
	}
	return nil
}

// openDocument is one registered replica with its derived machinery.
type openDocument struct {
	doc     *document.Document
	history *history.History
	done    chan struct{}
}

// Engine is the assembled document engine.
type Engine struct {
	conf *Config

	store       *storage.Store
	inviteStore *invite.Store
	invites     *invite.Service
	syncer      *sync.Syncer
	relay       sync.Relay
	caches      *cache.Manager[[]history.Section, *history.Timeline]
	renderer    render.Renderer
	exporter    render.Exporter
	logger      logging.Logger

	mu   gosync.Mutex
	docs map[key.Key]*openDocument
}

// New creates an engine from the given config. A nil config runs on
// defaults.
func New(conf *Config) (*Engine, error) {
	if conf == nil {
		conf = &Config{}
	}
	conf.EnsureDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if err := logging.SetLogLevel(conf.LogLevel); err != nil {
		return nil, err
	}

	store, err := storage.NewStore(conf.StoragePath)
	if err != nil {
		return nil, err
	}

	limiter, err := limit.NewLimiter(limit.Config{
		Window:      conf.RateWindow,
		MaxAttempts: conf.RateMaxAttempts,
		Lockout:     conf.RateLockout,
	})
	if err != nil {
		return nil, err
	}

	sealKey := []byte(conf.InviteSealKey)
	if len(sealKey) == 0 {
		sealKey = make([]byte, 32)
		if _, err := rand.Read(sealKey); err != nil {
			return nil, fmt.Errorf("generate seal key: %w", err)
		}
	}
	inviteStore, err := invite.NewStore(conf.InviteStorePath, sealKey)
	if err != nil {
		return nil, err
	}

	caches, err := cache.NewManager[[]history.Section, *history.Timeline](cache.Config{
		RenderBudgetBytes: conf.RenderBudgetBytes,
		ParseEntries:      conf.ParseCacheEntries,
		HistoryTTL:        conf.HistoryTTL,
	})
	if err != nil {
		inviteStore.Close()
		return nil, err
	}

	var relay sync.Relay
	if conf.RelayEndpoint != "" {
		relay = sync.NewWebsocketRelay(conf.RelayEndpoint)
	} else {
		relay = sync.NewMemoryRelay()
	}

	return &Engine{
		conf:        conf,
		store:       store,
		inviteStore: inviteStore,
		invites:     invite.NewService(inviteStore, nil, limiter),
		syncer:      sync.NewSyncer(),
		relay:       relay,
		caches:      caches,
		renderer:    render.NewCachedRenderer(&render.PlainRenderer{}, caches.Render),
		exporter:    render.NewTemplateExporter(),
		logger:      logging.New("engine"),
		docs:        make(map[key.Key]*openDocument),
	}, nil
}

// Close shuts the engine down, flushing every open document.
func (e *Engine) Close() error {
	e.mu.Lock()
	open := make([]*openDocument, 0, len(e.docs))
	for _, entry := range e.docs {
		open = append(open, entry)
	}
	e.docs = make(map[key.Key]*openDocument)
	e.mu.Unlock()

	var firstErr error
	for _, entry := range open {
		close(entry.done)
		if err := e.store.SaveDocument(entry.doc); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.relay.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.inviteStore.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// CreateDocument creates, persists and registers a new document.
func (e *Engine) CreateDocument(title string, owner document.Identity) (*document.Document, error) {
	doc := document.New(title, owner)
	if err := e.store.SaveDocument(doc); err != nil {
		return nil, err
	}
	doc.FlushLocalChanges()

	e.register(doc)
	e.logger.Infof("created document %s", doc.Key())
	return doc, nil
}

// OpenDocument returns the registered replica of the document, loading it
// from storage on first open. The replica acts on behalf of the identity.
func (e *Engine) OpenDocument(k key.Key, identity document.Identity) (*document.Document, error) {
	e.mu.Lock()
	if entry, ok := e.docs[k]; ok {
		e.mu.Unlock()
		entry.doc.SetLocalIdentity(identity)
		return entry.doc, nil
	}
	e.mu.Unlock()

	doc, err := e.store.LoadDocument(k, identity)
	if err != nil {
		return nil, err
	}
	e.register(doc)
	return doc, nil
}

// CloseDocument flushes and deregisters the document.
func (e *Engine) CloseDocument(k key.Key) error {
	e.mu.Lock()
	entry, ok := e.docs[k]
	delete(e.docs, k)
	e.mu.Unlock()

	if !ok {
		return document.ErrNotFound
	}
	close(entry.done)
	return e.store.SaveDocument(entry.doc)
}

// register adds the document to the registry and starts the event loop that
// keeps derived caches in step with it.
func (e *Engine) register(doc *document.Document) {
	entry := &openDocument{
		doc:     doc,
		history: history.New(doc, e.historyOptions(), e.caches.NewHistorySlot()),
		done:    make(chan struct{}),
	}

	e.mu.Lock()
	if _, ok := e.docs[doc.Key()]; ok {
		e.mu.Unlock()
		return
	}
	e.docs[doc.Key()] = entry
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-entry.done:
				return
			case event := <-doc.Events():
				if event.Type == document.DocumentChanged {
					entry.history.Invalidate()
					e.caches.Parse.Remove(render.ContentHash(doc.Source()))
				}
			}
		}
	}()
}

func (e *Engine) historyOptions() history.Options {
	return history.Options{
		SessionGap:     e.conf.SessionGap,
		LargeEditBytes: e.conf.LargeEditBytes,
	}
}

// entry returns the registered state of an open document.
func (e *Engine) entry(k key.Key) (*openDocument, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.docs[k]
	if !ok {
		return nil, document.ErrNotFound
	}
	return entry, nil
}

// History returns the history view of the open document.
func (e *Engine) History(k key.Key) (*history.History, error) {
	entry, err := e.entry(k)
	if err != nil {
		return nil, err
	}
	return entry.history, nil
}

// Sections returns the section table of the open document, cached by
// content hash.
func (e *Engine) Sections(k key.Key) ([]history.Section, error) {
	entry, err := e.entry(k)
	if err != nil {
		return nil, err
	}

	source := entry.doc.Source()
	hash := render.ContentHash(source)
	if sections, ok := e.caches.Parse.Get(hash); ok {
		return sections, nil
	}

	sections := history.Sections(source)
	e.caches.Parse.Add(hash, sections)
	return sections, nil
}

// ChunkStore opens chunked access over the current body of the document.
// Bodies below the chunk threshold come back as a single chunk.
func (e *Engine) ChunkStore(k key.Key) (*chunk.Store, error) {
	entry, err := e.entry(k)
	if err != nil {
		return nil, err
	}

	source := entry.doc.Source()
	chunkSize := e.conf.ChunkSize
	if len(source) < e.conf.ChunkThreshold {
		chunkSize = e.conf.ChunkThreshold
	}

	manifest, err := chunk.Partition(len(source), chunkSize)
	if err != nil {
		return nil, err
	}
	loader := chunk.RetryingLoader(chunk.SourceLoader(source), chunk.DefaultLoadRetries)
	return chunk.NewStore(manifest, loader, e.conf.MaxResidentChunks)
}

// RenderDocument renders the document's current body, served from the
// render cache when the body has not changed.
func (e *Engine) RenderDocument(ctx context.Context, k key.Key) (*render.Artifact, error) {
	entry, err := e.entry(k)
	if err != nil {
		return nil, err
	}
	return e.renderer.Render(ctx, entry.doc.Source())
}

// ExportDocument applies the named export template to the document.
func (e *Engine) ExportDocument(ctx context.Context, k key.Key, template string) ([]byte, error) {
	entry, err := e.entry(k)
	if err != nil {
		return nil, err
	}
	return e.exporter.Export(ctx, entry.doc.Source(), template)
}

// SyncPersonal reconciles the document with its on-disk package until the
// context is done.
func (e *Engine) SyncPersonal(ctx context.Context, k key.Key) error {
	entry, err := e.entry(k)
	if err != nil {
		return err
	}
	personal := sync.NewPersonal(e.store, e.conf.WatchInterval, e.conf.FlushInterval)
	return personal.Run(ctx, entry.doc)
}

// Collaborate joins the document's live co-authoring session until the
// context is done.
func (e *Engine) Collaborate(ctx context.Context, k key.Key) error {
	entry, err := e.entry(k)
	if err != nil {
		return err
	}
	collaborative := sync.NewCollaborative(e.syncer, e.relay, e.conf.BroadcastInterval)
	return collaborative.Run(ctx, entry.doc)
}

// Invites returns the invitation service.
func (e *Engine) Invites() *invite.Service {
	return e.invites
}

// AcceptInvitation accepts an identified invitation and adds the recipient
// as a collaborator on the document.
func (e *Engine) AcceptInvitation(id string, recipient document.Identity, code string) (*document.Document, error) {
	grant, err := e.invites.AcceptInvitation(id, recipient, code)
	if err != nil {
		return nil, err
	}
	return e.admit(grant)
}

// RedeemLink redeems a secure link and adds the identity as a collaborator
// on the document.
func (e *Engine) RedeemLink(token string, identity document.Identity, password string) (*document.Document, error) {
	grant, err := e.invites.RedeemLink(token, identity, password)
	if err != nil {
		return nil, err
	}
	return e.admit(grant)
}

// admit applies a grant: the document is opened on behalf of its owner and
// the granted identity becomes a collaborator with the granted role.
func (e *Engine) admit(grant *invite.Grant) (*document.Document, error) {
	e.mu.Lock()
	entry, open := e.docs[grant.DocumentKey]
	e.mu.Unlock()

	var doc *document.Document
	if open {
		doc = entry.doc
	} else {
		loaded, err := e.store.LoadDocument(grant.DocumentKey, "")
		if err != nil {
			return nil, err
		}
		e.register(loaded)
		doc = loaded
	}

	err := doc.AddCollaborator(doc.Owner(), document.Collaborator{
		Identity:    grant.Identity,
		Permissions: grant.Role.Permissions(),
	})
	if err != nil && err != document.ErrCollaboratorExists {
		return nil, err
	}

	doc.SetLocalIdentity(grant.Identity)
	return doc, nil
}
