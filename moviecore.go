// Copyright 2024 The Moviecore Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package moviecore wires the timeline primitives (track trees, block
// sequences, the binder, player, recorder and edit history) into one
// running Context, the way nvr.go wires monitors, storage and the web
// mux together for the host application.
package moviecore

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"moviecore/pkg/binder"
	"moviecore/pkg/edit"
	"moviecore/pkg/mlog"
	"moviecore/pkg/modification"
	"moviecore/pkg/player"
	"moviecore/pkg/project"
	"moviecore/pkg/projectcfg"
	"moviecore/pkg/recorder"
	"moviecore/pkg/track"
)

type (
	// ModificationHook registers a Modification with the shared registry
	// when a Context is constructed.
	ModificationHook func(*modification.Registry)
	// ContextHook observes a freshly constructed Context, the wiring-time
	// analog of addon.go's onLog/onStorage hooks.
	ContextHook func(*Context)
)

type hookList struct {
	onModification []ModificationHook
	onContext      []ContextHook
}

var hooks = &hookList{}

// RegisterModificationHook adds a modification to every future Context.
func RegisterModificationHook(h ModificationHook) {
	hooks.onModification = append(hooks.onModification, h)
}

// RegisterContextHook runs h against every future Context right after
// construction, before the caller takes it over.
func RegisterContextHook(h ContextHook) {
	hooks.onContext = append(hooks.onContext, h)
}

// Context is one open project: its track tree, the binder resolving
// tracks against a live scene, the player driving preview ticks, the
// recorder capturing new takes, the history log backing undo, and the
// modification registry available to the editor shell.
type Context struct {
	Config        *projectcfg.Config
	Tree          *track.Tree
	Binder        *binder.Binder
	Player        *player.Player
	History       *edit.History
	Log           *mlog.Logger
	Modifications *modification.Registry

	configPath    string
	mu            sync.Mutex
	boneAccessors []*binder.BoneAccessor
}

// AddBoneAccessor registers a skinned model's bone accessor so the
// Player's compose phase includes it on every future tick.
func (c *Context) AddBoneAccessor(a *binder.BoneAccessor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boneAccessors = append(c.boneAccessors, a)
}

func (c *Context) composeAll() {
	c.mu.Lock()
	accessors := append([]*binder.BoneAccessor{}, c.boneAccessors...)
	c.mu.Unlock()
	for _, a := range accessors {
		a.Compose()
	}
}

// NewRecorder builds a Recorder bound to this Context's sample rate and
// track set, firing onEvent for every state transition.
func (c *Context) NewRecorder(sources []recorder.Source, onEvent func(string, recorder.State)) *recorder.Recorder {
	return recorder.New(recorder.Options{SampleRate: c.Config.SampleRate}, sources, onEvent)
}

// Open reads the project config at configPath, wiring a Context around
// it. scene resolves ref tracks against the host's live scene; it may be
// nil for headless tooling that only touches the track tree and history.
func Open(configPath string, scene binder.SceneQuery) (*Context, error) {
	projectYAML, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read project config: %w", err)
	}
	cfg, err := projectcfg.New(configPath, projectYAML)
	if err != nil {
		return nil, fmt.Errorf("could not parse project config: %w", err)
	}
	tree, err := cfg.BuildTree()
	if err != nil {
		return nil, fmt.Errorf("could not build track tree: %w", err)
	}

	logger := mlog.New()

	historyPath := filepath.Join(cfg.HistoryDir, "history.db")
	history, err := edit.Open(historyPath)
	if err != nil {
		return nil, fmt.Errorf("could not open history log: %w", err)
	}

	registry := modification.NewRegistryWithDefaults()
	for _, h := range hooks.onModification {
		h(registry)
	}

	ctx := &Context{
		Config:        cfg,
		Tree:          tree,
		History:       history,
		Log:           logger,
		Modifications: registry,
		configPath:    configPath,
	}

	if scene != nil {
		ctx.Binder = binder.New(scene, nil)
	}
	ctx.Player = player.New(ctx.composeAll)
	ctx.Player.SetBinder(ctx.Binder)

	for _, h := range hooks.onContext {
		h(ctx)
	}
	return ctx, nil
}

// Checksum returns a content hash over the current track forest, so a
// host can detect whether a project has unsaved changes since the last
// Checksum call without keeping its own dirty flag.
func (c *Context) Checksum() (string, error) {
	return project.Checksum(project.FromTree(c.Tree))
}

// Save re-renders the track tree into c.Config and writes the project
// file back to the path it was opened from, the save side of the §6.1
// persisted format Open's BuildTree call decodes.
func (c *Context) Save() error {
	c.Config.SyncTracks(c.Tree)
	data, err := projectcfg.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("could not marshal project config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o644); err != nil {
		return fmt.Errorf("could not write project config: %w", err)
	}
	return nil
}

// Run starts the Context's background loops (live preview broadcast,
// log fan-out) until ctx is cancelled.
func (c *Context) Run(ctx context.Context) {
	go c.Player.Start(ctx)
	go c.Log.Start(ctx)
}

// Close releases the Context's held resources (currently just the
// history log's bbolt handle).
func (c *Context) Close() error {
	return c.History.Close()
}
