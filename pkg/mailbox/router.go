/*
 * Copyright 2025 SREDiag Authors
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

package mailbox

import (
	"context"
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/srediag/editor-mailbox/api"
)

// Router dispatches commands to handlers registered by command name. Commands with
// no registered handler are ignored. Registration is safe while the endpoint polls.
type Router struct {
	routes cmap.ConcurrentMap[string, api.Handler]
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{routes: cmap.New[api.Handler]()}
}

// Register routes commands named name to h, replacing any previous handler.
func (r *Router) Register(name string, h api.Handler) {
	r.routes.Set(name, h)
}

// RegisterFunc routes commands named name to f.
func (r *Router) RegisterFunc(name string, f func(ctx context.Context, cmd api.Command) (api.Command, error)) {
	r.Register(name, api.HandlerFunc(f))
}

// Remove drops the handler for name.
func (r *Router) Remove(name string) {
	r.routes.Remove(name)
}

// Names returns the registered command names, sorted.
func (r *Router) Names() []string {
	names := r.routes.Keys()
	sort.Strings(names)
	return names
}

// Handle implements api.Handler.
func (r *Router) Handle(ctx context.Context, cmd api.Command) (api.Command, error) {
	h, ok := r.routes.Get(cmd.Name())
	if !ok {
		return nil, nil
	}
	return h.Handle(ctx, cmd)
}
