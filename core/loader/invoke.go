package loader

import (
	"context"
	"fmt"
	"maps"

	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/core/host"
)

type command int

const (
	cmdUnknown command = iota
	cmdGet
	cmdSet
	cmdLoad
	cmdRegister
	cmdInstantiate
	cmdDeregister
	cmdInitialize
	cmdQuit
)

var commands = map[string]command{
	"get":         cmdGet,
	"set":         cmdSet,
	"load":        cmdLoad,
	"register":    cmdRegister,
	"instantiate": cmdInstantiate,
	"deregister":  cmdDeregister,
	"initialize":  cmdInitialize,
	"quit":        cmdQuit,
}

// Invoke runs a loader command:
//
//   - load: build data with the default registration policy
//   - register: build and always register
//   - instantiate: build a disposable, never registered instance
//   - deregister: remove data from the root
//   - initialize: merge the declarations of source data (or the configured
//     source); an inline table is merged directly
//   - quit: acknowledge shutdown
func (l *Loader) Invoke(ctx context.Context, intent edge.Intent, data any, opts edge.Options) (any, error) {
	ctx = host.Bind(ctx, l.host)
	switch commands[intent.Verb] {
	case cmdGet:
		return l.Get(intent.Path)
	case cmdSet:
		return l.Set(data, intent.Path)
	case cmdLoad:
		return l.Load(ctx, data, nil)
	case cmdRegister:
		return l.Load(ctx, data, ptr(true))
	case cmdInstantiate:
		return l.Load(ctx, data, ptr(false))
	case cmdDeregister:
		return l.Deregister(data)
	case cmdInitialize:
		var err error
		switch v := data.(type) {
		case nil:
			err = l.Initialize(ctx, "")
		case string:
			err = l.Initialize(ctx, v)
		default:
			err = l.merge(v)
		}
		if err != nil {
			return nil, err
		}
		return l, nil
	case cmdQuit:
		l.logger.Debug().Msg("loader quit")
		return true, nil
	}
	return nil, errs.UnknownIntent(intent.Verb)
}

// Get reads loader settings or declarations:
//
//	name, from        the loader name
//	root              the root the loader registers into
//	register          the default registration policy
//	source, modules   the deferred declaration source
//	token             always Forbidden
//	<id>[, path...]   a copy of the declaration, or a value inside it
func (l *Loader) Get(path edge.Path) (any, error) {
	path = path.Compact()
	if len(path) == 0 {
		l.mu.RLock()
		defer l.mu.RUnlock()
		out := make(map[string]Declaration, len(l.vertices))
		for id, d := range l.vertices {
			out[id] = d.Clone()
		}
		return out, nil
	}

	key := fmt.Sprint(path[0])
	switch key {
	case "name", "from":
		return l.name, nil
	case "root":
		return l.root, nil
	case "register":
		return l.register, nil
	case "source", "modules":
		return l.source, nil
	case "token":
		return nil, errs.Forbidden.Errorf("loader token is not readable")
	}

	d, ok := l.declaration(key)
	if !ok {
		return nil, nil
	}
	if len(path) == 1 {
		return d.Clone(), nil
	}
	return edge.NewVector(map[string]any(d)).Get(path[1:])
}

// Set adds, replaces or removes declarations. An empty path merges a whole
// table. Setting Absent on an identifier removes its declaration and
// reports whether it existed.
func (l *Loader) Set(value any, path edge.Path) (any, error) {
	path = path.Compact()
	if len(path) == 0 {
		if err := l.merge(value); err != nil {
			return nil, err
		}
		return l.Len(), nil
	}

	id := fmt.Sprint(path[0])
	if len(path) > 1 {
		l.mu.Lock()
		defer l.mu.Unlock()
		d, ok := l.vertices[id]
		if !ok {
			return nil, errs.NotFound.Errorf("vertex with ID %q", id)
		}
		return edge.NewVector(map[string]any(d)).Set(value, path[1:])
	}

	if edge.IsAbsent(value) {
		l.mu.Lock()
		defer l.mu.Unlock()
		_, existed := l.vertices[id]
		delete(l.vertices, id)
		return existed, nil
	}

	d, ok := asDeclaration(value)
	if !ok {
		return nil, errs.Invalid.Errorf("declaration %q must be a map, got %T", id, value)
	}
	l.mu.Lock()
	l.vertices[id] = maps.Clone(d)
	l.mu.Unlock()
	return id, nil
}

func ptr[T any](v T) *T {
	return &v
}
