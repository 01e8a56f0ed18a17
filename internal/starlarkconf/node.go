package starlarkconf

import (
	"fmt"

	"github.com/sourceplane/pipecfg/internal/model"
	"go.starlark.net/starlark"
)

// node is the opaque Starlark value returned by every settings builtin. It
// carries the model value it describes.
type node struct {
	kind  string
	value interface{}
}

var _ starlark.Value = (*node)(nil)

func (n *node) String() string        { return fmt.Sprintf("<%s>", n.kind) }
func (n *node) Type() string          { return n.kind }
func (n *node) Freeze()               {}
func (n *node) Truth() starlark.Bool  { return starlark.True }
func (n *node) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: %s", n.kind) }

// nodesOf converts a list of nodes into model values of type T
func nodesOf[T any](fn, param string, l *starlark.List) ([]T, error) {
	if l == nil {
		return nil, nil
	}
	out := make([]T, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		n, ok := l.Index(i).(*node)
		if !ok {
			return nil, fmt.Errorf("%s: %s[%d]: got %s", fn, param, i, l.Index(i).Type())
		}
		v, ok := n.value.(T)
		if !ok {
			return nil, fmt.Errorf("%s: %s[%d]: got %s", fn, param, i, n.kind)
		}
		out = append(out, v)
	}
	return out, nil
}

// idOf accepts either an id string or a node whose value has an explicit id
func idOf(fn, param string, v starlark.Value) (string, error) {
	switch x := v.(type) {
	case starlark.String:
		return x.GoString(), nil
	case *node:
		var id string
		switch m := x.value.(type) {
		case model.BuildType:
			id = m.ID
		case model.Template:
			id = m.ID
		case model.VcsRoot:
			id = m.ID
		default:
			return "", fmt.Errorf("%s: %s: got %s", fn, param, x.kind)
		}
		if id == "" {
			return "", fmt.Errorf("%s: %s: %s passed by value needs an explicit id", fn, param, x.kind)
		}
		return id, nil
	default:
		return "", fmt.Errorf("%s: %s: got %s, want string", fn, param, v.Type())
	}
}

func idsOf(fn, param string, l *starlark.List) ([]string, error) {
	if l == nil {
		return nil, nil
	}
	out := make([]string, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		id, err := idOf(fn, fmt.Sprintf("%s[%d]", param, i), l.Index(i))
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func toStringMap(fn, param string, d *starlark.Dict) (map[string]string, error) {
	if d == nil {
		return nil, nil
	}
	out := make(map[string]string, d.Len())
	for _, item := range d.Items() {
		k, ok := item[0].(starlark.String)
		if !ok {
			return nil, fmt.Errorf("%s: %s: key %s is not a string", fn, param, item[0])
		}
		v, ok := item[1].(starlark.String)
		if !ok {
			return nil, fmt.Errorf("%s: %s[%q]: got %s, want string", fn, param, k.GoString(), item[1].Type())
		}
		out[k.GoString()] = v.GoString()
	}
	return out, nil
}

func toSecretMap(fn, param string, d *starlark.Dict) (map[string]model.SecretRef, error) {
	m, err := toStringMap(fn, param, d)
	if err != nil || m == nil {
		return nil, err
	}
	out := make(map[string]model.SecretRef, len(m))
	for k, v := range m {
		out[k] = model.SecretRef(v)
	}
	return out, nil
}

// optionalBool maps None or absent to nil
func optionalBool(fn, param string, v starlark.Value) (*bool, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	b, ok := v.(starlark.Bool)
	if !ok {
		return nil, fmt.Errorf("%s: %s: got %s, want bool", fn, param, v.Type())
	}
	val := bool(b)
	return &val, nil
}
