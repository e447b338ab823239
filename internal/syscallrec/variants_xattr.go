package syscallrec

import (
	"time"

	"github.com/pkg/xattr"
)

// GetXAttr replays a `getxattr` event.
type GetXAttr struct {
	base
	Path string
	Name string
}

func (g GetXAttr) Name() string { return "getxattr" }

func (g GetXAttr) Perform(ctx *Context) (time.Duration, error) {
	return measure(func() error {
		_, err := xattr.Get(ctx.Resolve(g.Path), g.Name)
		return err
	})
}

// SetXAttr replays a `setxattr` event. The original attribute value is
// never captured by the trace format, so Size zero-filled bytes are
// written in its place, same rationale as Write.
type SetXAttr struct {
	base
	Path  string
	Name  string
	Size  int64
	Flags int
}

func (s SetXAttr) Name() string { return "setxattr" }

func (s SetXAttr) Perform(ctx *Context) (time.Duration, error) {
	value := make([]byte, s.Size)
	return measure(func() error {
		return xattr.SetWithFlags(ctx.Resolve(s.Path), s.Name, value, s.Flags)
	})
}

// RemoveXAttr replays a `removexattr` event.
type RemoveXAttr struct {
	base
	Path string
	Name string
}

func (r RemoveXAttr) Name() string { return "removexattr" }

func (r RemoveXAttr) Perform(ctx *Context) (time.Duration, error) {
	return measure(func() error {
		return xattr.Remove(ctx.Resolve(r.Path), r.Name)
	})
}

// ListXAttr replays a `listxattr` event.
type ListXAttr struct {
	base
	Path string
}

func (l ListXAttr) Name() string { return "listxattr" }

func (l ListXAttr) Perform(ctx *Context) (time.Duration, error) {
	return measure(func() error {
		_, err := xattr.List(ctx.Resolve(l.Path))
		return err
	})
}
