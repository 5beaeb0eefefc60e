package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// Module mounts one feature's routes. public carries no auth; authed runs
// the token check first.
type Module interface {
	Mount(public, authed *gin.RouterGroup)
}

// Modules may implement this to control mount order (lower first).
// Without it a module mounts at 100.
type prioritizer interface{ Priority() int }

type Registry struct {
	mods []Module
}

func (r *Registry) Register(mods ...Module) {
	r.mods = append(r.mods, mods...)
}

func (r *Registry) MountAll(public, authed *gin.RouterGroup) {
	mods := append([]Module(nil), r.mods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.Mount(public, authed)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
