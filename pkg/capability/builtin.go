package capability

import (
	"github.com/cobaltgrid/axon/pkg/agentctx"
	"github.com/cobaltgrid/axon/pkg/config"
	"github.com/cobaltgrid/axon/pkg/snapshot"
)

// BuiltinRegistry builds the default registry from a static table. The
// capability set is closed: adding one means adding a constructor here.
func BuiltinRegistry(cfg *config.Config, store snapshot.Store, actx *agentctx.Store) *Registry {
	r := NewRegistry()
	for _, c := range []Capability{
		NewLogAdapter(),
		NewSearchAdapter(cfg.Search.MaxResults),
		NewEmailAdapter(cfg.Email),
		NewSnapshotAdapter(store, actx),
	} {
		r.Register(c)
	}
	return r
}
