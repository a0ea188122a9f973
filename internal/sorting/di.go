package sorting

import (
	"github.com/foxseedlab/brackman/internal/config"
	"github.com/foxseedlab/brackman/internal/discord"
	"github.com/foxseedlab/brackman/internal/faf"
	"github.com/foxseedlab/brackman/internal/identity"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Sorter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		fc := do.MustInvoke[faf.Client](i)
		store := do.MustInvoke[identity.Store](i)
		return NewSorter(dc, fc, store, NewSessionRegistry(), cfg.SortCategoryRestrictionID), nil
	})
}
