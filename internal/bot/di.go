package bot

import (
	"github.com/foxseedlab/brackman/internal/config"
	"github.com/foxseedlab/brackman/internal/discord"
	"github.com/foxseedlab/brackman/internal/faf"
	"github.com/foxseedlab/brackman/internal/identity"
	"github.com/foxseedlab/brackman/internal/sorting"
	"github.com/foxseedlab/brackman/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		fc := do.MustInvoke[faf.Client](i)
		store := do.MustInvoke[identity.Store](i)
		sorter := do.MustInvoke[*sorting.Sorter](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return NewHandler(cfg, dc, fc, store, sorter, wh), nil
	})
}
