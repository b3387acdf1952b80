package claim

import (
	"github.com/smallbiznis/loyala/internal/claim/repository"
	"github.com/smallbiznis/loyala/internal/claim/service"
	"go.uber.org/fx"
)

var Module = fx.Module("claim.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
