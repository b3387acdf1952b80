package card

import (
	"github.com/smallbiznis/loyala/internal/card/repository"
	"github.com/smallbiznis/loyala/internal/card/service"
	"go.uber.org/fx"
)

var Module = fx.Module("card.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
