package config

import "go.uber.org/fx"

// Module loads configuration once for the whole graph.
var Module = fx.Provide(Load)
