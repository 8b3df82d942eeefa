package config

import (
	_ "github.com/screepers/steamless-client/internal/clientmodule/classic"
	_ "github.com/screepers/steamless-client/internal/clientmodule/steam"
)
