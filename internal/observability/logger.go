package observability

import (
	"github.com/danmuck/matrixd/internal/logging"
	"github.com/rs/zerolog"
)

// InitLogger configures the runtime logger and tags it with app. Repeated calls return the
// logger built by the first one.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	logging.SetApp(app)
	return logging.Component("main")
}
