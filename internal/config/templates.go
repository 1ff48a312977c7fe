package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "server":
		return serverTemplate, nil
	case "client":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serverTemplate = `name = "matrixd"
addr = ":8888"
# admin_addr = "127.0.0.1:9888"
# admin_cors_origins = ["http://localhost:3000"]
max_payload_bytes = 1073741824
read_timeout = ""
write_timeout = ""
`

const clientTemplate = `addr = "127.0.0.1:8888"
matrix_size = 10000
workers = 128
seed = 0
connect_timeout = "5s"
poll_interval = "100ms"
poll_timeout = ""
poll_backoff_multiplier = 1.0
poll_backoff_max = ""
poll_jitter = false
`
