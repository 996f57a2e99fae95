package config

import (
	"fmt"
	"os"

	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/log"
)

// Init prepare config file and homedir
func Init(dir string) error {
	// initial homedir
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o777); err != nil {
			return fmt.Errorf("can't create config directory %s: %w", dir, err)
		}
	}

	// initial config.yaml
	if _, err := os.Stat(C.Path.Config()); os.IsNotExist(err) {
		log.Infoln("Can't find config, create a initial config file")
		f, err := os.OpenFile(C.Path.Config(), os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("can't create file %s: %w", C.Path.Config(), err)
		}
		_, _ = f.Write([]byte(`mixed-port: 7890`))
		_ = f.Close()
	}

	return nil
}
