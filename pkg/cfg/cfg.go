// Package cfg dispatches the calculations of an analysis. It avoids to start
// a specific program for each calculation.
package cfg

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/pelletier/go-toml"
)

// Cfg is a structure where the types of calculations are stored. It can be
// instanced through the New method. Types and Files must have the same shape:
// Files[i][j] is the configuration file of the calculation Types[i][j]. The
// calculations of a same step run in parallel; the steps run one after the
// other.
type Cfg struct {
	Types [][]string `toml:"types"`
	Files [][]string `toml:"files"`
}

// New returns an instance of the Cfg structure. It opens and reads the
// configuration file where Types and Files are stored. The configuration file
// must use the TOML format.
func New(path string) (Cfg, error) {
	f, err := os.Open(path)
	if err != nil {
		return Cfg{}, err
	}
	defer f.Close()

	var cfg Cfg
	dec := toml.NewDecoder(f)
	err = dec.Decode(&cfg)
	if err != nil {
		return Cfg{}, err
	}

	if len(cfg.Files) != len(cfg.Types) {
		return Cfg{}, fmt.Errorf("length of Files isn't equal to Types (%d vs %d)",
			len(cfg.Files), len(cfg.Types))
	}

	for k, v := range cfg.Files {
		if len(v) != len(cfg.Types[k]) {
			return Cfg{}, fmt.Errorf("length of Files isn't equal to Types (%d vs %d, step %d)",
				len(v), len(cfg.Types[k]), k)
		}
	}

	return cfg, nil
}

// Start dispatches and performs the calculations. The calculations of a same
// step (e.g. Types: ["gist", "solute_water"]) are performed in parallel; the
// number of calculations per step must be in accordance with the number of
// threads available, as a calculation may itself use several threads.
//
// It is a thread blocking method. If an error occurs for a specific
// calculation, the calculation will stop and log the error but the method
// won't stop.
func (c Cfg) Start(log *log.Logger) {
	var wg sync.WaitGroup
	for step, types := range c.Types {
		for rtn, name := range types {
			wg.Add(1)
			go func(step, rtn int, name string) {
				defer wg.Done()
				err := Launch(name, c.Files[step][rtn])
				if err != nil {
					log.Println(fmt.Errorf("Launch (step %d, routine %d): %w", step, rtn, err))
				}
			}(step, rtn, name)
		}
		wg.Wait()
	}
}
