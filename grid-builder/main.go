// Copyright 2018 Informo core team <core@informo.network>
//
// Licensed under the GNU Affero General Public License, Version 3.0
// (the "License"); you may not use this file except in compliance with the
// License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ContextoAbierto/contexto-abierto/common"
	"github.com/ContextoAbierto/contexto-abierto/common/config"
	"github.com/ContextoAbierto/contexto-abierto/common/loader"
	"github.com/ContextoAbierto/contexto-abierto/common/site"

	"github.com/sirupsen/logrus"
)

var (
	configFile = flag.String("config", "config.yaml", "Configuration file")
	envFile    = flag.String("env", ".env", "File to load environment variables from")
	output     = flag.String("output", "", "Write the page to this file instead of the configured one")
	debug      = flag.Bool("debug", false, "Print debugging messages")
)

func main() {
	// Parse the command line arguments.
	flag.Parse()

	// Configure the logger.
	common.LogConfig(*debug)

	// Load the configuration from the provided configuration file, then apply
	// the environment's overrides.
	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Panic(fmt.Errorf("Couldn't load config: %s", err.Error()))
	}
	if err = config.ApplyEnv(cfg, *envFile); err != nil {
		logrus.Panic(fmt.Errorf("Couldn't load environment: %s", err.Error()))
	}
	if len(*output) > 0 {
		cfg.Site.Output = *output
	}

	if err = build(cfg); err != nil {
		logrus.WithError(err).Error("Couldn't build the news grid")
		os.Exit(1)
	}
}

// build loads the news grid once and writes the resulting page.
// A failure to retrieve the news index aborts the whole load, in which case
// the page isn't written. Failed cards are only logged.
func build(cfg *config.Config) error {
	// Open the host page and the database, and instantiate the loader.
	s, err := site.New(cfg)
	if err != nil {
		return fmt.Errorf("Couldn't set up the site: %s", err.Error())
	}
	defer s.Close()

	run, err := s.Loader.Load(context.Background())
	if err != nil {
		return err
	}

	// Wait for every card and log the ones that couldn't be built.
	loader.LogFailures(logrus.WithField("run_id", run.ID), run.Wait())

	if err = s.Grid.WriteFile(cfg.Site.Output); err != nil {
		return fmt.Errorf("Couldn't write page: %s", err.Error())
	}

	logrus.WithFields(logrus.Fields{
		"output": cfg.Site.Output,
		"cards":  s.Grid.Len(),
	}).Info("Page written")

	return nil
}
