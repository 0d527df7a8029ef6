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

package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables overriding the configuration file.
const (
	EnvBaseURL        = "CONTEXTO_BASE_URL"
	EnvSiteRoot       = "CONTEXTO_SITE_ROOT"
	EnvDatabaseDriver = "CONTEXTO_DATABASE_DRIVER"
	EnvDatabaseURL    = "CONTEXTO_DATABASE_URL"
	EnvFeedsPort      = "CONTEXTO_FEEDS_PORT"
)

// ApplyEnv loads the given .env file, if it exists, and overrides the
// configuration with the CONTEXTO_* environment variables. Variables already
// set in the environment take precedence over the ones in the file.
// The configuration is checked again once overridden.
func ApplyEnv(cfg *Config, envFile string) error {
	// The file is optional, the variables can be injected directly.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.Site.BaseURL = v
	}
	if v := os.Getenv(EnvSiteRoot); v != "" {
		cfg.Site.Root = v
		cfg.Site.derivePaths()
	}
	if v := os.Getenv(EnvDatabaseDriver); v != "" {
		cfg.Database.DriverName = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Database.ConnectionData = v
	}
	if v := os.Getenv(EnvFeedsPort); v != "" && cfg.FeedsConfig != nil {
		port, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		cfg.FeedsConfig.Port = port
	}

	return cfg.Check()
}
