// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type BenchData struct {
	Rows    int    `toml:"rows"`
	Columns int    `toml:"columns"`
	Kind    string `toml:"kind"`
	NullPct int    `toml:"nullPct"`
	Seed    int64  `toml:"seed"`
}

type BenchRun struct {
	Threads    []int `toml:"threads"`
	Descending bool  `toml:"descending"`
	Groups     bool  `toml:"groups"`
}

type DebugOptions struct {
	PrintResult   bool `toml:"printResult"`
	PrintProgress bool `toml:"printProgress"`
	MaxOutputRows int  `toml:"maxOutputRows"`
}

type Config struct {
	Bench BenchData    `toml:"bench"`
	Run   BenchRun     `toml:"run"`
	Debug DebugOptions `toml:"debug"`
}

func LoadConfig(fpath string) (*Config, error) {
	if !FileIsValid(fpath) {
		return nil, fmt.Errorf("config file %s does not exist", fpath)
	}
	cfg := &Config{}
	_, err := toml.DecodeFile(fpath, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
