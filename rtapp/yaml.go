// Copyright (C) 2024 Canonical Ltd
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License version 3 as
// published by the Free Software Foundation.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package rtapp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadApplication reads and unmarshals an application description from
// path (spec.md §6's YAML rendering of the source DSL) and calls Finish
// on the result.
func LoadApplication(path string) (*Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read application description: %w", err)
	}
	return ParseApplication(data)
}

// ParseApplication unmarshals an application description from raw YAML
// bytes and calls Finish on the result.
func ParseApplication(data []byte) (*Application, error) {
	var app Application
	if err := yaml.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("cannot parse application description: %w", err)
	}
	if app.Tasks == nil {
		app.Tasks = make(map[string]Task)
	}
	if app.Resources == nil {
		app.Resources = make(map[string]Resource)
	}
	if app.CoreSpecs == nil {
		app.CoreSpecs = make(map[int]Core)
	}
	app.Finish()
	return &app, nil
}
