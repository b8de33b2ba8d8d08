/*
Copyright © 2024 the woaic authors.
This file is part of woaic.

woaic is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

woaic is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with woaic.  If not, see <http://www.gnu.org/licenses/>.
*/

package woaic

import (
	"fmt"
	"path/filepath"
)

// Config holds the settings for a run.
type Config struct {
	// SourceDir holds the atlas files.
	SourceDir string

	// DestDir holds the existing destination files, which are updated.
	DestDir string

	// Prefix starts every file name, e.g. "woa23_decav".
	Prefix string

	// Resolution is the grid resolution code that ends every file
	// name, e.g. "04" for the quarter degree grid.
	Resolution string

	// Threshold is the value above which source data is missing.
	Threshold float64

	// LevelsPerChunk is the number of depth levels converted to absolute
	// salinity at once. Larger chunks use more memory.
	LevelsPerChunk int

	Months []Month

	// Program is named in the history attribute of the output.
	Program string
}

// NewConfig returns a configuration with default settings.
func NewConfig(sourceDir, destDir string) *Config {
	return &Config{
		SourceDir:      sourceDir,
		DestDir:        destDir,
		Prefix:         "woa23_decav",
		Resolution:     "04",
		Threshold:      1000,
		LevelsPerChunk: 1,
		Months:         DefaultMonths(),
		Program:        "woaic",
	}
}

// Validate checks c for settings that cannot work.
func (c *Config) Validate() error {
	if c.SourceDir == "" || c.DestDir == "" {
		return fmt.Errorf("woaic: source and destination directories must be specified")
	}
	if c.Prefix == "" || c.Resolution == "" {
		return fmt.Errorf("woaic: file prefix and resolution must be specified")
	}
	if c.LevelsPerChunk < 1 {
		return fmt.Errorf("woaic: LevelsPerChunk must be at least 1; got %d", c.LevelsPerChunk)
	}
	if len(c.Months) == 0 {
		return fmt.Errorf("woaic: no months to process")
	}
	return nil
}

// TemperaturePath returns the atlas temperature file for period id.
func (c *Config) TemperaturePath(id string) string {
	return filepath.Join(c.SourceDir, fmt.Sprintf("%s_t%s_%s.nc", c.Prefix, id, c.Resolution))
}

// SalinityPath returns the atlas salinity file for period id.
func (c *Config) SalinityPath(id string) string {
	return filepath.Join(c.SourceDir, fmt.Sprintf("%s_s%s_%s.nc", c.Prefix, id, c.Resolution))
}

// DestinationPath returns the destination file for month m.
func (c *Config) DestinationPath(m Month) string {
	return filepath.Join(c.DestDir, fmt.Sprintf("%s_ts_%s_%s.nc", c.Prefix, m.Surface, c.Resolution))
}
