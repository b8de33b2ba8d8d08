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


// Package woaicutil holds the command-line interface to woaic.
package woaicutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/woaic"
	"github.com/spatialmodel/woaic/science/seawater/gsw"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Prefix",
			usage: `
              Prefix is the start of every atlas and destination file name.`,
			defaultVal: "woa23_decav",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "Resolution",
			usage: `
              Resolution is the grid resolution code at the end of every
              file name, e.g. "04" for the quarter degree grid.`,
			defaultVal: "04",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "Threshold",
			usage: `
              Threshold is the value above which atlas temperature and
              salinity are treated as missing.`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "LevelsPerChunk",
			usage: `
              LevelsPerChunk is the number of depth levels converted to
              absolute salinity at once. Larger values use more memory.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "DeepProxyMonths",
			usage: `
              DeepProxyMonths lists, for each calendar month, the seasonal
              atlas period whose deep levels are used below the monthly
              fields.`,
			defaultVal: woaic.DefaultDeepProxies,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the lowest level of message to print: one of
              debug, info, warning or error.`,
			shorthand:  "l",
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Environment variables take the form WOAIC_THRESHOLD.
	Cfg.SetEnvPrefix("WOAIC")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 {
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}

	Root.AddCommand(versionCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("woaic: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "woaic <source-dir> <destination-dir>",
	Short: "Derive ocean initial conditions from World Ocean Atlas climatologies.",
	Long: `woaic reads monthly and seasonal World Ocean Atlas temperature and
salinity from source-dir, merges the monthly upper ocean onto the seasonal deep
ocean, converts in-situ temperature to TEOS-10 conservative temperature, and
writes it together with practical salinity into the existing monthly files in
destination-dir.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'WOAIC_var' where 'var' is the
name of the variable to be set.`,
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := NewLogger(Cfg.GetString("LogLevel"), os.Stdout)
		if err != nil {
			return err
		}
		c, err := NewConfig(Cfg, args[0], args[1])
		if err != nil {
			return err
		}
		p := &woaic.Pipeline{
			Config:   c,
			Seawater: gsw.GSW{},
			Log:      log,
		}
		return p.Run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of woaic.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("woaic v%s\n", woaic.Version)
	},
	DisableAutoGenTag: true,
}

// NewConfig creates a run configuration from cfg for the given source
// and destination directories.
func NewConfig(cfg *viper.Viper, sourceDir, destDir string) (*woaic.Config, error) {
	deep, err := toStringSliceE(cfg.Get("DeepProxyMonths"))
	if err != nil {
		return nil, fmt.Errorf("woaic: DeepProxyMonths: %v", err)
	}
	months, err := woaic.NewMonths(deep)
	if err != nil {
		return nil, err
	}
	c := woaic.NewConfig(os.ExpandEnv(sourceDir), os.ExpandEnv(destDir))
	c.Prefix = cfg.GetString("Prefix")
	c.Resolution = cfg.GetString("Resolution")
	c.Threshold = cfg.GetFloat64("Threshold")
	c.LevelsPerChunk = cfg.GetInt("LevelsPerChunk")
	c.Months = months
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// toStringSliceE converts a list option, which may arrive from a flag, a
// configuration file or a comma-separated environment variable.
func toStringSliceE(i interface{}) ([]string, error) {
	if s, ok := i.(string); ok {
		s = strings.Trim(s, "[]")
		var o []string
		for _, f := range strings.Split(s, ",") {
			if f = strings.TrimSpace(f); f != "" {
				o = append(o, f)
			}
		}
		return o, nil
	}
	return cast.ToStringSliceE(i)
}

// NewLogger returns a logger that writes text lines at or above level
// to w.
func NewLogger(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("woaic: LogLevel: %v", err)
	}
	log := logrus.New()
	log.Out = w
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true, DisableSorting: true}
	log.SetLevel(lvl)
	return log, nil
}
