package config

import "github.com/microlang/mlc/pkg/cli"

// SetupFlagGroups registers the -W and -F groups on fs. The returned entries
// are indexed by Warning and Feature; ApplyFlagGroups folds them back in
// after parsing.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features []cli.FlagGroupEntry) {
	warnings = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		on, off := new(bool), new(bool)
		*on = info.Enabled
		warnings[i] = cli.FlagGroupEntry{Name: info.Name, Usage: info.Description, Enabled: on, Disabled: off}
	}
	features = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		on, off := new(bool), new(bool)
		*on = info.Enabled
		features[i] = cli.FlagGroupEntry{Name: info.Name, Usage: info.Description, Enabled: on, Disabled: off}
	}
	fs.AddFlagGroup("Warning Flags", "W", "warning", "Available Warnings:", warnings)
	fs.AddFlagGroup("Feature Flags", "F", "feature", "Available Features:", features)
	return warnings, features
}

// ApplyFlagGroups copies parsed group toggles into c; a -no- spelling wins
func (c *Config) ApplyFlagGroups(warnings, features []cli.FlagGroupEntry) {
	for i, e := range warnings {
		if e.Enabled != nil {
			c.SetWarning(Warning(i), *e.Enabled)
		}
		if e.Disabled != nil && *e.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, e := range features {
		if e.Enabled != nil {
			c.SetFeature(Feature(i), *e.Enabled)
		}
		if e.Disabled != nil && *e.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
