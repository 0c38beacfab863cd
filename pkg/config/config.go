// Package config loads a device profile from an .ini file: which bus
// backend to use and how to reach it, plus the transport layer's retry and
// timing tunables. It uses gopkg.in/ini.v1, the same library the teacher
// uses to parse its object-dictionary EDS files, repurposed here since this
// domain has no object dictionary of its own to parse.
package config

import (
	"time"

	"gopkg.in/ini.v1"

	optigatrust "github.com/openoptiga/optigatrust"
)

// Profile is a fully-resolved device configuration, ready to build a Bus
// and a set of Device options from.
type Profile struct {
	// Bus section.
	Interface string // registered bus backend name, e.g. "virtual"
	Channel   string // backend-specific channel string

	// Tuning section. Zero means "use the package default".
	QueueDepth       int
	ResetBudget      int
	NPHY             int
	PHYRetryDelay    time.Duration
	NDL              int
	ForcedDataRegLen int
}

// Load reads a device profile from file, which may be a path, []byte, or
// io.Reader, per ini.Load's own accepted source types.
func Load(source any) (Profile, error) {
	cfg, err := ini.Load(source)
	if err != nil {
		return Profile{}, err
	}

	bus := cfg.Section("bus")
	tuning := cfg.Section("tuning")

	p := Profile{
		Interface: bus.Key("interface").MustString("virtual"),
		Channel:   bus.Key("channel").MustString(""),

		QueueDepth:  tuning.Key("queue_depth").MustInt(0),
		ResetBudget: tuning.Key("n_reset").MustInt(0),

		NPHY:          tuning.Key("n_phy").MustInt(0),
		PHYRetryDelay: time.Duration(tuning.Key("phy_retry_delay_ms").MustInt(0)) * time.Millisecond,

		NDL:              tuning.Key("n_dl").MustInt(0),
		ForcedDataRegLen: tuning.Key("data_reg_len").MustInt(0),
	}
	return p, nil
}

// NewBus looks up and constructs the bus backend named by the profile.
func (p Profile) NewBus() (optigatrust.Bus, error) {
	return optigatrust.NewBus(p.Interface, p.Channel)
}

// DeviceOptions translates the tuning section into Device construction
// options. Only knobs with a non-zero value in the profile are applied;
// everything else keeps the package defaults.
func (p Profile) DeviceOptions() []optigatrust.Option {
	var opts []optigatrust.Option
	if p.QueueDepth != 0 {
		opts = append(opts, optigatrust.WithQueueDepth(p.QueueDepth))
	}
	if p.ResetBudget != 0 {
		opts = append(opts, optigatrust.WithResetBudget(p.ResetBudget))
	}
	if p.NPHY != 0 || p.PHYRetryDelay != 0 || p.ForcedDataRegLen != 0 {
		opts = append(opts, optigatrust.WithPHYTuning(p.NPHY, p.PHYRetryDelay, p.ForcedDataRegLen))
	}
	if p.NDL != 0 {
		opts = append(opts, optigatrust.WithDLRetries(p.NDL))
	}
	return opts
}
