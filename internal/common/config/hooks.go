package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DecodeHooks builds the viper decoder option used when unmarshalling command configuration.
// The given hooks run first, followed by the duration and comma separated list conversions viper applies by default.
func DecodeHooks(hooks ...mapstructure.DecodeHookFunc) viper.DecoderConfigOption {
	all := make([]mapstructure.DecodeHookFunc, 0, len(hooks)+2)
	all = append(all, hooks...)
	all = append(all,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(all...))
}
