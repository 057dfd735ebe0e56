package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// CustomHooks are applied when decoding configuration. Types that need validation on load (for example the
// display format) implement encoding.TextUnmarshaler and are handled by the text unmarshaller hook.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)),
}
