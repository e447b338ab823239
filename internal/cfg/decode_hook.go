package cfg

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

func hookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		switch t {
		case reflect.TypeOf(LogSeverity("")):
			level := strings.ToUpper(s)
			if !slices.Contains([]string{"TRACE", "DEBUG", "INFO", "WARNING", "ERROR", "OFF"}, level) {
				return nil, fmt.Errorf("invalid log severity: %s", s)
			}
			return level, nil
		default:
			return data, nil
		}
	}
}

// DecodeHook composes the field-level hooks consulted when viper unmarshals
// raw config-file/flag values into Config: path-mask entries decoded via
// PathMaskEntry.UnmarshalText, log severities validated against the
// vocabulary internal/logger accepts, durations and comma-separated lists
// via mapstructure's own default hooks. Mirrors the teacher's
// cfg/decode_hook.go composition exactly.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		hookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
